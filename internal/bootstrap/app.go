package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"chatplatform/internal/cache"
	"chatplatform/internal/config"
	"chatplatform/internal/model"
	mysqlClient "chatplatform/internal/platform/mysql"
	"chatplatform/internal/platform/rabbitmq"
	redisClient "chatplatform/internal/platform/redis"
	"chatplatform/internal/repository"
	"chatplatform/internal/worker"
	"chatplatform/internal/ws"
)

type App struct {
	Config           *config.Config
	MySQL            *gorm.DB
	Redis            *redis.Client
	Broker           *rabbitmq.Broker
	ContentCache     *cache.ContentCache
	Manager          *ws.Manager
	TranscriptWorker *worker.TranscriptWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	err = mysqlDB.AutoMigrate(
		&model.User{},
		&model.ExternalUser{},
		&model.Course{},
		&model.CourseMember{},
		&model.Document{},
		&model.GptPreset{},
		&model.ChatSession{},
		&model.ChannelMessage{},
	)
	if err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	// The broker dials lazily; an unreachable RabbitMQ delays chat, not
	// startup.
	broker := rabbitmq.NewBroker(cfg.RabbitMQ.URL)
	if err := broker.EnsureConnected(); err != nil {
		log.Printf("rabbitmq not reachable at startup, will retry on use: %v", err)
	}

	channelMessageRepo := repository.NewChannelMessageRepository(mysqlDB)
	transcriptWorker := worker.NewTranscriptWorker(broker, channelMessageRepo, cfg.RabbitMQ.TranscriptQueue)
	transcriptWorker.Start(ctx)

	return &App{
		Config:           cfg,
		MySQL:            mysqlDB,
		Redis:            redisCli,
		Broker:           broker,
		ContentCache:     cache.NewContentCache(redisCli, time.Duration(cfg.Redis.ContentTTLSeconds)*time.Second),
		Manager:          ws.NewManager(broker, cfg.RabbitMQ.ChannelQueuePrefix),
		TranscriptWorker: transcriptWorker,
		StartedAt:        time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Manager != nil {
		a.Manager.Close()
	}
	if a.TranscriptWorker != nil {
		a.TranscriptWorker.Close()
	}
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
