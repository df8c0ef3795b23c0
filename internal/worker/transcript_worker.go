package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"chatplatform/internal/model"
	"chatplatform/internal/platform/rabbitmq"
	"chatplatform/internal/repository"
)

// TranscriptWorker drains the transcript queue and archives every channel
// envelope to MySQL. It runs alongside the dispatch layer so channel fan-out
// never waits on the database.
type TranscriptWorker struct {
	broker    *rabbitmq.Broker
	repo      *repository.ChannelMessageRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTranscriptWorker(broker *rabbitmq.Broker, repo *repository.ChannelMessageRepository, queueName string) *TranscriptWorker {
	return &TranscriptWorker{
		broker:    broker,
		repo:      repo,
		queueName: queueName,
	}
}

// Start launches the drain loop. The broker may be unreachable at startup;
// the loop keeps retrying the declare and consume until Close.
func (w *TranscriptWorker) Start(ctx context.Context) {
	if w.cancel != nil {
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			err := w.broker.DeclareQueue(w.queueName)
			if err == nil {
				err = w.broker.Consume(workerCtx, w.queueName, w.persist)
			}
			if workerCtx.Err() != nil {
				return
			}
			log.Printf("transcript consume interrupted: %v", err)
			select {
			case <-workerCtx.Done():
				return
			case <-time.After(3 * time.Second):
			}
		}
	}()
}

func (w *TranscriptWorker) persist(body []byte) error {
	var msg model.ChannelMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode transcript payload failed: %w", err)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return w.repo.Create(&msg)
}

func (w *TranscriptWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
