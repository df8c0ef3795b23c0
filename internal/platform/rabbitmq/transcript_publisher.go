package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"chatplatform/internal/model"
)

// TranscriptPublisher enqueues channel traffic onto the durable transcript
// queue for asynchronous persistence by the transcript worker.
type TranscriptPublisher struct {
	broker    *Broker
	queueName string
}

func NewTranscriptPublisher(broker *Broker, queueName string) *TranscriptPublisher {
	return &TranscriptPublisher{
		broker:    broker,
		queueName: queueName,
	}
}

func (p *TranscriptPublisher) Publish(ctx context.Context, msg model.ChannelMessage) error {
	if err := p.broker.DeclareQueue(p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal transcript payload failed: %w", err)
	}
	return p.broker.Publish(ctx, p.queueName, payload)
}
