package jobqueue

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/complaint"
)

// Publisher hands complaint events to the queue.
type Publisher struct {
	queue Enqueuer
}

func NewPublisher(queue Enqueuer) *Publisher {
	return &Publisher{queue: queue}
}

func (p *Publisher) Publish(_ context.Context, event complaint.Event) error {
	payload, err := EventToMap(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}
	_, err = p.queue.EnqueueJob(JobTypeComplaintEvent, payload)
	return err
}

var _ complaint.Publisher = (*Publisher)(nil)
