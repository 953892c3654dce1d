package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/UrbanFix/app/models"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/mail"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Invalidator drops cached projections.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// UserLookup loads the citizen owning a complaint.
type UserLookup interface {
	GetByID(id uint) (*models.User, error)
}

// Enqueuer adds jobs to a queue.
type Enqueuer interface {
	EnqueueJob(jobType JobType, payload map[string]interface{}) (*Job, error)
}

// EventProcessor reacts to committed complaint lifecycle events.
type EventProcessor struct {
	stats  Invalidator
	users  UserLookup
	mailer mail.Mailer
	queue  Enqueuer
}

// NewEventProcessor wires the event handlers. mailer may be nil to disable notifications.
func NewEventProcessor(stats Invalidator, users UserLookup, mailer mail.Mailer, queue Enqueuer) *EventProcessor {
	return &EventProcessor{stats: stats, users: users, mailer: mailer, queue: queue}
}

// Register installs the processor's handlers on q.
func (p *EventProcessor) Register(q *Queue) {
	q.Register(JobTypeComplaintEvent, p.HandleComplaintEvent)
	q.Register(JobTypeNotifyCitizen, p.HandleNotifyCitizen)
}

func (p *EventProcessor) HandleComplaintEvent(ctx context.Context, job *Job) error {
	event, err := EventFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid complaint event payload: %w", err)
	}
	log.Debugf("[JobQueue] %s for %s (status %s)", event.Type, event.ReportID, event.Status)

	if p.stats != nil {
		if err := p.stats.Invalidate(ctx); err != nil {
			return err
		}
	}

	if !event.StatusChanged() || p.mailer == nil || p.queue == nil {
		return nil
	}
	payload := NotifyCitizenPayload{
		UserID:         event.UserID,
		ReportID:       event.ReportID,
		PreviousStatus: event.PreviousStatus,
		Status:         event.Status,
	}
	if _, err := p.queue.EnqueueJob(JobTypeNotifyCitizen, payload.ToMap()); err != nil {
		return fmt.Errorf("enqueue notification for %s: %w", event.ReportID, err)
	}
	return nil
}

func (p *EventProcessor) HandleNotifyCitizen(ctx context.Context, job *Job) error {
	payload, err := NotifyCitizenPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}
	if p.mailer == nil {
		return nil
	}

	u, err := p.users.GetByID(payload.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[JobQueue] User %d of %s no longer exists, skipping notification", payload.UserID, payload.ReportID)
			return nil
		}
		return err
	}
	if u.Email == "" || !u.IsActive() {
		log.Debugf("[JobQueue] No notification for user %d", u.ID)
		return nil
	}

	subject, body := mail.StatusChangedMessage(u.Name, payload.ReportID, payload.PreviousStatus, payload.Status)
	return p.mailer.SendMail(u.Email, subject, body)
}
