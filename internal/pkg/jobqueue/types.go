package jobqueue

import (
	"encoding/json"
	"time"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/complaint"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeComplaintEvent JobType = "complaint_event"
	JobTypeNotifyCitizen  JobType = "notify_citizen"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// EventToMap converts a lifecycle event into a job payload
func EventToMap(event complaint.Event) (map[string]interface{}, error) {
	return toMap(event)
}

// EventFromMap restores a lifecycle event from a job payload
func EventFromMap(data map[string]interface{}) (*complaint.Event, error) {
	var event complaint.Event
	if err := fromMap(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// NotifyCitizenPayload contains the payload for status change notifications
type NotifyCitizenPayload struct {
	UserID         uint   `json:"user_id"`
	ReportID       string `json:"report_id"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
}

// ToMap converts the payload to a map for storage
func (p NotifyCitizenPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         p.UserID,
		"report_id":       p.ReportID,
		"previous_status": p.PreviousStatus,
		"status":          p.Status,
	}
}

func NotifyCitizenPayloadFromMap(data map[string]interface{}) (*NotifyCitizenPayload, error) {
	var payload NotifyCitizenPayload
	if err := fromMap(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	err = json.Unmarshal(jsonData, &m)
	return m, err
}

func fromMap(data map[string]interface{}, dst interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, dst)
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
