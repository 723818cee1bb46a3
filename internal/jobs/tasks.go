package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/strike-bot/internal/betting"
)

const (
	TaskTypeSubmissionSend = "submission:send"
	TaskTypeSessionEvict   = "session:evict"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues is the weighted queue set served by the worker.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

const (
	submissionMaxRetry = 8
	submissionTimeout  = 30 * time.Second
)

// SubmissionPayload is the task body for submission:send.
type SubmissionPayload struct {
	Submission betting.Submission `json:"submission"`
	QueuedAt   time.Time          `json:"queued_at"`
}

func NewSubmissionTask(sub *betting.Submission, now time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(SubmissionPayload{Submission: *sub, QueuedAt: now.UTC()})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeSubmissionSend, payload,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(submissionMaxRetry),
		asynq.Timeout(submissionTimeout),
	), nil
}

func NewSessionEvictTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionEvict, nil, asynq.Queue(QueueLow), asynq.MaxRetry(0))
}
