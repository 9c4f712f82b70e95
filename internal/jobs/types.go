package jobs

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/hibiken/asynq"
	"github.com/oklog/ulid/v2"

	"github.com/you/reelscribe/internal/domain"
)

const (
	TaskTranscript = "request:transcript"
	TaskThumbnail  = "request:thumbnail"
)

// RequestPayload is the asynq payload for both task types.
type RequestPayload struct {
	RequestID       string `json:"request_id"`
	ChatID          int64  `json:"chat_id"`
	UserID          int64  `json:"user_id"`
	StatusMessageID int    `json:"status_message_id"` // message the worker edits in place
	URL             string `json:"url"`
	Action          string `json:"action"` // "transcript" or "thumbnail"
}

// NewRequestID returns a time-ordered id for logs and work area names.
func NewRequestID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// TaskName maps an action to its task type.
func TaskName(a domain.Action) string {
	if a == domain.ActionThumbnail {
		return TaskThumbnail
	}
	return TaskTranscript
}

// NewRequestTask builds the task for r.
func NewRequestTask(r domain.Request) (*asynq.Task, error) {
	b, err := json.Marshal(RequestPayload{
		RequestID:       r.ID,
		ChatID:          r.ChatID,
		UserID:          r.UserID,
		StatusMessageID: r.StatusMessageID,
		URL:             r.URL,
		Action:          string(r.Action),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskName(r.Action), b), nil
}

// ParseRequest decodes a task payload back into a Request.
func ParseRequest(t *asynq.Task) (domain.Request, error) {
	var p RequestPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return domain.Request{}, fmt.Errorf("decode payload: %w", err)
	}
	action, err := domain.ParseAction(p.Action)
	if err != nil {
		return domain.Request{}, err
	}
	if TaskName(action) != t.Type() {
		return domain.Request{}, fmt.Errorf("action %q does not match task %q", action, t.Type())
	}
	return domain.Request{
		ID:              p.RequestID,
		ChatID:          p.ChatID,
		UserID:          p.UserID,
		StatusMessageID: p.StatusMessageID,
		URL:             p.URL,
		Action:          action,
	}, nil
}
