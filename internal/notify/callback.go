// Package notify delivers run outcomes to interested parties: webhook
// callbacks to the submitter and progress reporting for observers.
// Nothing in this package is ever allowed to fail a run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
)

// CallbackPayload is the webhook body sent on completion or failure.
type CallbackPayload struct {
	TaskID         uuid.UUID            `json:"task_id"`
	Status         constants.TaskStatus `json:"status"`
	Timestamp      time.Time            `json:"timestamp"`
	WebhookVersion string               `json:"webhook_version"`
	Result         *CallbackResult      `json:"result,omitempty"`
	Error          *CallbackError       `json:"error,omitempty"`
}

type CallbackResult struct {
	QualityScore       float64 `json:"quality_score"`
	TotalItems         int     `json:"total_items"`
	RisksCount         int     `json:"risks_count"`
	OpportunitiesCount int     `json:"opportunities_count"`
	ProcessingSeconds  float64 `json:"processing_time"`
}

type CallbackError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CallbackSender delivers the terminal webhook for a run.
type CallbackSender interface {
	Send(ctx context.Context, url string, payload CallbackPayload) error
}

// HTTPCallbackSender posts the payload as JSON. A non-200 response is
// an error so the notification stage can record a warning, but the
// pipeline result stands regardless.
type HTTPCallbackSender struct {
	client *http.Client
	log    *slog.Logger
}

func NewHTTPCallbackSender(timeout time.Duration, log *slog.Logger) *HTTPCallbackSender {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPCallbackSender{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

func (s *HTTPCallbackSender) Send(ctx context.Context, url string, payload CallbackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", common.ErrCallback, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", common.ErrCallback, err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.log.Info("callback.sending", "url", url, "task_id", payload.TaskID, "status", payload.Status)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrCallback, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", common.ErrCallback, resp.StatusCode)
	}

	s.log.Info("callback.delivered", "url", url, "task_id", payload.TaskID)
	return nil
}

// CompletionPayload builds the webhook body for a finished run.
func CompletionPayload(result *entity.FinalResult, now time.Time) CallbackPayload {
	return CallbackPayload{
		TaskID:         result.TaskID,
		Status:         constants.TaskCompleted,
		Timestamp:      now.UTC(),
		WebhookVersion: "1.0",
		Result: &CallbackResult{
			QualityScore:       result.QualityScore,
			TotalItems:         result.Summary.TotalItems,
			RisksCount:         result.Summary.RisksIdentified,
			OpportunitiesCount: result.Summary.OpportunitiesFound,
			ProcessingSeconds:  result.Summary.ProcessingSeconds,
		},
	}
}

// FailurePayload builds the webhook body for a failed run.
func FailurePayload(taskID uuid.UUID, cause error, now time.Time) CallbackPayload {
	return CallbackPayload{
		TaskID:         taskID,
		Status:         constants.TaskFailed,
		Timestamp:      now.UTC(),
		WebhookVersion: "1.0",
		Error: &CallbackError{
			Message:   cause.Error(),
			Timestamp: now.UTC(),
		},
	}
}
