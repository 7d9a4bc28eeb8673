package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
)

func TestHTTPCallbackSenderDelivers(t *testing.T) {
	var received CallbackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewHTTPCallbackSender(5*time.Second, nil)

	result := &entity.FinalResult{
		TaskID:       uuid.New(),
		QualityScore: 82.5,
		Summary: entity.ResultSummary{
			TotalItems:         3,
			RisksIdentified:    4,
			OpportunitiesFound: 2,
			ProcessingSeconds:  12.5,
		},
	}
	payload := CompletionPayload(result, time.Now())
	require.NoError(t, sender.Send(context.Background(), srv.URL, payload))

	assert.Equal(t, result.TaskID, received.TaskID)
	assert.Equal(t, constants.TaskCompleted, received.Status)
	assert.Equal(t, "1.0", received.WebhookVersion)
	require.NotNil(t, received.Result)
	assert.InDelta(t, 82.5, received.Result.QualityScore, 1e-9)
	assert.Equal(t, 4, received.Result.RisksCount)
}

func TestHTTPCallbackSenderNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender := NewHTTPCallbackSender(5*time.Second, nil)
	err := sender.Send(context.Background(), srv.URL, CallbackPayload{TaskID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrCallback)
}

func TestFailurePayload(t *testing.T) {
	taskID := uuid.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	p := FailurePayload(taskID, common.ErrAIUnavailable, now)
	assert.Equal(t, constants.TaskFailed, p.Status)
	require.NotNil(t, p.Error)
	assert.Contains(t, p.Error.Message, "ai analysis unavailable")
	assert.Nil(t, p.Result)
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink := NewChannelSink(1)

	sink.Report(ProgressUpdate{Percent: 7})
	sink.Report(ProgressUpdate{Percent: 14}) // dropped, buffer full

	select {
	case u := <-sink.C:
		assert.Equal(t, 7, u.Percent)
	default:
		t.Fatal("expected one buffered update")
	}
	select {
	case <-sink.C:
		t.Fatal("second update should have been dropped")
	default:
	}
}
