package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotel_ops_bot/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_Deliver(t *testing.T) {
	var (
		got  payload
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := NewChannel(srv.URL+"/hooks/ops", "secret")
	err := ch.Deliver(context.Background(), 100, notification.Message{
		Title:   "Work item escalated",
		Body:    "Fix the lift is 5h past due.",
		Actions: []notification.Action{{Label: "History", Data: "wi_hist_repair_1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, notification.ChannelWebhook, ch.Name())
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, int64(100), got.RecipientID)
	assert.Equal(t, "Work item escalated", got.Title)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, "wi_hist_repair_1", got.Actions[0].Data)
}

func TestChannel_DeliverErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewChannel(srv.URL, "").Deliver(context.Background(), 100, notification.Message{Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, 1, calls, "no retries")
}

func TestChannel_DeliverUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewChannel(url, "").Deliver(context.Background(), 100, notification.Message{Body: "hi"})
	assert.Error(t, err)
}
