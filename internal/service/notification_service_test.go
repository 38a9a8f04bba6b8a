package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/models"
	"github.com/noah-isme/acadchain-api/pkg/config"
)

type stubNotificationStore struct {
	mu      sync.Mutex
	created []*models.Notification
	err     error
}

func (s *stubNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, n)
	return nil
}

func (s *stubNotificationStore) ListByUser(context.Context, string, int) ([]models.Notification, error) {
	return nil, nil
}

func (s *stubNotificationStore) MarkRead(context.Context, string, string) error {
	return nil
}

func (s *stubNotificationStore) all() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Notification, len(s.created))
	copy(out, s.created)
	return out
}

type countingMetrics struct {
	mu       sync.Mutex
	failures int
}

func (m *countingMetrics) IncNotificationFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *countingMetrics) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNotificationServiceDeliversInAppAndWebhook(t *testing.T) {
	var mu sync.Mutex
	var received []models.TransitionEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var event models.TransitionEvent
		require.NoError(t, json.Unmarshal(body, &event))
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store := &stubNotificationStore{}
	svc := NewNotificationService(store, &countingMetrics{}, config.NotifyConfig{
		WebhookURL:     server.URL,
		WebhookTimeout: time.Second,
		Workers:        1,
		BufferSize:     8,
	}, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifyTransition(models.TransitionEvent{
		Kind:       "record",
		EntityID:   "rec-1",
		From:       "SUBMITTED",
		To:         "FACULTY_APPROVED",
		ActorID:    "user-1",
		Recipients: []string{"stu-1", "fac-1"},
	})

	waitFor(t, func() bool { return len(store.all()) == 2 })
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	notifications := store.all()
	assert.Equal(t, "record", notifications[0].Kind)
	assert.Contains(t, notifications[0].Message, "FACULTY_APPROVED")
}

func TestNotificationServiceDefaultsToActorReceipt(t *testing.T) {
	store := &stubNotificationStore{}
	svc := NewNotificationService(store, &countingMetrics{}, config.NotifyConfig{
		Workers:    1,
		BufferSize: 8,
	}, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifyTransition(models.TransitionEvent{
		Kind:     "consent",
		EntityID: "con-1",
		To:       "REVOKED",
		ActorID:  "user-1",
	})

	waitFor(t, func() bool { return len(store.all()) == 1 })
	assert.Equal(t, "user-1", store.all()[0].UserID)
}

func TestNotificationServiceDropsWhenStopped(t *testing.T) {
	metrics := &countingMetrics{}
	svc := NewNotificationService(&stubNotificationStore{}, metrics, config.NotifyConfig{
		Workers:    1,
		BufferSize: 1,
	}, zap.NewNop())

	// Never started: enqueue must not block or panic.
	svc.NotifyTransition(models.TransitionEvent{Kind: "record", EntityID: "rec-1"})

	assert.Equal(t, 1, metrics.count())
}

func TestNotificationServiceCountsDeliveryFailures(t *testing.T) {
	store := &stubNotificationStore{err: assert.AnError}
	metrics := &countingMetrics{}
	svc := NewNotificationService(store, metrics, config.NotifyConfig{
		Workers:    1,
		BufferSize: 8,
		MaxRetries: 1,
	}, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifyTransition(models.TransitionEvent{Kind: "record", EntityID: "rec-1", ActorID: "user-1"})

	waitFor(t, func() bool { return metrics.count() >= 1 })
}
