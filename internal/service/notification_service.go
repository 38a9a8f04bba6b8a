package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/models"
	"github.com/noah-isme/acadchain-api/pkg/config"
	"github.com/noah-isme/acadchain-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type notificationMetrics interface {
	IncNotificationFailure()
}

// NotificationService is the fire-and-forget dispatcher for committed
// transitions. Enqueueing never blocks the caller: a full buffer drops the
// event with a warning, and handler failures are retried by the queue and
// never reach the transition result.
type NotificationService struct {
	queue      *jobs.Queue
	store      notificationStore
	metrics    notificationMetrics
	httpClient *http.Client
	webhookURL string
	logger     *zap.Logger
}

// NewNotificationService builds the dispatcher and its worker queue. Call
// Start before use and Stop on shutdown.
func NewNotificationService(store notificationStore, metrics notificationMetrics, cfg config.NotifyConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		store:      store,
		metrics:    metrics,
		httpClient: &http.Client{Timeout: cfg.WebhookTimeout},
		webhookURL: cfg.WebhookURL,
		logger:     logger,
	}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyTransition enqueues a committed transition for delivery. It never
// blocks and never returns an error; the transition result is already
// determined by the time this runs.
func (s *NotificationService) NotifyTransition(event models.TransitionEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	ok := s.queue.TryEnqueue(jobs.Job{
		ID:      uuid.New().String(),
		Type:    "transition",
		Payload: event,
	})
	if !ok {
		s.logger.Warn("notification dropped, queue full or stopped",
			zap.String("kind", event.Kind), zap.String("entity_id", event.EntityID))
		if s.metrics != nil {
			s.metrics.IncNotificationFailure()
		}
	}
}

// ListByUser returns a user's in-app notifications, newest first.
func (s *NotificationService) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	items, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.store.MarkRead(ctx, id, userID)
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.TransitionEvent)
	if !ok {
		s.logger.Error("unexpected notification payload type", zap.String("job_id", job.ID))
		return nil
	}

	var failed bool
	for _, recipient := range recipientsFor(event) {
		n := &models.Notification{
			ID:       uuid.New().String(),
			UserID:   recipient,
			Kind:     event.Kind,
			EntityID: event.EntityID,
			Message:  messageFor(event),
		}
		if err := s.store.Create(ctx, n); err != nil {
			s.logger.Warn("failed to persist notification",
				zap.String("user_id", recipient), zap.Error(err))
			failed = true
		}
	}

	if err := s.postWebhook(ctx, event); err != nil {
		s.logger.Warn("webhook delivery failed", zap.Error(err))
		failed = true
	}

	if failed {
		if s.metrics != nil {
			s.metrics.IncNotificationFailure()
		}
		return fmt.Errorf("notification delivery incomplete for %s %s", event.Kind, event.EntityID)
	}
	return nil
}

func (s *NotificationService) postWebhook(ctx context.Context, event models.TransitionEvent) error {
	if s.webhookURL == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// recipientsFor picks who gets the in-app message. Events carrying explicit
// recipients use those; otherwise the actor gets a receipt.
func recipientsFor(event models.TransitionEvent) []string {
	var out []string
	for _, r := range event.Recipients {
		if r != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 && event.ActorID != "" {
		out = append(out, event.ActorID)
	}
	return out
}

func messageFor(event models.TransitionEvent) string {
	if event.From != "" {
		return fmt.Sprintf("%s %s moved from %s to %s", event.Kind, event.EntityID, event.From, event.To)
	}
	return fmt.Sprintf("%s %s is now %s", event.Kind, event.EntityID, event.To)
}
