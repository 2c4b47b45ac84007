package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicing/internal/clock"
	"invoicing/internal/metrics"
	"invoicing/internal/model"
	"invoicing/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event types pushed to websocket subscribers.
const (
	EventClientCreated       = "client.created"
	EventEstimateCreated     = "estimate.created"
	EventEstimateUpdated     = "estimate.updated"
	EventEstimateConverted   = "estimate.converted"
	EventInvoiceCreated      = "invoice.created"
	EventInvoiceDeleted      = "invoice.deleted"
	EventInvoiceStatusChange = "invoice.status_changed"
	EventPaymentRecorded     = "payment.recorded"
	EventPaymentDeleted      = "payment.deleted"
)

// EventPublisher broadcasts domain events. *websocket.Hub satisfies it.
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

// Deps carries the cross-cutting collaborators every service needs.
// Zero fields fall back to the system clock, a no-op logger and no events.
type Deps struct {
	Clock   clock.Clock
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Events  EventPublisher
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = noopPublisher{}
	}
	return d
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.InvalidInput("invalid %s %q", field, raw)
	}
	return id, nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// lookupErr turns a missing row into NotFound and wraps everything else.
func lookupErr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s %s not found", entity, id)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}

// parseDueDate accepts YYYY-MM-DD or RFC3339 and truncates to the UTC day.
// An empty string means no due date.
func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			day := model.DueDay(t)
			return &day, nil
		}
	}
	return nil, apperror.InvalidInput("invalid due_date %q, expected YYYY-MM-DD", raw)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format("2006-01-02")
	return &s
}
