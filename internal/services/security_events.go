package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
)

// alertingEvents raise an SMS to the on-call number
var alertingEvents = map[domain.SecurityEventType]bool{
	domain.AccountLockedEvent: true,
	domain.SessionHijackEvent: true,
}

// SecurityEventRecorder writes every event to the structured log and the
// durable store, and raises alerts for the events that need a human.
// Record never fails: store and alert errors are logged and swallowed.
type SecurityEventRecorder struct {
	store    domain.SecurityEventLog
	notifier domain.NotificationService
	alertTo  string
	logger   *log.Entry
}

// NewSecurityEventRecorder creates a recorder. notifier may be nil.
func NewSecurityEventRecorder(store domain.SecurityEventLog, notifier domain.NotificationService, alertTo string) *SecurityEventRecorder {
	return &SecurityEventRecorder{
		store:    store,
		notifier: notifier,
		alertTo:  alertTo,
		logger:   log.WithField("component", "security"),
	}
}

// Record implements domain.SecurityEventLog
func (r *SecurityEventRecorder) Record(ctx context.Context, event *domain.SecurityEvent) error {
	fields := log.Fields{
		"event_type": event.EventType,
		"severity":   event.Severity,
		"ip":         event.IPAddress,
	}
	if event.UserID != nil {
		fields["user_id"] = *event.UserID
	}
	entry := r.logger.WithFields(fields)
	switch event.Severity {
	case domain.SeverityCritical:
		entry.Error(event.Description)
	case domain.SeverityWarning:
		entry.Warn(event.Description)
	default:
		entry.Info(event.Description)
	}

	if err := r.store.Record(ctx, event); err != nil {
		entry.WithError(err).Error("failed to persist security event")
	}

	if alertingEvents[event.EventType] && r.notifier != nil && r.alertTo != "" {
		msg := fmt.Sprintf("fueltrack security alert: %s - %s", event.EventType, event.Description)
		if event.IPAddress != "" {
			msg += " (ip " + event.IPAddress + ")"
		}
		if err := r.notifier.SendSMS(r.alertTo, msg); err != nil {
			entry.WithError(err).Error("failed to send security alert")
		}
	}
	return nil
}

// List implements domain.SecurityEventLog
func (r *SecurityEventRecorder) List(ctx context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, int64, error) {
	return r.store.List(ctx, filter)
}

// EventTypes implements domain.SecurityEventLog
func (r *SecurityEventRecorder) EventTypes(ctx context.Context) ([]domain.SecurityEventType, error) {
	return r.store.EventTypes(ctx)
}

// Count implements domain.SecurityEventLog
func (r *SecurityEventRecorder) Count(ctx context.Context, since time.Time) (int64, error) {
	return r.store.Count(ctx, since)
}

// DeleteOlderThan implements domain.SecurityEventLog
func (r *SecurityEventRecorder) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return r.store.DeleteOlderThan(ctx, before)
}

var _ domain.SecurityEventLog = (*SecurityEventRecorder)(nil)
