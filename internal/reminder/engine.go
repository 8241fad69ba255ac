package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

const (
	auditTimeout = 5 * time.Second
	markTimeout  = 5 * time.Second
)

type EngineConfig struct {
	CatchUpWindow   time.Duration
	DeliveryTimeout time.Duration
	ClaimTTL        time.Duration
}

// Engine runs the claim, check, send, mark sequence for one reminder.
type Engine struct {
	store    Store
	claimer  Claimer
	notifier Notifier
	audit    AuditPublisher
	clock    clock.Clock
	cfg      EngineConfig
}

// NewEngine builds an Engine. A nil claimer falls back to an in-process one,
// a nil audit publisher drops audit records.
func NewEngine(store Store, claimer Claimer, notifier Notifier, audit AuditPublisher, clk clock.Clock, cfg EngineConfig) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if claimer == nil {
		claimer = NewLocalClaimer(clk)
	}
	if audit == nil {
		audit = noopAudit{}
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 15 * time.Second
	}
	// a claim must outlive the delivery it protects
	if cfg.ClaimTTL < 2*cfg.DeliveryTimeout {
		cfg.ClaimTTL = 2 * cfg.DeliveryTimeout
	}

	return &Engine{
		store:    store,
		claimer:  claimer,
		notifier: notifier,
		audit:    audit,
		clock:    clk,
		cfg:      cfg,
	}
}

// DispatchIfDue sends the reminder of kind for eventID if it is due and not yet
// sent. It makes at most one delivery attempt and never retries; a failed
// reminder stays pending for the next sweep.
func (e *Engine) DispatchIfDue(ctx context.Context, eventID string, kind entity.ReminderKind) entity.DispatchOutcome {
	log := logrus.WithFields(logrus.Fields{
		"event_id": eventID,
		"kind":     kind,
	})

	token, claimed, err := e.claimer.Claim(ctx, eventID, kind, e.cfg.ClaimTTL)
	if err != nil {
		// без claim возможен дубль, но не потеря
		log.Warnf("Reminder claim unavailable, dispatching unclaimed: %v", err)
	} else if !claimed {
		log.Debug("Reminder is being dispatched elsewhere")
		return entity.OutcomeSkipped
	}

	keepClaim := false
	defer func() {
		if token == "" || keepClaim {
			return
		}
		if err := e.claimer.Release(context.WithoutCancel(ctx), eventID, kind, token); err != nil {
			log.Warnf("Failed to release reminder claim: %v", err)
		}
	}()

	// the state is always re-read; the caller's copy may be stale
	event, err := e.store.GetByID(ctx, eventID)
	if errors.Is(err, entity.ErrEventNotFound) {
		log.Debug("Event no longer exists, reminder skipped")
		return entity.OutcomeSkipped
	}
	if err != nil {
		log.WithError(err).Warn("Reminder skipped until next sweep")
		return entity.OutcomeSkipped
	}

	if event.Reminders.IsSent(kind) {
		log.Debug("Reminder already sent")
		return entity.OutcomeSkipped
	}

	now := e.clock.Now()
	if !kind.Due(event.StartTime, now, e.cfg.CatchUpWindow) {
		log.WithField("start_time", event.StartTime).Debug("Reminder not due, stale arm skipped")
		return entity.OutcomeSkipped
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.DeliveryTimeout)
	channels, err := e.notifier.Notify(sendCtx, event, kind)
	cancel()

	if err != nil {
		log.WithError(err).Error("Reminder delivery failed")
		e.publish(ctx, event, kind, entity.OutcomeFailed, false, channels, err)
		return entity.OutcomeFailed
	}

	// the send already happened, the mark must not be lost to a cancelled caller
	markCtx, markCancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	marked, err := e.store.MarkReminderSent(markCtx, eventID, kind, event.StartTime)
	markCancel()
	switch {
	case err != nil:
		// the claim expires on its own; a later sweep may deliver again
		keepClaim = true
		log.WithError(err).Warn("Reminder sent but unconfirmed")
	case !marked:
		log.Warn("Reminder sent but state changed concurrently")
	default:
		log.WithField("channels", channels).Info("Reminder sent")
	}

	e.publish(ctx, event, kind, entity.OutcomeSent, err == nil && marked, channels, nil)
	return entity.OutcomeSent
}

func (e *Engine) publish(ctx context.Context, event *entity.Event, kind entity.ReminderKind,
	outcome entity.DispatchOutcome, confirmed bool, channels []string, sendErr error) {

	audit := &entity.ReminderAudit{
		EventID:     event.ID,
		UserID:      event.UserID,
		Kind:        kind,
		Outcome:     outcome,
		Confirmed:   confirmed,
		Channels:    channels,
		StartTime:   event.StartTime,
		AttemptedAt: e.clock.Now(),
	}
	if sendErr != nil {
		audit.Error = sendErr.Error()
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := e.audit.Publish(auditCtx, audit); err != nil {
		logrus.WithField("event_id", event.ID).Warnf("Failed to publish reminder audit: %v", err)
	}
}
