package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/ds124wfegd/calendar-reminders/config"
	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
)

const ChannelPush = "push"

type SubscriptionStore interface {
	GetByUserID(ctx context.Context, userID string) ([]*entity.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type sendFunc func(ctx context.Context, payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

type PushSender struct {
	subs    SubscriptionStore
	options webpush.Options
	send    sendFunc
	appURL  string
}

func NewPushSender(subs SubscriptionStore, cfg config.PushConfig, appURL string) *PushSender {
	return &PushSender{
		subs:   subs,
		appURL: strings.TrimRight(appURL, "/"),
		options: webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             int(cfg.TTL.Seconds()),
			Urgency:         webpush.UrgencyHigh,
		},
		send: webpush.SendNotificationWithContext,
	}
}

// SendPush delivers the payload to every subscription of the user.
// Subscriptions the push service reports as gone (404/410) are removed.
func (p *PushSender) SendPush(ctx context.Context, userID string, payload PushPayload) (*entity.PushResult, error) {
	subs, err := p.subs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil, entity.ErrNoSubscriptions
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push payload: %w", err)
	}

	result := &entity.PushResult{Total: len(subs)}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, sub := range subs {
		sub := sub
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := p.sendOne(ctx, body, sub)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				logrus.WithField("user_id", userID).Warnf("Push to subscription %s failed: %v", sub.ID, err)
				return
			}
			result.Sent++
		}()
	}
	wg.Wait()

	return result, nil
}

var errSubscriptionGone = errors.New("push subscription expired")

func (p *PushSender) sendOne(ctx context.Context, body []byte, sub *entity.PushSubscription) error {
	opts := p.options
	resp, err := p.send(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if err := p.subs.DeleteByEndpoint(context.WithoutCancel(ctx), sub.Endpoint); err != nil {
			logrus.Warnf("Failed to delete expired push subscription %s: %v", sub.ID, err)
		}
		return errSubscriptionGone
	case resp.StatusCode >= 300:
		return fmt.Errorf("push service responded %s", resp.Status)
	}
	return nil
}

// SendReminder is the Fanout entry point for the push channel.
func (p *PushSender) SendReminder(ctx context.Context, event *entity.Event, msg *Message) error {
	payload := NewPushPayload(msg.Subject, pushBody(msg), map[string]any{
		"event_id": event.ID,
		"kind":     msg.Kind,
		"url":      p.appURL + "/events/" + event.ID,
	})

	result, err := p.SendPush(ctx, event.UserID, payload)
	if errors.Is(err, entity.ErrNoSubscriptions) {
		return fmt.Errorf("push: %w", entity.ErrChannelNotApplicable)
	}
	if err != nil {
		return err
	}
	if result.Sent == 0 {
		return fmt.Errorf("push failed for all %d subscriptions", result.Total)
	}
	return nil
}
