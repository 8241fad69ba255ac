package delivery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/ds124wfegd/calendar-reminders/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type memSubscriptions struct {
	mu      sync.Mutex
	subs    []*entity.PushSubscription
	deleted []string
}

func (m *memSubscriptions) GetByUserID(_ context.Context, userID string) ([]*entity.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.PushSubscription
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSubscriptions) DeleteByEndpoint(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, endpoint)
	return nil
}

func respond(status int) (*http.Response, error) {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func TestSendPush(t *testing.T) {
	subs := &memSubscriptions{subs: []*entity.PushSubscription{
		{ID: "s1", UserID: "user-1", Endpoint: "https://push.example/ok"},
		{ID: "s2", UserID: "user-1", Endpoint: "https://push.example/gone"},
		{ID: "s3", UserID: "user-1", Endpoint: "https://push.example/error"},
		{ID: "s4", UserID: "user-2", Endpoint: "https://push.example/other"},
	}}

	sender := &PushSender{subs: subs}
	sender.send = func(_ context.Context, payload []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
		assert.Contains(t, string(payload), `"tag":"calendar-notification"`)
		switch {
		case strings.HasSuffix(sub.Endpoint, "/gone"):
			return respond(http.StatusGone)
		case strings.HasSuffix(sub.Endpoint, "/error"):
			return nil, errors.New("dial tcp: timeout")
		}
		return respond(http.StatusCreated)
	}

	result, err := sender.SendPush(context.Background(), "user-1", NewPushPayload("Hi", "there", nil))
	require.NoError(t, err)

	assert.Equal(t, &entity.PushResult{Sent: 1, Failed: 2, Total: 3}, result)
	assert.Equal(t, []string{"https://push.example/gone"}, subs.deleted)
}

func TestSendPush_NoSubscriptions(t *testing.T) {
	sender := &PushSender{subs: &memSubscriptions{}}

	_, err := sender.SendPush(context.Background(), "user-1", NewPushPayload("Hi", "", nil))
	assert.ErrorIs(t, err, entity.ErrNoSubscriptions)

	err = sender.SendReminder(context.Background(), testEvent(), &Message{Kind: entity.ReminderHourBefore})
	assert.ErrorIs(t, err, entity.ErrChannelNotApplicable)
}

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramSender(t *testing.T) {
	bot := &fakeBot{}
	sender := &TelegramSender{bot: bot}

	msg, err := Render(testEvent(), entity.ReminderFiveMinBefore, nil)
	require.NoError(t, err)

	require.NoError(t, sender.SendReminder(context.Background(), testEvent(), msg))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, bot.sent[0].ParseMode)
	assert.Contains(t, bot.sent[0].Text, "<b>Design review</b> starts in 5 minutes")

	noTelegram := testEvent()
	noTelegram.Owner.TelegramID = ""
	assert.ErrorIs(t, sender.SendReminder(context.Background(), noTelegram, msg), entity.ErrChannelNotApplicable)
}

// stuckBot never answers until released.
type stuckBot struct {
	release chan struct{}
}

func (b *stuckBot) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-b.release
	return tgbotapi.Message{}, nil
}

func TestTelegramSender_DeliveryTimeout(t *testing.T) {
	bot := &stuckBot{release: make(chan struct{})}
	defer close(bot.release)

	fanout := NewFanout(nil)
	fanout.Register(ChannelTelegram, &TelegramSender{bot: bot})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	channels, err := fanout.Notify(ctx, testEvent(), entity.ReminderFiveMinBefore)

	assert.Less(t, time.Since(started), time.Second)
	assert.ErrorIs(t, err, entity.ErrDeliveryFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, channels)
}

type fakeMailClient struct {
	msgs []*mail.Msg
	err  error
}

func (c *fakeMailClient) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, messages...)
	return nil
}

func TestEmailSender(t *testing.T) {
	client := &fakeMailClient{}
	sender := newEmailSender(client, "calendar@example.com", nil)

	msg, err := Render(testEvent(), entity.ReminderDayBefore, nil)
	require.NoError(t, err)

	require.NoError(t, sender.SendReminder(context.Background(), testEvent(), msg))
	require.Len(t, client.msgs, 1)
	assert.Equal(t, []string{"<owner@example.com>"}, client.msgs[0].GetToString())
	assert.Equal(t, []string{msg.Subject}, client.msgs[0].GetGenHeader(mail.HeaderSubject))

	client.err = errors.New("550 mailbox unavailable")
	assert.Error(t, sender.SendReminder(context.Background(), testEvent(), msg))

	noEmail := testEvent()
	noEmail.Owner = nil
	assert.ErrorIs(t, sender.SendReminder(context.Background(), noEmail, msg), entity.ErrChannelNotApplicable)
}

type stubChannel struct {
	err   error
	delay time.Duration
	calls int
	mu    sync.Mutex
}

func (c *stubChannel) SendReminder(context.Context, *entity.Event, *Message) error {
	time.Sleep(c.delay)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func TestFanout_LateAcceptanceFails(t *testing.T) {
	fanout := NewFanout(nil)
	fanout.Register(ChannelEmail, &stubChannel{delay: 200 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	channels, err := fanout.Notify(ctx, testEvent(), entity.ReminderHourBefore)
	assert.ErrorIs(t, err, entity.ErrDeliveryFailed)
	assert.Empty(t, channels)
}

func TestFanout(t *testing.T) {
	notApplicable := errors.Join(entity.ErrChannelNotApplicable)
	broken := errors.New("smtp down")

	tests := []struct {
		name          string
		email, push   error
		wantDelivered []string
		wantErr       bool
	}{
		{name: "all channels deliver", wantDelivered: []string{ChannelEmail, ChannelPush}},
		{name: "push not applicable", push: notApplicable, wantDelivered: []string{ChannelEmail}},
		{name: "partial failure still delivered", email: broken, wantDelivered: []string{ChannelPush}},
		{name: "every channel fails", email: broken, push: broken, wantErr: true},
		{name: "nothing applicable", email: notApplicable, push: notApplicable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &stubChannel{err: tt.email}
			push := &stubChannel{err: tt.push}

			fanout := NewFanout(nil)
			fanout.Register(ChannelEmail, email)
			fanout.Register(ChannelPush, push)

			delivered, err := fanout.Notify(context.Background(), testEvent(), entity.ReminderHourBefore)
			if tt.wantErr {
				assert.ErrorIs(t, err, entity.ErrDeliveryFailed)
				assert.Empty(t, delivered)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantDelivered, delivered)
			}
			// one attempt per channel, never retried
			assert.Equal(t, 1, email.calls)
			assert.Equal(t, 1, push.calls)
		})
	}
}
