package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/ds124wfegd/calendar-reminders/config"
	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

const ChannelEmail = "email"

// mailSender is satisfied by *mail.Client.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type EmailSender struct {
	client mailSender
	from   string
	clock  clock.Clock
}

func NewEmailSender(cfg config.EmailConfig, clk clock.Clock) (*EmailSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return newEmailSender(client, from, clk), nil
}

func newEmailSender(client mailSender, from string, clk clock.Clock) *EmailSender {
	if clk == nil {
		clk = clock.New()
	}
	return &EmailSender{client: client, from: from, clock: clk}
}

// SendReminder mails the rendered reminder with an .ics attachment of the event.
func (s *EmailSender) SendReminder(ctx context.Context, event *entity.Event, msg *Message) error {
	if event.Owner == nil || event.Owner.Email == "" {
		return fmt.Errorf("email: %w", entity.ErrChannelNotApplicable)
	}

	m, err := s.buildMessage(event, msg)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"kind":     msg.Kind,
	}).Debug("Reminder email sent")
	return nil
}

func (s *EmailSender) buildMessage(event *entity.Event, msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(event.Owner.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	ics := BuildICS(event, s.from, s.clock.Now())
	m.AttachReader("event.ics", strings.NewReader(ics),
		mail.WithFileContentType(mail.ContentType("text/calendar; charset=utf-8; method=PUBLISH")))

	return m, nil
}
