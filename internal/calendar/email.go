package calendar

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"casetrack-backend/internal/components/assert"
	"casetrack-backend/internal/components/chrono"
	"casetrack-backend/internal/components/telemetry"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("casetrack/internal/calendar")

const uidDomain = "casetrack"

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type EmailOptions struct {
	Smtp SmtpConfig
	// To receives every invitation.
	To []string
}

// Sender delivers a composed message.
type Sender func(mail *email.Email) error

// Email sends hearing events as iCalendar invitations, event ids are uuids
// generated locally.
type Email struct {
	options EmailOptions
	send    Sender
	time    chrono.TimeAPI
	tel     telemetry.API
}

// NewEmail returns a calendar that sends through options.Smtp, send overrides the
// delivery when not nil.
func NewEmail(options EmailOptions, send Sender, timeAPI chrono.TimeAPI, tel telemetry.API) Email {
	assert.NotNil(timeAPI)
	assert.NotNil(tel)
	c := Email{
		options: options,
		send:    send,
		time:    timeAPI,
		tel:     telemetry.NewScopedAPI("calendar", tel),
	}
	if c.send == nil {
		c.send = c.smtpSend
	}
	return c
}

func (c Email) smtpSend(mail *email.Email) error {
	addr := fmt.Sprintf("%s:%d", c.options.Smtp.Server, c.options.Smtp.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", c.options.Smtp.EmailAddress, c.options.Smtp.Password, c.options.Smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		return mail.Send(addr, nil)
	}
	return err
}

func (c Email) deliver(ctx context.Context, subject string, inv invite) error {
	_, span := tracer.Start(ctx, "calendar.deliver", trace.WithAttributes(
		attribute.String("calendar.method", string(inv.method)),
		attribute.String("calendar.uid", inv.uid),
	))
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("casetrack <%s>", c.options.Smtp.EmailAddress)
	mail.To = c.options.To
	mail.Subject = subject
	mail.Text = []byte(description(inv.event))

	_, err := mail.Attach(
		bytes.NewReader(inv.render()),
		"invite.ics",
		fmt.Sprintf("text/calendar; charset=utf-8; method=%s", inv.method),
	)
	if err == nil {
		err = c.send(mail)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send invitation")
		return fmt.Errorf("send calendar invitation: %w", err)
	}
	c.tel.ReportDebug("sent calendar invitation", inv.method, inv.uid)
	return nil
}

func (c Email) invite(method ics.Method, eventID string, event Event) invite {
	now := c.time.Now()
	return invite{
		method:   method,
		uid:      fmt.Sprintf("%s@%s", eventID, uidDomain),
		sequence: now.Unix(),
		stamp:    now,
		event:    event,
	}
}

func (c Email) Create(ctx context.Context, event Event) (string, error) {
	eventID := uuid.New().String()
	err := c.deliver(ctx, summary(event.CaseNumber), c.invite(methodRequest, eventID, event))
	if err != nil {
		return "", err
	}
	return eventID, nil
}

func (c Email) Update(ctx context.Context, eventID string, event Event) error {
	return c.deliver(
		ctx,
		fmt.Sprintf("Rescheduled: %s", summary(event.CaseNumber)),
		c.invite(methodRequest, eventID, event),
	)
}

func (c Email) Delete(ctx context.Context, eventID string) error {
	inv := c.invite(methodCancel, eventID, Event{})
	inv.event.Date.Time = c.time.Now()
	return c.deliver(ctx, "Cancelled: Court Hearing", inv)
}
