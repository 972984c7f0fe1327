// Package notify holds Notifier implementations that do not deliver mail:
// a log writer for development and an in-memory outbox for tests.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lborres/reel/core"
)

// Kind names the message a code was sent for
type Kind string

const (
	KindVerification Kind = "verification"
	KindReset        Kind = "reset"
)

var (
	_ core.Notifier = (*Logger)(nil)
	_ core.Notifier = (*Outbox)(nil)
)

// Logger writes each code to a structured log line
type Logger struct {
	log *slog.Logger
}

func NewLogger(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log.With("component", "notifier")}
}

func (l *Logger) SendVerificationCode(ctx context.Context, email, code string) error {
	l.log.InfoContext(ctx, "verification code issued",
		"email", email,
		"path", "/auth/verify/"+code,
	)
	return nil
}

func (l *Logger) SendResetCode(ctx context.Context, email, code string) error {
	l.log.InfoContext(ctx, "password reset code issued",
		"email", email,
		"path", "/auth/reset/"+code,
	)
	return nil
}

// Message is one recorded dispatch
type Message struct {
	Kind  Kind
	Email string
	Code  string
}

// Outbox records dispatches in memory. Fail makes every send return the
// given error.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	fail     error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) SendVerificationCode(ctx context.Context, email, code string) error {
	return o.record(ctx, Message{Kind: KindVerification, Email: email, Code: code})
}

func (o *Outbox) SendResetCode(ctx context.Context, email, code string) error {
	return o.record(ctx, Message{Kind: KindReset, Email: email, Code: code})
}

func (o *Outbox) record(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fail != nil {
		return o.fail
	}
	o.messages = append(o.messages, m)
	return nil
}

func (o *Outbox) Fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail = err
}

func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.messages...)
}

// Last returns the most recent message of kind sent to email
func (o *Outbox) Last(kind Kind, email string) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := len(o.messages) - 1; i >= 0; i-- {
		m := o.messages[i]
		if m.Kind == kind && m.Email == email {
			return m, true
		}
	}
	return Message{}, false
}

func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = nil
	o.fail = nil
}
