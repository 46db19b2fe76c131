package mailer

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("mail not configured")
	ErrQueueClosed   = errors.New("mail queue closed")
)

// Sender delivers a single message synchronously.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Checker is implemented by senders that can tell before hand-off whether
// they have what they need to deliver.
type Checker interface {
	Configured() error
}

// configured reports ErrNotConfigured for a nil sender or a Checker that says so.
func configured(s Sender) error {
	if s == nil {
		return ErrNotConfigured
	}
	if c, ok := s.(Checker); ok {
		return c.Configured()
	}
	return nil
}

// Queue accepts rendered messages for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, job EmailJob) error
}
