package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Discard drops every job. It stands in when sending is disabled.
type Discard struct {
	Logger *logrus.Logger
}

func (d Discard) Enqueue(_ context.Context, job EmailJob) error {
	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{"to": job.To, "subject": job.Subject}).Info("mail sending disabled, job dropped")
	}
	return nil
}

// Publisher is the part of a broker client the RabbitQueue needs.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// RabbitQueue hands jobs to a broker; cmd/email_worker delivers them.
// transport is the sender the worker is configured with; it is only checked, never called.
type RabbitQueue struct {
	pub       Publisher
	transport Sender
}

func NewRabbitQueue(pub Publisher, transport Sender) *RabbitQueue {
	return &RabbitQueue{pub: pub, transport: transport}
}

func (q *RabbitQueue) Enqueue(ctx context.Context, job EmailJob) error {
	if err := configured(q.transport); err != nil {
		return err
	}
	return q.pub.PublishJSON(ctx, job)
}
