package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	tpl "github.com/oksasatya/go-book-tracker/pkg/mailer/templates"
)

const testSubjectPrefix = "TEST EMAIL: "

type NotifierConfig struct {
	AppName    string
	BaseURL    string
	ConfirmTTL time.Duration
	ResetTTL   time.Duration
}

// Notifier renders account emails and hands them to a Queue.
// Render and configuration errors are returned; delivery errors never are.
type Notifier struct {
	queue Queue
	cfg   NotifierConfig
}

func NewNotifier(queue Queue, cfg NotifierConfig) *Notifier {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Notifier{queue: queue, cfg: cfg}
}

func (n *Notifier) DispatchConfirmation(ctx context.Context, r Recipient, token string) error {
	return n.dispatch(ctx, r, tpl.ConfirmEmail, "/confirm/", token, n.cfg.ConfirmTTL, false)
}

func (n *Notifier) DispatchReset(ctx context.Context, r Recipient, token string) error {
	return n.dispatch(ctx, r, tpl.ResetPassword, "/reset-password/", token, n.cfg.ResetTTL, false)
}

// DispatchTest sends a labelled confirmation email used to check mail delivery.
func (n *Notifier) DispatchTest(ctx context.Context, r Recipient, token string) error {
	return n.dispatch(ctx, r, tpl.ConfirmEmail, "/confirm/", token, n.cfg.ConfirmTTL, true)
}

func (n *Notifier) dispatch(ctx context.Context, r Recipient, name, path, token string, ttl time.Duration, test bool) error {
	if n.queue == nil || n.cfg.BaseURL == "" {
		return ErrNotConfigured
	}
	if r == nil || strings.TrimSpace(r.EmailAddress()) == "" {
		return fmt.Errorf("%w: empty recipient", ErrNotConfigured)
	}
	data := tpl.NewEmailData(n.cfg.AppName, displayName(r), r.EmailAddress(),
		tpl.WithActionURL(n.cfg.BaseURL+path+token),
		tpl.WithExpiresIn(ttl),
		tpl.WithTest(test),
	)
	subject, text, html, err := tpl.Render(name, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if test {
		subject = testSubjectPrefix + subject
	}
	return n.queue.Enqueue(ctx, EmailJob{To: r.EmailAddress(), Subject: subject, Text: text, HTML: html})
}
