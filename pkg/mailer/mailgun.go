package mailer

import (
	"context"
	"fmt"

	mg "github.com/mailgun/mailgun-go/v4"
)

// MailgunConfig configures the Mailgun HTTP transport.
// APIBase selects the region, e.g. mg.APIBaseEU; empty keeps the US endpoint.
type MailgunConfig struct {
	Domain  string
	APIKey  string
	Sender  string
	APIBase string
}

// Mailgun sends through the Mailgun HTTP API.
type Mailgun struct {
	sender string
	client *mg.MailgunImpl
}

// NewMailgun returns a sender that fails with ErrNotConfigured until every field is set.
func NewMailgun(cfg MailgunConfig) *Mailgun {
	m := &Mailgun{sender: cfg.Sender}
	if cfg.Domain != "" && cfg.APIKey != "" && cfg.Sender != "" {
		m.client = mg.NewMailgun(cfg.Domain, cfg.APIKey)
		if cfg.APIBase != "" {
			m.client.SetAPIBase(cfg.APIBase)
		}
	}
	return m
}

func (m *Mailgun) Configured() error {
	if m.client == nil {
		return fmt.Errorf("%w: mailgun domain, api key and sender are required", ErrNotConfigured)
	}
	return nil
}

func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	if err := m.Configured(); err != nil {
		return err
	}
	msg := m.client.NewMessage(m.sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	if _, _, err := m.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailgun: %w", err)
	}
	return nil
}
