package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Delivery is the transport confirmation returned by a successful send.
type Delivery struct {
	Response string   `json:"response"`
	Accepted []string `json:"accepted"`
}

// Mailgun wraps Mailgun client configuration.
type Mailgun struct {
	Domain string
	APIKey string
	Sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender}
}

// Send sends an email via Mailgun. html is optional; if provided it will be used as HTML body.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) (Delivery, error) {
	client := mg.NewMailgun(m.Domain, m.APIKey)
	msg := client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, _, err := client.Send(c, msg)
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{Response: resp, Accepted: []string{to}}, nil
}

// SendReset delivers a password reset token to the given address.
func (m *Mailgun) SendReset(ctx context.Context, to, token, resetURL string) (Delivery, error) {
	text, html, err := RenderReset(ResetData{Token: token, ResetURL: resetURL, Email: to})
	if err != nil {
		return Delivery{}, err
	}
	return m.Send(ctx, to, "Reset your password", text, html)
}
