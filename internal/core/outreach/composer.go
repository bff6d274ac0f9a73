package outreach

import (
	"context"
	"log"
	"strings"

	"github.com/agenthands/cardscan/internal/core/model"
)

// Token is the single substitution placeholder supported in templates.
const Token = "{name}"

// FirstName returns the substring before the first space of a full name,
// the whole name when there is no space, or "" for an empty name.
func FirstName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if i := strings.IndexByte(name, ' '); i >= 0 {
		return name[:i]
	}
	return name
}

// Render expands the template for one contact. Every occurrence of the
// token is replaced, not just the first.
func Render(template string, contact model.Contact) string {
	return strings.ReplaceAll(template, Token, FirstName(contact.Name))
}

// Message is one rendered subject/body pair addressed to a contact.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a rendered message. Delivery is an external collaborator;
// the composer's responsibility ends at the rendered pair.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender is the default no-delivery sender.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("outreach: would send %q to %s", msg.Subject, msg.To)
	return nil
}

// Campaign renders a template per contact in collection order and hands
// each message to the Sender, reporting progress as it goes.
type Campaign struct {
	Sender     Sender
	OnProgress func(sent, total int)
}

func NewCampaign(sender Sender) *Campaign {
	if sender == nil {
		sender = LogSender{}
	}
	return &Campaign{Sender: sender}
}

// Send processes contacts in order and returns how many were handed to the
// Sender before any failure.
func (c *Campaign) Send(ctx context.Context, recipients []model.Contact, subject, body string) (int, error) {
	total := len(recipients)
	for i, contact := range recipients {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		msg := Message{
			To:      contact.Email,
			Subject: Render(subject, contact),
			Body:    Render(body, contact),
		}
		if err := c.Sender.Send(ctx, msg); err != nil {
			return i, err
		}
		if c.OnProgress != nil {
			c.OnProgress(i+1, total)
		}
	}
	return total, nil
}
