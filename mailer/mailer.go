// Package mailer delivers outbound email. Delivery is best effort: callers
// hand a Message to a Dispatcher and never wait for the SMTP conversation.
package mailer

import (
	"context"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends a single message, reporting whether the relay accepted it.
type Mailer interface {
	SendMail(ctx context.Context, msg Message) (bool, error)
}
