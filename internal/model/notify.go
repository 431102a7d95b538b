package model

import "context"

// Message is an outbound plain-text notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers messages to user addresses.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
