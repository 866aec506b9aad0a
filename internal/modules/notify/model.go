// README: Push notification messages and per-token delivery reports.
package notify

import (
	"context"
	"errors"
)

type Message struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Tokens []string `json:"tokens"`
}

type Delivery struct {
	Token     string `json:"token"`
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Report struct {
	SuccessCount int        `json:"successCount"`
	FailureCount int        `json:"failureCount"`
	Deliveries   []Delivery `json:"responses"`
}

// Sender delivers one message to a set of device tokens.
type Sender interface {
	Send(ctx context.Context, msg Message) (Report, error)
}

var ErrNoTokens = errors.New("tokens must be a non-empty array")

// Validate drops blank tokens and rejects a message with none left.
func (m Message) Validate() (Message, error) {
	tokens := make([]string, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return m, ErrNoTokens
	}
	m.Tokens = tokens
	return m, nil
}
