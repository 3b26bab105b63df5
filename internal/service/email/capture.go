package email

import (
	"context"
	"sync"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// CaptureMailer records messages instead of delivering them. Used by tests
// and local development to pick OTP codes out of the "sent" mail.
type CaptureMailer struct {
	mu       sync.Mutex
	messages []Message
	// Fail makes every Send return this error, for exercising the
	// registration path where the relay is down.
	Fail error
}

func NewCaptureMailer() *CaptureMailer {
	return &CaptureMailer{}
}

func (m *CaptureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.messages = append(m.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (m *CaptureMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Last returns the most recent message, or false if none were sent.
func (m *CaptureMailer) Last() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return Message{}, false
	}
	return m.messages[len(m.messages)-1], true
}
