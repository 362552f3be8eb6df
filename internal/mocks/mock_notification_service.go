package mocks

import (
	"sync"

	"github.com/you/fueltrack/domain"
)

// Delivery channels captured by MockNotificationService
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Notification is one outgoing message: a reset link mail or a security alert
type Notification struct {
	Channel string
	To      string
	Subject string
	Body    string
}

// MockNotificationService keeps an outbox instead of talking to Twilio or
// SMTP. A message lands in the outbox even when the Func hook fails it.
type MockNotificationService struct {
	SendSMSFunc   func(to, message string) error
	SendEmailFunc func(to, subject, body string) error

	mu     sync.Mutex
	outbox []Notification
}

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) SendSMS(to, message string) error {
	m.deliver(Notification{Channel: ChannelSMS, To: to, Body: message})
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(to, message)
	}
	return nil
}

func (m *MockNotificationService) SendEmail(to, subject, body string) error {
	m.deliver(Notification{Channel: ChannelEmail, To: to, Subject: subject, Body: body})
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(to, subject, body)
	}
	return nil
}

// Outbox returns a copy of every attempted delivery, oldest first
func (m *MockNotificationService) Outbox() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.outbox...)
}

// OutboxFor filters the outbox by channel
func (m *MockNotificationService) OutboxFor(channel string) []Notification {
	var out []Notification
	for _, n := range m.Outbox() {
		if n.Channel == channel {
			out = append(out, n)
		}
	}
	return out
}

func (m *MockNotificationService) deliver(n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, n)
}

var _ domain.NotificationService = (*MockNotificationService)(nil)
