package notifications

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/you/fueltrack/domain"
)

// messageCreator is the part of the Twilio REST API used to send SMS
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioServiceImpl implements domain.NotificationService
type TwilioServiceImpl struct {
	api        messageCreator
	fromNumber string
	logger     *log.Entry
}

// NewTwilioService creates a new Twilio notification service. Without a from
// number messages are only logged.
func NewTwilioService(accountSID, authToken, fromNumber string) domain.NotificationService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioService(client.Api, fromNumber)
}

func newTwilioService(api messageCreator, fromNumber string) *TwilioServiceImpl {
	return &TwilioServiceImpl{
		api:        api,
		fromNumber: fromNumber,
		logger:     log.WithField("component", "notifications"),
	}
}

// SendSMS implements domain.NotificationService
func (t *TwilioServiceImpl) SendSMS(to, message string) error {
	if to == "" {
		return fmt.Errorf("sms recipient: %w", domain.ErrMissingField)
	}
	if t.fromNumber == "" {
		t.logger.WithFields(log.Fields{"to": to, "body": message}).Info("[MOCK SMS]")
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		t.logger.WithField("sid", *resp.Sid).Debug("sms sent")
	}
	return nil
}

// SendEmail implements domain.NotificationService. There is no mail transport,
// so the message goes to the log.
func (t *TwilioServiceImpl) SendEmail(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("email recipient: %w", domain.ErrMissingField)
	}
	t.logger.WithFields(log.Fields{"to": to, "subject": subject, "body": body}).Info("[MOCK EMAIL]")
	return nil
}
