package telephony

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMS is one outbound text message.
type SMS struct {
	To   string
	From string
	Body string
}

var ErrInvalidSMS = errors.New("telephony: sms requires to, from and body")

// messageCreator is the slice of the Twilio REST API the messenger uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioMessenger sends SMS through the Twilio Messages API.
// It makes exactly one API call per SendSMS; retries are the caller's decision.
type TwilioMessenger struct {
	api messageCreator
}

func NewTwilioMessenger(accountSID, authToken string) *TwilioMessenger {
	c := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioMessenger{api: c.Api}
}

func (m *TwilioMessenger) Name() string { return "twilio" }

// SendSMS returns the provider message SID on success.
func (m *TwilioMessenger) SendSMS(ctx context.Context, msg SMS) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.api == nil {
		return "", errors.New("telephony: twilio client not configured")
	}
	if strings.TrimSpace(msg.To) == "" || strings.TrimSpace(msg.From) == "" || msg.Body == "" {
		return "", ErrInvalidSMS
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(msg.From)
	params.SetBody(msg.Body)

	resp, err := m.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("telephony: twilio create message: %w", err)
	}
	if resp == nil || resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
