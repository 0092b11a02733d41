package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// SMSSender отправляет SMS через Twilio
type SMSSender struct {
	api    messageCreator
	from   string
	logger *zap.Logger
}

func NewSMSSender(accountSID, authToken, fromNumber string, logger *zap.Logger) *SMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   accountSID,
		Password:   authToken,
		AccountSid: accountSID,
	})

	return &SMSSender{api: client.Api, from: fromNumber, logger: logger}
}

func (s *SMSSender) Send(_ context.Context, to, body string) error {
	if !strings.HasPrefix(to, "+") {
		s.logger.Warn("Phone number is not in E.164 format, SMS may fail", zap.String("to", to))
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send sms via twilio: %w", err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.Info("SMS sent", zap.String("to", to), zap.String("sid", sid))
	return nil
}
