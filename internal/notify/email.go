package notify

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailMessage письмо с подтверждением
type EmailMessage struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	Invite  string // .ics, пустая строка - без вложения
}

// EmailSender отправляет письма через SendGrid
type EmailSender struct {
	client sendGridClient
	from   *mail.Email
	logger *zap.Logger
}

func NewEmailSender(apiKey, fromEmail, fromName string, logger *zap.Logger) *EmailSender {
	return &EmailSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
		logger: logger,
	}
}

// FromAddress адрес отправителя, используется как организатор приглашения
func (s *EmailSender) FromAddress() (name, email string) {
	return s.from.Name, s.from.Address
}

func (s *EmailSender) Send(ctx context.Context, msg EmailMessage) error {
	message := mail.NewV3Mail()
	message.SetFrom(s.from)
	message.Subject = msg.Subject

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(msg.ToName, msg.ToEmail))
	message.AddPersonalizations(personalization)
	message.AddContent(mail.NewContent("text/plain", msg.Text))

	if msg.Invite != "" {
		attachment := mail.NewAttachment()
		attachment.SetContent(base64.StdEncoding.EncodeToString([]byte(msg.Invite)))
		attachment.SetType("text/calendar; method=REQUEST")
		attachment.SetFilename("invite.ics")
		attachment.SetDisposition("attachment")
		message.AddAttachment(attachment)
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email via sendgrid: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}

	s.logger.Info("Confirmation email sent",
		zap.String("to", msg.ToEmail),
		zap.Int("status", response.StatusCode))
	return nil
}
