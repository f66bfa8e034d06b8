package service

import (
	"context"
	"fmt"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type emailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

// NewEmailService builds the SendGrid-backed notifier. An empty API key
// disables sending; every call then logs and returns nil, which keeps local
// environments working without credentials.
func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &emailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *emailService) SendTaskRequestApprovedNotification(ctx context.Context, email, username, taskTitle string) error {
	subject := "Your task request was approved"
	body := fmt.Sprintf("Hello %s,\n\nYour request for the task %q was approved and the task is now assigned to you.", username, taskTitle)
	return s.send(ctx, email, username, subject, body)
}

func (s *emailService) SendTaskRequestDeniedNotification(ctx context.Context, email, username, taskTitle string) error {
	subject := "Your task request was denied"
	body := fmt.Sprintf("Hello %s,\n\nYour request for the task %q was denied.", username, taskTitle)
	return s.send(ctx, email, username, subject, body)
}

func (s *emailService) send(ctx context.Context, to, toName, subject, plainText string) error {
	if s.apiKey == "" {
		logger.DebugContext(ctx, "email sending disabled, dropping notification", "to", to, "subject", subject)
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, "")

	logger.ExternalServiceCall("sendgrid", "send", "to", to)
	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		logger.ExternalServiceResult("sendgrid", "send", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "send", err)
		return err
	}
	logger.ExternalServiceResult("sendgrid", "send", nil)
	return nil
}
