package services

import (
	"context"
	"fmt"

	"entitlement-api/internal/models"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// BrevoService sends transactional email through Brevo
type BrevoService struct {
	client      *brevo.APIClient
	fromEmail   string
	fromName    string
	serviceName string
}

// NewBrevoService creates a new Brevo service instance. It returns nil when
// no API key is configured so callers can pass the result straight through.
func NewBrevoService(apiKey, fromEmail, fromName, serviceName string) *BrevoService {
	if apiKey == "" {
		return nil
	}
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	return &BrevoService{
		client:      brevo.NewAPIClient(cfg),
		fromEmail:   fromEmail,
		fromName:    fromName,
		serviceName: serviceName,
	}
}

// SendAccessCode emails the mobile access code for subscription.
func (s *BrevoService) SendAccessCode(ctx context.Context, subscription *models.Subscription) error {
	email := buildAccessCodeEmail(s.serviceName, subscription)
	_, _, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.fromName,
			Email: s.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: subscription.Email},
		},
		Subject:     email.Subject,
		HtmlContent: email.HTML,
		TextContent: email.Text,
	})
	if err != nil {
		return fmt.Errorf("brevo API error: %w", err)
	}
	return nil
}

type accessCodeEmail struct {
	Subject string
	HTML    string
	Text    string
}

func buildAccessCodeEmail(serviceName string, subscription *models.Subscription) accessCodeEmail {
	expires := subscription.ExpiresAt.UTC().Format("January 2, 2006")
	return accessCodeEmail{
		Subject: fmt.Sprintf("Your %s access code", serviceName),
		HTML: fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>Access code</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px; text-align: center;">
				<h1 style="color: #333; margin-bottom: 20px;">%s</h1>
				<p style="color: #666; font-size: 16px; margin-bottom: 20px;">Enter this code in the mobile app to unlock your %s plan:</p>
				<div style="background-color: #007bff; color: white; padding: 20px; border-radius: 10px; font-size: 32px; font-weight: bold; letter-spacing: 5px; margin: 20px 0;">
					%s
				</div>
				<p style="color: #999; font-size: 14px; margin-top: 20px;">Valid until %s.</p>
			</div>
		</body>
		</html>
	`, serviceName, subscription.Plan, subscription.MobileAccessCode, expires),
		Text: fmt.Sprintf("%s\n\nEnter this code in the mobile app to unlock your %s plan: %s\n\nValid until %s.\n",
			serviceName, subscription.Plan, subscription.MobileAccessCode, expires),
	}
}

// compile-time check
var _ Mailer = (*BrevoService)(nil)
