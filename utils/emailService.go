package utils

import (
	"fmt"
	"log"

	"lms/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEmail delivers one HTML email through SendGrid.
func SendEmail(to, subject, htmlBody string) error {
	from := mail.NewEmail("Academy", config.AppConfig.EmailSender)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, "", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendgridKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("[EMAIL] send failed for %s: %v", to, err)
		return err
	}
	if resp.StatusCode >= 400 {
		log.Printf("[EMAIL] send rejected for %s: status %d", to, resp.StatusCode)
		return fmt.Errorf("email rejected with status %d", resp.StatusCode)
	}
	return nil
}

// HTML wrapper shared by all outgoing emails
func getEmailTemplate(title, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #1A237E; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1A237E; line-height: 1.6; }
			.content h2 { color: #1A237E; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #5C6BC0; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>ACADEMY</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 Academy. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// --- Triggers ---

// 1. Welcome / Signup
func SendWelcomeEmail(email, name string) {
	subject := "Welcome to Academy"
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Welcome to <strong>Academy</strong>! Your account has been created.</p>
		<p>Browse the course catalog, top up your wallet and start learning.</p>
	`, name)

	SendEmail(email, subject, getEmailTemplate("Welcome Onboard!", body))
}

// 2. Enrollment Confirmation
func SendEnrollmentConfirmation(email, name, courseTitle string) {
	subject := "Enrollment Confirmed: " + courseTitle
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>You are now enrolled in <strong>%s</strong>.</p>
		<div class="info-box">
			<strong>Next Steps:</strong> Open the course page to start with the first lesson.
		</div>
	`, name, courseTitle)

	SendEmail(email, subject, getEmailTemplate("Enrollment Successful", body))
}

// 3. Payment Receipt
func SendPaymentReceipt(email, name, orderNumber string, amount int64) {
	subject := "Payment Received for Order #" + orderNumber
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>We have received your payment of <strong>%d</strong> for order <strong>#%s</strong>.</p>
		<p>You can review the order details anytime from your account.</p>
	`, name, amount, orderNumber)

	SendEmail(email, subject, getEmailTemplate("Payment Confirmed", body))
}
