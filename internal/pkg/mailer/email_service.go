package mailer

import (
	"errors"
	"fmt"
	"io"

	"doc-review-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

var ErrMailerDisabled = errors.New("mailer: no SMTP host configured")

type IEmailService interface {
	// SendReport mails the exported transcript as a text attachment.
	SendReport(toEmail, fileName, report string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string, log logger.ILogger) IEmailService {
	var d *gomail.Dialer
	if host != "" {
		d = gomail.NewDialer(host, port, username, password)
	}
	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
		logger:      log,
	}
}

func (s *emailService) SendReport(toEmail, fileName, report string) error {
	if s.dialer == nil {
		return ErrMailerDisabled
	}

	m := buildReportMessage(s.senderEmail, s.senderName, toEmail, fileName, report)
	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("Mailer", "Failed to send report", map[string]interface{}{
			"to":    toEmail,
			"error": err.Error(),
		})
		return fmt.Errorf("send report: %w", err)
	}

	s.logger.Info("Mailer", "Report sent", map[string]interface{}{"to": toEmail})
	return nil
}

func buildReportMessage(from, fromName, to, fileName, report string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Dokument Review: Bericht")

	body := `
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Dokument Review</h2>
			<p>Im Anhang finden Sie den Bericht der aktuellen Review-Sitzung.</p>
		</div>
	`
	m.SetBody("text/html", body)

	data := []byte(report)
	m.Attach(fileName,
		gomail.SetHeader(map[string][]string{"Content-Type": {"text/plain; charset=UTF-8"}}),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}),
	)
	return m
}
