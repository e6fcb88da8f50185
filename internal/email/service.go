package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/clinicore/scheduler-api/pkg/circuitbreaker"
)

type Service interface {
	SendBookingConfirmation(ctx context.Context, to, patientName, doctorName, date, startTime string) error
	SendCancellation(ctx context.Context, to, patientName, doctorName, date, startTime string) error
	SendReminder(ctx context.Context, to, patientName, doctorName, date, startTime string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type service struct {
	dialer  *gomail.Dialer
	from    string
	breaker *circuitbreaker.Breaker
}

func NewService(cfg Config) Service {
	return &service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		// A dead SMTP server fails fast instead of stalling every consumer.
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

func (s *service) SendBookingConfirmation(ctx context.Context, to, patientName, doctorName, date, startTime string) error {
	subject := "Appointment confirmed"
	body := fmt.Sprintf(
		"Hello %s,\n\nYour appointment with %s on %s at %s has been booked.\n",
		patientName, doctorName, date, startTime,
	)
	return s.send(to, subject, body)
}

func (s *service) SendCancellation(ctx context.Context, to, patientName, doctorName, date, startTime string) error {
	subject := "Appointment cancelled"
	body := fmt.Sprintf(
		"Hello %s,\n\nYour appointment with %s on %s at %s has been cancelled.\n",
		patientName, doctorName, date, startTime,
	)
	return s.send(to, subject, body)
}

func (s *service) SendReminder(ctx context.Context, to, patientName, doctorName, date, startTime string) error {
	subject := "Upcoming appointment"
	body := fmt.Sprintf(
		"Hello %s,\n\nThis is a reminder of your appointment with %s on %s at %s.\n",
		patientName, doctorName, date, startTime,
	)
	return s.send(to, subject, body)
}

func (s *service) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	err := s.breaker.Do(func() error {
		return s.dialer.DialAndSend(m)
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
