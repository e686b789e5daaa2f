// Package notification turns published front desk events into messages for
// patients and staff.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
	"github.com/jwalitptl/frontdesk-api/pkg/messaging"
)

const (
	AudiencePatient = "patient"
	AudienceCashier = "cashier"
)

type Notification struct {
	EventID     string `json:"event_id"`
	EventType   string `json:"event_type"`
	Audience    string `json:"audience"`
	PatientID   int64  `json:"patient_id,omitempty"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	AggregateID int64  `json:"aggregate_id"`
}

// Sender delivers a notification over some channel.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// LogSender writes notifications to the log. It stands in for SMS and email
// gateways, which are configured per deployment.
type LogSender struct {
	Logger *logger.Logger
}

func (s LogSender) Send(_ context.Context, n *Notification) error {
	s.Logger.Info("Notification", "audience", n.Audience, "patient_id", n.PatientID,
		"subject", n.Subject, "content", n.Content, "event_id", n.EventID)
	return nil
}

type Service struct {
	broker  messaging.Broker
	channel string
	sender  Sender
	logger  *logger.Logger
}

func NewService(broker messaging.Broker, channel string, sender Sender, logger *logger.Logger) *Service {
	return &Service{
		broker:  broker,
		channel: channel,
		sender:  sender,
		logger:  logger,
	}
}

// Run consumes events until ctx is cancelled or the subscription closes.
func (s *Service) Run(ctx context.Context) error {
	messages, err := s.broker.Subscribe(ctx, s.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.logger.Info("Listening for front desk events", "channel", s.channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			if err := s.Handle(ctx, raw); err != nil {
				s.logger.Error(err, "Failed to handle event")
			}
		}
	}
}

// Handle decodes one published message and sends the matching notification.
// Events nobody needs to hear about are ignored.
func (s *Service) Handle(ctx context.Context, raw []byte) error {
	var msg messaging.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	n, err := Build(msg)
	if err != nil {
		return fmt.Errorf("event %s: %w", msg.ID, err)
	}
	if n == nil {
		return nil
	}
	if err := s.sender.Send(ctx, n); err != nil {
		return fmt.Errorf("failed to send notification for %s: %w", msg.ID, err)
	}
	return nil
}

type eventPayload struct {
	AppointmentID   int64  `json:"appointment_id"`
	NewID           int64  `json:"new_appointment_id"`
	PatientID       int64  `json:"patient_id"`
	AppointmentDate string `json:"appointment_date"`
	NewDate         string `json:"to_date"`
	RefundRequired  bool   `json:"refund_required"`
	BillID          int64  `json:"bill_id"`
	Amount          string `json:"amount"`
	PaymentMethod   string `json:"payment_method"`
	Reason          string `json:"reason"`
}

// Build maps an event to its notification, or nil when there is none.
func Build(msg messaging.Message) (*Notification, error) {
	var p eventPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
		}
	}

	n := &Notification{
		EventID:     msg.ID,
		EventType:   msg.Type,
		Audience:    AudiencePatient,
		PatientID:   p.PatientID,
		AggregateID: msg.AggregateID,
	}

	switch msg.Type {
	case model.EventAppointmentBooked:
		n.Subject = "Appointment booked"
		n.Content = fmt.Sprintf("Your appointment #%d is booked for %s.", p.AppointmentID, p.AppointmentDate)
	case model.EventAppointmentCancelled:
		n.Subject = "Appointment cancelled"
		n.Content = fmt.Sprintf("Your appointment #%d has been cancelled.", p.AppointmentID)
		if p.Reason != "" {
			n.Content += " Reason: " + p.Reason + "."
		}
		if p.RefundRequired {
			n.Content += " A refund will be arranged at the front desk."
		}
	case model.EventAppointmentRescheduled:
		n.Subject = "Appointment rescheduled"
		n.Content = fmt.Sprintf("Your appointment #%d has moved to %s (new reference #%d).", p.AppointmentID, p.NewDate, p.NewID)
	case model.EventBillPaid:
		n.Audience = AudienceCashier
		n.Subject = "Bill settled"
		n.Content = fmt.Sprintf("Bill #%d paid: %s by %s.", p.BillID, p.Amount, p.PaymentMethod)
	default:
		return nil, nil
	}
	return n, nil
}
