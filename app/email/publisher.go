package email

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitSender hands mail off to the mail.events exchange instead of calling
// a provider inline; a downstream mail worker does the actual delivery.
type RabbitSender struct {
	ch *amqp.Channel
}

func NewRabbitSender(ch *amqp.Channel) *RabbitSender {
	return &RabbitSender{ch: ch}
}

type mailMessage struct {
	Type    string `json:"type"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (s *RabbitSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	body, err := json.Marshal(mailMessage{
		Type:    "send_email",
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return err
	}

	return s.ch.PublishWithContext(
		ctx,
		"mail.events", // exchange
		"mail.send",   // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
