// README: Firebase Cloud Messaging multicast sender.
package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
)

// fcmBatchLimit is the multicast token limit imposed by FCM.
const fcmBatchLimit = 500

// Multicaster is the subset of *messaging.Client used here.
type Multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCMSender struct {
	client Multicaster
	log    zerolog.Logger
}

func NewFCMSender(client Multicaster, log zerolog.Logger) *FCMSender {
	return &FCMSender{client: client, log: log.With().Str("component", "fcm").Logger()}
}

func (s *FCMSender) Send(ctx context.Context, msg Message) (Report, error) {
	msg, err := msg.Validate()
	if err != nil {
		return Report{}, err
	}

	var report Report
	for start := 0; start < len(msg.Tokens); start += fcmBatchLimit {
		end := min(start+fcmBatchLimit, len(msg.Tokens))
		batch := msg.Tokens[start:end]
		resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Android: &messaging.AndroidConfig{Priority: "high"},
		})
		if err != nil {
			return report, fmt.Errorf("fcm multicast: %w", err)
		}
		report.SuccessCount += resp.SuccessCount
		report.FailureCount += resp.FailureCount
		for i, r := range resp.Responses {
			d := Delivery{Token: batch[i], Success: r.Success, MessageID: r.MessageID}
			if r.Error != nil {
				d.Error = r.Error.Error()
			}
			report.Deliveries = append(report.Deliveries, d)
		}
	}
	s.log.Info().
		Int("success", report.SuccessCount).
		Int("failure", report.FailureCount).
		Msg("push_sent")
	return report, nil
}

// LogSender stands in for FCM when Firebase is not configured. Every token
// is reported as undelivered.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "push_log").Logger()}
}

func (s *LogSender) Send(_ context.Context, msg Message) (Report, error) {
	msg, err := msg.Validate()
	if err != nil {
		return Report{}, err
	}
	s.log.Info().Str("title", msg.Title).Int("tokens", len(msg.Tokens)).Msg("push_skipped")
	report := Report{FailureCount: len(msg.Tokens)}
	for _, t := range msg.Tokens {
		report.Deliveries = append(report.Deliveries, Delivery{Token: t, Error: "push disabled"})
	}
	return report, nil
}
