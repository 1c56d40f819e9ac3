// Package feed relays check and report events to live websocket clients.
package feed

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/upi-guard/pkg/eventbus"
	"github.com/richxcame/upi-guard/pkg/logger"
	ws "github.com/richxcame/upi-guard/pkg/websocket"
	"go.uber.org/zap"
)

// Message types sent to feed clients
const (
	MessageCheckCompleted  = "check.completed"
	MessageReportSubmitted = "report.submitted"
	MessageReportDeleted   = "report.deleted"
	// MessageUPIReported goes only to clients watching the reported id
	MessageUPIReported = "upi.reported"
)

// ErrBackpressure is returned when the hub cannot take the event's
// messages; none were queued and the event is redelivered later.
var ErrBackpressure = errors.New("feed: broadcast buffer full")

var relayedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "upiguard",
	Name:      "feed_events_total",
	Help:      "Bus events relayed to feed clients by type",
}, []string{"type"})

// Broadcaster accepts messages for websocket delivery. Publish queues every
// message or none.
type Broadcaster interface {
	Publish(msgs ...*ws.Message) bool
}

// Subscriber is the consuming side of the event bus
type Subscriber interface {
	Subscribe(ctx context.Context, subject, durable string, handler eventbus.Handler) error
}

// Service turns bus events into feed messages
type Service struct {
	hub Broadcaster
}

// NewService creates a feed relay for hub
func NewService(hub Broadcaster) *Service {
	return &Service{hub: hub}
}

// Start subscribes to the check and report subjects. Each process uses its
// own ephemeral consumer so every replica sees every event.
func (s *Service) Start(ctx context.Context, sub Subscriber) error {
	for _, subject := range []string{
		eventbus.SubjectCheckCompleted,
		eventbus.SubjectReportSubmitted,
		eventbus.SubjectReportDeleted,
	} {
		if err := sub.Subscribe(ctx, subject, "", s.HandleEvent); err != nil {
			return err
		}
	}
	return nil
}

// HandleEvent relays one event. Payloads that cannot be decoded are logged
// and acknowledged so they are not redelivered.
func (s *Service) HandleEvent(ctx context.Context, event *eventbus.Event) error {
	var msgs []*ws.Message

	switch event.Type {
	case eventbus.TypeCheckCompleted:
		var data eventbus.CheckCompletedData
		if err := event.Decode(&data); err != nil {
			return s.drop(ctx, event, err)
		}
		msgs = append(msgs, &ws.Message{
			Type: MessageCheckCompleted,
			Data: map[string]interface{}{
				"check_id":      data.CheckID,
				"upi_id":        data.UPIID,
				"domain":        data.Domain,
				"is_suspicious": data.IsSuspicious,
				"status":        data.Status,
				"checked_at":    data.CheckedAt,
			},
			Timestamp: event.Timestamp,
		})

	case eventbus.TypeReportSubmitted:
		var data eventbus.ReportSubmittedData
		if err := event.Decode(&data); err != nil {
			return s.drop(ctx, event, err)
		}
		payload := map[string]interface{}{
			"report_id":     data.ReportID,
			"upi_id":        data.UPIID,
			"report_reason": data.Reason,
			"reported_at":   data.ReportedAt,
		}
		msgs = append(msgs,
			&ws.Message{Type: MessageReportSubmitted, Data: payload, Timestamp: event.Timestamp},
			&ws.Message{Type: MessageUPIReported, Topic: data.UPIID, Data: payload, Timestamp: event.Timestamp},
		)

	case eventbus.TypeReportDeleted:
		var data eventbus.ReportDeletedData
		if err := event.Decode(&data); err != nil {
			return s.drop(ctx, event, err)
		}
		msgs = append(msgs, &ws.Message{
			Type:      MessageReportDeleted,
			Data:      map[string]interface{}{"report_id": data.ReportID},
			Timestamp: event.Timestamp,
		})

	default:
		logger.WithContext(ctx).Debug("feed: ignoring event", zap.String("type", event.Type))
		return nil
	}

	if !s.hub.Publish(msgs...) {
		return ErrBackpressure
	}
	relayedEvents.WithLabelValues(event.Type).Inc()
	return nil
}

func (s *Service) drop(ctx context.Context, event *eventbus.Event, err error) error {
	logger.WithContext(ctx).Warn("feed: dropping undecodable event",
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
		zap.Error(err),
	)
	return nil
}
