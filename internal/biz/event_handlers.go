package biz

import (
	"context"
	"encoding/json"

	"shortlink/internal/domain/event"
	"shortlink/internal/infra/eventbus"

	"github.com/go-kratos/kratos/v2/log"
)

// Compile-time interface check
var _ eventbus.EventHandler = (*LoggingEventHandler)(nil)

// LoggingEventHandler logs domain events for offline reconciliation.
type LoggingEventHandler struct {
	log       *log.Helper
	eventName string
}

// NewLoggingEventHandler creates a new logging event handler.
func NewLoggingEventHandler(logger log.Logger, eventName string) *LoggingEventHandler {
	return &LoggingEventHandler{
		log:       log.NewHelper(logger),
		eventName: eventName,
	}
}

func (h *LoggingEventHandler) HandlerName() string {
	return "logging_handler_" + h.eventName
}

func (h *LoggingEventHandler) EventName() string {
	return h.eventName
}

// Handle logs the event details.
func (h *LoggingEventHandler) Handle(ctx context.Context, envelope *eventbus.EventEnvelope) error {
	switch envelope.EventName {
	case "link.created":
		var evt event.LinkCreated
		if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
			return err
		}
		h.log.Infof("[Event] link created: %s -> %s", evt.Code, evt.OriginalURL)
	case "link.clicked":
		var evt event.LinkClicked
		if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
			return err
		}
		h.log.Infof("[Event] link clicked: %s (count: %d, ip: %s)", evt.Code, evt.ClickCount, evt.IPAddress)
	case "link.deleted":
		var evt event.LinkDeleted
		if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
			return err
		}
		h.log.Infof("[Event] link deleted: %s", evt.Code)
	case "link.milestone_reached":
		var evt event.ClickMilestoneReached
		if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
			return err
		}
		h.log.Infof("[Event] milestone reached: %s hit %d clicks", evt.Code, evt.Milestone)
	default:
		h.log.Infof("[Event] %s: %s", envelope.EventName, envelope.AggregateID)
	}
	return nil
}

// RegisterEventHandlers registers all event handlers with the router.
func RegisterEventHandlers(router *eventbus.Router, logger log.Logger) {
	eventNames := []string{
		"link.created",
		"link.clicked",
		"link.deleted",
		"link.milestone_reached",
	}
	for _, eventName := range eventNames {
		router.AddHandler(NewLoggingEventHandler(logger, eventName))
	}
}
