package event

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventHandler returns nil when the event is none of its business.
type EventHandler func(e *EventRecord) *EventHandleResult

type EventHandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

var EventHandlers []EventHandler

var InvokeHandlersFunc = invokeHandlers

// RegisterHandler appends h to the handlers run after every committed event.
func RegisterHandler(h EventHandler) {
	EventHandlers = append(EventHandlers, h)
}

// invokeHandlers runs every handler in registration order. A panicking handler is reported
// as a failed result and does not stop the others.
func invokeHandlers(record *EventRecord) []EventHandleResult {
	results := []EventHandleResult{}
	fields := logrus.Fields{"eventId": record.ID, "category": record.EventCategory,
		"sourceType": record.SourceType, "sourceId": record.SourceId}
	for i, handler := range EventHandlers {
		r := invokeSafely(i, handler, record)
		if r == nil {
			continue
		}
		results = append(results, *r)

		entry := logrus.WithFields(fields).WithField("handler", r.HandlerIdentifier)
		if r.Success {
			entry.Debug("event handled: ", r.Message)
		} else {
			entry.Error("event handler failed: ", r.Message)
		}
	}
	return results
}

func invokeSafely(index int, handler EventHandler, record *EventRecord) (result *EventHandleResult) {
	defer func() {
		if ret := recover(); ret != nil {
			result = &EventHandleResult{Success: false, Message: fmt.Sprintf("panic: %v", ret),
				HandlerIdentifier: fmt.Sprintf("handler#%d", index)}
		}
	}()
	return handler(record)
}
