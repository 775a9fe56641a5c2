package logger

import (
	"log/slog"
	"time"
)

// Error records err under "error". A nil error yields an empty Attr, which
// slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// EventType records the triggering event type under "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func RecipientID(id string) slog.Attr {
	return slog.String("recipient_id", id)
}

func FlowID(id string) slog.Attr {
	return slog.String("flow_id", id)
}

func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// Status records a delivery status ("sent", "skipped", ...) under "status".
func Status(status string) slog.Attr {
	return slog.String("status", status)
}

// TaskID records a queue task identifier. A nil id yields an empty Attr.
func TaskID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("task_id", id)
}

func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
