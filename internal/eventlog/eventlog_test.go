package eventlog

import (
	"context"
	"testing"
)

func TestEventTypeConstants(t *testing.T) {
	// Verify all event types are defined as expected
	expectedEvents := map[EventType]string{
		EventSessionStarted:     "session_started",
		EventConfigUpdated:      "config_updated",
		EventEnrollmentStarted:  "enrollment_started",
		EventEnrollmentSuccess:  "enrollment_succeeded",
		EventEnrollmentFailed:   "enrollment_failed",
		EventDiarizationTrigger: "diarization_trigger",
		EventFallbackTrigger:    "fallback_trigger",
		EventStageError:         "stage_error",
		EventSessionEnded:       "session_ended",
		EventChatMessage:        "chat_message",
		EventCloneTrained:       "clone_trained",
		EventCloneTrainFailed:   "clone_train_failed",
	}

	for eventType, expectedValue := range expectedEvents {
		if string(eventType) != expectedValue {
			t.Errorf("EventType %q = %q, want %q", expectedValue, string(eventType), expectedValue)
		}
	}
}

func TestLoggerNew(t *testing.T) {
	// Test that New returns a non-nil logger even with nil DB
	logger := New(nil)
	if logger == nil {
		t.Error("New(nil) should return a non-nil logger")
	}
}

func TestLoggerLogAsyncWithNilDB(t *testing.T) {
	// Test that LogAsync doesn't panic with nil DB
	logger := New(nil)

	// Should not panic
	logger.LogAsync("test-session-id", EventSessionStarted, map[string]any{
		"identity": "alice",
	})
}

func TestLoggerLogAsyncWithEmptySessionID(t *testing.T) {
	// Test that LogAsync doesn't panic with empty session ID
	logger := New(nil)

	// Should not panic - silently skips
	logger.LogAsync("", EventSessionStarted, map[string]any{
		"identity": "alice",
	})
}

func TestLoggerLogWithNilDB(t *testing.T) {
	// Test that Log returns nil error with nil DB
	logger := New(nil)

	err := logger.Log(context.Background(), "test-session-id", EventSessionStarted, map[string]any{
		"identity": "alice",
	})

	if err != nil {
		t.Errorf("Log with nil DB should return nil error, got %v", err)
	}
}

func TestLoggerLogWithEmptySessionID(t *testing.T) {
	// Test that Log returns nil error with empty session ID
	logger := New(nil)

	err := logger.Log(context.Background(), "", EventSessionStarted, map[string]any{
		"identity": "alice",
	})

	if err != nil {
		t.Errorf("Log with empty session ID should return nil error, got %v", err)
	}
}

func TestPipelineEventDataStructures(t *testing.T) {
	// Test that typical pipeline event data can be constructed
	logger := New(nil)

	logger.LogAsync("test-session", EventDiarizationTrigger, map[string]any{
		"bytes": 185000,
	})

	logger.LogAsync("test-session", EventStageError, map[string]any{
		"stage": "translation",
		"error": "no translator for ru->de",
	})

	logger.LogAsync("test-session", EventEnrollmentFailed, map[string]any{
		"error": "encoder unavailable",
	})

	logger.LogAsync("call-1", EventChatMessage, map[string]any{
		"sender":      "alice",
		"source_lang": "ru",
		"target_lang": "en",
	})
}
