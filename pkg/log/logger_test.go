package log

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestWithFieldsMerges(t *testing.T) {
	ctx := WithFields(context.Background(), Fields{"step": "expand", "todo": 1})
	ctx = WithFields(ctx, Fields{"todo": 2, "guess": 51})

	fields := FieldsFrom(ctx)
	if fields["step"] != "expand" || fields["todo"] != 2 || fields["guess"] != 51 {
		t.Fatalf("unexpected merged fields: %v", fields)
	}
	if len(FieldsFrom(context.Background())) != 0 {
		t.Fatalf("expected no fields on a bare context")
	}
}

func TestCslLoggerAttachesContextFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	logger := NewCslLoggerWith(base)

	ctx := WithFields(context.Background(), Fields{"step": "fetch"})
	logger.Info(ctx, "promoted %d repositories", 3)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry")
	}
	if entry.Message != "promoted 3 repositories" {
		t.Errorf("unexpected message %q", entry.Message)
	}
	if entry.Data["step"] != "fetch" {
		t.Errorf("expected step field, got %v", entry.Data)
	}

	logger.Critical(ctx, "boom")
	entry = hook.LastEntry()
	if entry.Level != logrus.ErrorLevel || entry.Data["severity"] != "critical" {
		t.Errorf("expected critical to map to error level with severity, got %v %v", entry.Level, entry.Data)
	}
}

func TestSetLevel(t *testing.T) {
	base, hook := test.NewNullLogger()
	logger := NewCslLoggerWith(base)
	if err := logger.SetLevel("warn"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	logger.Info(context.Background(), "hidden")
	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected info to be filtered at warn level")
	}
	if err := logger.SetLevel("nope"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
