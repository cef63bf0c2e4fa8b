package tracing

import (
	"context"
	"testing"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "storectl", Settings{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitEnabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "storectl", Settings{Enabled: true, Endpoint: "localhost:14318", SampleRate: 1})
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	_, span := Tracer("test").Start(context.Background(), "probe")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Logf("shutdown error with no collector: %v", err)
	}
}
