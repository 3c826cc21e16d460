package otel

import (
	"context"
	"testing"
)

func TestRunIDContext(t *testing.T) {
	if got := RunID(context.Background()); got != "" {
		t.Errorf("empty context RunID = %q", got)
	}
	ctx := WithRunID(context.Background(), "run-1")
	if got := RunID(ctx); got != "run-1" {
		t.Errorf("RunID = %q, want run-1", got)
	}
}
