package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDo(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name        string
		attempts    int
		failures    int // calls that fail before the first success
		wantOK      bool
		wantCalls   int
		wantMessage string
	}{
		{name: "first try", attempts: 2, failures: 0, wantOK: true, wantCalls: 1},
		{name: "second try", attempts: 2, failures: 1, wantOK: true, wantCalls: 2},
		{name: "all fail", attempts: 2, failures: 5, wantOK: false, wantCalls: 2, wantMessage: "boom 2"},
		{name: "zero attempts runs once", attempts: 0, failures: 5, wantOK: false, wantCalls: 1, wantMessage: "boom 1"},
		{name: "negative attempts runs once", attempts: -3, failures: 0, wantOK: true, wantCalls: 1},
		{name: "many attempts", attempts: 5, failures: 4, wantOK: true, wantCalls: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			res := Do(context.Background(), tt.attempts, func(context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", fmt.Errorf("%w %d", errBoom, calls)
				}
				return "done", nil
			})

			if res.OK() != tt.wantOK {
				t.Fatalf("OK() = %v, want %v (err: %v)", res.OK(), tt.wantOK, res.Err())
			}
			if calls != tt.wantCalls || res.Attempts() != tt.wantCalls {
				t.Errorf("calls = %d, Attempts() = %d, want %d", calls, res.Attempts(), tt.wantCalls)
			}
			if tt.wantOK {
				if res.Value() != "done" {
					t.Errorf("Value() = %q, want done", res.Value())
				}
				if res.Err() != nil || res.Message() != "" {
					t.Errorf("success should carry no error, got %v", res.Err())
				}
				return
			}
			if !errors.Is(res.Err(), errBoom) {
				t.Errorf("Err() = %v, want wrapped boom", res.Err())
			}
			if res.Message() != tt.wantMessage {
				t.Errorf("Message() = %q, want %q", res.Message(), tt.wantMessage)
			}
			if res.Value() != "" {
				t.Errorf("Value() = %q, want zero value on failure", res.Value())
			}
		})
	}
}

func TestDo_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	res := Do(ctx, 3, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("interrupted")
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(res.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", res.Err())
	}
}

func TestDo_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	res := Do(ctx, 1, func(ctx context.Context) (string, error) {
		v, _ := ctx.Value(key{}).(string)
		return v, nil
	})
	if res.Value() != "v" {
		t.Errorf("Value() = %q, want v", res.Value())
	}
}
