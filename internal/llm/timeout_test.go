package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestTimeoutProvider_PassesThrough(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"ok":true}`)})
	p := WithTimeout(mock, time.Second)

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Errorf("content = %s", resp.Content)
	}
	if p.ModelID() != "mock" {
		t.Errorf("model = %q, want mock", p.ModelID())
	}
}

func TestTimeoutProvider_Expires(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`), Delay: time.Second})
	p := WithTimeout(mock, 20*time.Millisecond)

	start := time.Now()
	_, err := p.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTimeout(err) {
		t.Fatalf("expected *ErrTimeout, got %T: %v", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestTimeoutProvider_CallerCancelIsNotTimeout(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`), Delay: time.Second})
	p := WithTimeout(mock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsTimeout(err) {
		t.Error("caller cancellation reported as timeout")
	}
}

func TestWithTimeout_DefaultsNonPositive(t *testing.T) {
	p := WithTimeout(NewMockProvider(), 0).(*TimeoutProvider)
	if p.timeout != DefaultTimeout {
		t.Errorf("timeout = %s, want %s", p.timeout, DefaultTimeout)
	}
}

func TestResponseText(t *testing.T) {
	resp := &Response{Content: json.RawMessage("  Use the past perfect here.\n")}
	if got := resp.Text(); got != "Use the past perfect here." {
		t.Errorf("Text() = %q", got)
	}
}

func TestCheckStructured(t *testing.T) {
	schema := &Schema{
		Name: "check-structured-test",
		Definition: map[string]any{
			"type":       "object",
			"properties": map[string]any{"a": map[string]any{"type": "integer"}},
			"required":   []any{"a"},
		},
	}

	if err := checkStructured(Request{}, json.RawMessage("plain text"), "end"); err != nil {
		t.Errorf("plain text rejected: %v", err)
	}

	err := checkStructured(Request{Schema: schema}, json.RawMessage(`{"a":`), "max_tokens")
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Errorf("expected ErrMaxTokensExceeded, got %v", err)
	}

	err = checkStructured(Request{Schema: schema}, json.RawMessage(`{"b":1}`), "end")
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}

	if err := checkStructured(Request{Schema: schema}, json.RawMessage(`{"a":1}`), "end"); err != nil {
		t.Errorf("valid content rejected: %v", err)
	}
}
