package genai

import (
	"errors"
	"strings"
	"testing"

	"github.com/aledesanfer/mysteryforge/internal/core"
)

func TestClassifyError(t *testing.T) {
	b := newBaseAdapter(ProviderConfig{Name: "test"}, nil)

	tests := []struct {
		name   string
		stderr string
		stdout string
		want   core.ErrorCategory
	}{
		{"rate limit phrase", "Error: rate limit exceeded, retry later", "", core.ErrCatRateLimit},
		{"http 429", "server returned 429", "", core.ErrCatRateLimit},
		{"quota", "Quota exhausted for model", "", core.ErrCatRateLimit},
		{"timeout", "request timeout after 30s", "", core.ErrCatTimeout},
		{"deadline", "context deadline exceeded", "", core.ErrCatTimeout},
		{"network", "network is unreachable", "", core.ErrCatProvider},
		{"http 503", "upstream returned 503", "", core.ErrCatProvider},
		{"generic failure", "segmentation fault", "", core.ErrCatExecution},
		{"empty output", "", "", core.ErrCatExecution},
		{"json error on stdout", "", `{"error": "rate limit hit"}`, core.ErrCatRateLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.classifyError(&commandResult{
				Stderr:   tt.stderr,
				Stdout:   tt.stdout,
				ExitCode: 1,
			})
			if !core.IsCategory(err, tt.want) {
				t.Errorf("classifyError = %v, want category %s", err, tt.want)
			}
		})
	}
}

func TestClassifyErrorRetryability(t *testing.T) {
	b := newBaseAdapter(ProviderConfig{Name: "test"}, nil)

	transient := b.classifyError(&commandResult{Stderr: "too many requests", ExitCode: 1})
	if !core.IsRetryable(transient) {
		t.Errorf("rate limit should be retryable: %v", transient)
	}

	permanent := b.classifyError(&commandResult{Stderr: "invalid flag --model", ExitCode: 2})
	if core.IsRetryable(permanent) {
		t.Errorf("execution failure should not be retryable: %v", permanent)
	}
}

func TestClassifyErrorDetails(t *testing.T) {
	b := newBaseAdapter(ProviderConfig{Name: "gemini"}, nil)

	err := b.classifyError(&commandResult{Stderr: "segmentation fault", ExitCode: 7})
	var derr *core.DomainError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DomainError, got %T", err)
	}
	if got := derr.Details["provider"]; got != "gemini" {
		t.Errorf("provider detail = %v, want gemini", got)
	}
	if got := derr.Details["exit_code"]; got != 7 {
		t.Errorf("exit_code detail = %v, want 7", got)
	}

	err = b.classifyError(&commandResult{Stderr: "quota exhausted", ExitCode: 1})
	if !errors.As(err, &derr) {
		t.Fatalf("expected DomainError, got %T", err)
	}
	if got := derr.Details["provider"]; got != "gemini" {
		t.Errorf("provider detail on rate limit = %v, want gemini", got)
	}
}

func TestExtractErrorFromOutput(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{"flat error field", `{"error": "model overloaded"}`, "model overloaded"},
		{
			"nested error message",
			`{"error": {"code": 500, "message": "internal failure"}}`,
			"internal failure",
		},
		{
			"last json line wins",
			"{\"error\": \"first\"}\n{\"error\": \"second\"}",
			"second",
		},
		{"plain text fallback", "warming up\nsomething went wrong", "something went wrong"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractErrorFromOutput(tt.stdout); got != tt.want {
				t.Errorf("extractErrorFromOutput = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"bare array", `[1, 2, 3]`, `[1, 2, 3]`},
		{
			"surrounded by prose",
			"Here is the result:\n{\"a\": {\"b\": 2}}\nDone.",
			`{"a": {"b": 2}}`,
		},
		{
			"braces inside strings",
			`{"text": "a { stray } brace"}`,
			`{"text": "a { stray } brace"}`,
		},
		{
			"escaped quote inside string",
			`{"text": "she said \"hi\""}`,
			`{"text": "she said \"hi\""}`,
		},
		{"truncated object", `{"a": {"b": 2}`, ""},
		{"no json at all", "plain text only", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.output); got != tt.want {
				t.Errorf("extractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckAvailability(t *testing.T) {
	if newBaseAdapter(ProviderConfig{Path: ""}, nil).checkAvailability() {
		t.Error("empty path should not be available")
	}
	if newBaseAdapter(ProviderConfig{Path: "no-such-binary-xyzzy"}, nil).checkAvailability() {
		t.Error("missing binary should not be available")
	}
	// Multi-word paths resolve the first token.
	if !newBaseAdapter(ProviderConfig{Path: "sh -c"}, nil).checkAvailability() {
		t.Error("sh should be on PATH")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("x", 20)
	got := truncate(long, 10)
	if got != strings.Repeat("x", 10)+"... [truncated]" {
		t.Errorf("truncate(long) = %q", got)
	}
}
