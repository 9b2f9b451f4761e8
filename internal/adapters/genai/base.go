package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aledesanfer/mysteryforge/internal/core"
	"github.com/aledesanfer/mysteryforge/internal/logging"
)

// ProviderConfig holds adapter configuration for a CLI-backed
// generator.
type ProviderConfig struct {
	Name        string
	Path        string
	Model       string
	ImageModel  string
	Temperature float64
	WorkDir     string
}

// baseAdapter provides common CLI execution for generator adapters.
type baseAdapter struct {
	config ProviderConfig
	logger *logging.Logger
}

func newBaseAdapter(cfg ProviderConfig, logger *logging.Logger) *baseAdapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &baseAdapter{
		config: cfg,
		logger: logger.WithGenerator(cfg.Name),
	}
}

// commandResult holds the result of a CLI execution.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// executeCommand runs the provider CLI. Deadlines come from the
// caller's context; the adapter does not impose its own.
func (b *baseAdapter) executeCommand(ctx context.Context, args []string, stdin string) (*commandResult, error) {
	cmdPath := b.config.Path
	if cmdPath == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "generator path not configured")
	}

	// Handle multi-word commands (e.g. "npx gemini")
	cmdParts := strings.Fields(cmdPath)
	if len(cmdParts) > 1 {
		cmdPath = cmdParts[0]
		args = append(cmdParts[1:], args...)
	}

	// #nosec G204 -- command path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	if b.config.WorkDir != "" {
		cmd.Dir = b.config.WorkDir
	}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "MYSTERYFORGE_MANAGED=true")

	b.logger.Debug("executing provider command",
		"path", cmdPath,
		"args", args,
		"stdin_length", len(stdin))

	startTime := time.Now()
	err := cmd.Run()
	duration := time.Since(startTime)

	result := &commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if ctx.Err() == context.DeadlineExceeded {
		b.logger.Error("provider command timed out",
			"duration", duration.String(),
			"stderr_preview", truncate(result.Stderr, 500))
		return result, ctx.Err()
	}
	if ctx.Err() == context.Canceled {
		return result, core.ErrCancelled("provider command cancelled")
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			b.logger.Error("provider command failed",
				"exit_code", result.ExitCode,
				"duration", duration.String(),
				"stderr", truncate(result.Stderr, 1000))
			return result, b.classifyError(result)
		}
		return result, core.ErrProviderUnavailable(
			fmt.Sprintf("starting %s failed", b.config.Name)).WithCause(err)
	}

	result.ExitCode = 0
	return result, nil
}

// classifyError converts command failures into domain errors so the
// retry machinery can tell transient from permanent.
func (b *baseAdapter) classifyError(result *commandResult) error {
	errorMsg := strings.TrimSpace(result.Stderr)
	if errorMsg == "" {
		errorMsg = extractErrorFromOutput(result.Stdout)
	}
	if errorMsg == "" {
		errorMsg = "(no error message captured)"
	}

	errorMsgLower := strings.ToLower(errorMsg)

	if containsAny(errorMsgLower, []string{"rate limit", "too many requests", "429", "quota", "resource exhausted"}) {
		return core.ErrRateLimit(errorMsg).WithDetail("provider", b.config.Name)
	}
	if containsAny(errorMsgLower, []string{"timeout", "deadline"}) {
		return core.ErrTimeout(errorMsg).WithDetail("provider", b.config.Name)
	}
	if containsAny(errorMsgLower, []string{"connection", "network", "unreachable", "unavailable", "503"}) {
		return core.ErrProviderUnavailable(errorMsg).WithDetail("provider", b.config.Name)
	}

	return core.ErrExecution(core.CodeGeneratorFailed,
		fmt.Sprintf("command failed with exit code %d: %s", result.ExitCode, errorMsg)).
		WithDetail("provider", b.config.Name).
		WithDetail("exit_code", result.ExitCode)
}

// extractErrorFromOutput tries to extract error messages from stdout.
// Some CLIs report errors as JSON on stdout with a clean exit to
// stderr.
func extractErrorFromOutput(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		if errMsg, ok := obj["error"].(string); ok && errMsg != "" {
			return errMsg
		}
		if errObj, ok := obj["error"].(map[string]interface{}); ok {
			if msg, ok := errObj["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && !strings.HasPrefix(line, "{") {
			return truncate(line, 200)
		}
	}
	return ""
}

// extractJSON finds and extracts the first complete JSON value from
// mixed text output.
func extractJSON(output string) string {
	start := strings.Index(output, "{")
	if start == -1 {
		start = strings.Index(output, "[")
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	openChar := output[start]
	closeChar := byte('}')
	if openChar == '[' {
		closeChar = ']'
	}

	for i := start; i < len(output); i++ {
		c := output[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return output[start : i+1]
			}
		}
	}
	return ""
}

// checkAvailability verifies the CLI is installed and on PATH.
func (b *baseAdapter) checkAvailability() bool {
	cmdPath := b.config.Path
	if cmdPath == "" {
		return false
	}
	cmdParts := strings.Fields(cmdPath)
	_, err := exec.LookPath(cmdParts[0])
	return err == nil
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... [truncated]"
}
