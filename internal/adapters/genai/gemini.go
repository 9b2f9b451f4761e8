package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aledesanfer/mysteryforge/internal/core"
	"github.com/aledesanfer/mysteryforge/internal/logging"
)

// GeminiGenerator implements core.ContentGenerator and
// core.ImageGenerator through the Gemini CLI.
type GeminiGenerator struct {
	*baseAdapter
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(cfg ProviderConfig, logger *logging.Logger) *GeminiGenerator {
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.Path == "" {
		cfg.Path = "gemini"
	}
	return &GeminiGenerator{
		baseAdapter: newBaseAdapter(cfg, logger),
	}
}

// Name returns the generator name.
func (g *GeminiGenerator) Name() string {
	return g.config.Name
}

// IsAvailable reports whether the Gemini CLI is on PATH.
func (g *GeminiGenerator) IsAvailable(_ context.Context) bool {
	return g.checkAvailability()
}

// Generate runs one structured-content request. The prompt is passed
// on stdin; the schema rides in the prompt preamble because the CLI
// has no schema flag.
func (g *GeminiGenerator) Generate(ctx context.Context, req core.ContentRequest) (*core.ContentResult, error) {
	args := []string{"--output-format", "json", "--approval-mode", "yolo"}
	if g.config.Model != "" {
		args = append(args, "--model", g.config.Model)
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = g.config.Temperature
	}
	if temperature > 0 {
		args = append(args, "--temperature", strconv.FormatFloat(temperature, 'f', 2, 64))
	}

	result, err := g.executeCommand(ctx, args, g.buildStdin(req))
	if err != nil {
		return nil, err
	}

	raw := extractJSON(result.Stdout)
	if raw == "" {
		return nil, core.ErrInvalidResponse(
			fmt.Sprintf("%s produced no JSON for stage %s", g.config.Name, req.Stage))
	}
	// The CLI wraps the model response in an envelope on some
	// versions; unwrap when present.
	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err == nil && envelope.Response != "" {
		if inner := extractJSON(envelope.Response); inner != "" {
			raw = inner
		}
	}

	return &core.ContentResult{
		Raw:      []byte(raw),
		Model:    g.config.Model,
		Duration: result.Duration,
	}, nil
}

func (g *GeminiGenerator) buildStdin(req core.ContentRequest) string {
	stdin := req.Prompt
	if len(req.Schema) > 0 {
		stdin = fmt.Sprintf(
			"%s\n\nRespond with a single JSON object that validates against this JSON Schema, and nothing else:\n%s",
			req.Prompt, string(req.Schema))
	}
	return stdin
}

// GenerateImage generates one portrait and writes it to the requested
// path.
func (g *GeminiGenerator) GenerateImage(ctx context.Context, req core.ImageRequest) error {
	model := g.config.ImageModel
	if model == "" {
		model = "imagen-3.0-generate-002"
	}

	args := []string{
		"image", "generate",
		"--model", model,
		"--output", req.OutputPath,
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return core.ErrExecution(core.CodeGeneratorFailed,
			"creating image output directory failed").WithCause(err)
	}

	if _, err := g.executeCommand(ctx, args, req.Prompt); err != nil {
		return err
	}

	if info, err := os.Stat(req.OutputPath); err != nil || info.Size() == 0 {
		return core.ErrInvalidResponse(
			fmt.Sprintf("%s reported success but wrote no image for %s", g.config.Name, req.Subject))
	}
	return nil
}

// imageGeneratorAdapter narrows GeminiGenerator to the image port so
// Generate's two meanings do not collide.
type imageGeneratorAdapter struct {
	g *GeminiGenerator
}

// ImagePort returns the generator's core.ImageGenerator view.
func (g *GeminiGenerator) ImagePort() core.ImageGenerator {
	return imageGeneratorAdapter{g: g}
}

func (a imageGeneratorAdapter) Name() string { return a.g.Name() + "-images" }

func (a imageGeneratorAdapter) Generate(ctx context.Context, req core.ImageRequest) error {
	return a.g.GenerateImage(ctx, req)
}

func (a imageGeneratorAdapter) IsAvailable(ctx context.Context) bool {
	return a.g.IsAvailable(ctx)
}
