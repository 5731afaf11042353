package ports

import (
	"context"

	"google.golang.org/genai"
)

// Prompt is a rendered flow prompt plus the schema its output must follow.
type Prompt struct {
	Name   string
	Text   string
	Schema *genai.Schema
}

type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
