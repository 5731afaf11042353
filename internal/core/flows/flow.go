// Package flows declares the two prompt flows the app hands to a generative
// model: the support assistant and the donor matcher. Each flow checks its
// input before the call and its decoded output after it.
package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	"github.com/go-playground/validator/v10"
	"google.golang.org/genai"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type flow[In, Out any] struct {
	name    string
	prompt  *template.Template
	schema  *genai.Schema
	check   func(Out) error
	gen     ports.Generator
	metrics *metrics.Metrics
}

func (f *flow[In, Out]) run(ctx context.Context, in In) (Out, error) {
	var out Out

	if f.gen == nil {
		return out, domain.ErrFlowDisabled
	}
	if err := checkStruct(in); err != nil {
		f.metrics.FlowCalled(f.name, "rejected")
		return out, err
	}

	var text bytes.Buffer
	if err := f.prompt.Execute(&text, in); err != nil {
		return out, fmt.Errorf("render %s prompt: %w", f.name, err)
	}

	raw, err := f.gen.Generate(ctx, ports.Prompt{
		Name:   f.name,
		Text:   text.String(),
		Schema: f.schema,
	})
	if err != nil {
		f.metrics.FlowCalled(f.name, "error")
		return out, fmt.Errorf("%s: %w", f.name, err)
	}

	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		f.metrics.FlowCalled(f.name, "invalid")
		return out, fmt.Errorf("%s: decode output: %w: %v", f.name, domain.ErrInvalidFlowOutput, err)
	}
	if err := f.check(out); err != nil {
		f.metrics.FlowCalled(f.name, "invalid")
		return out, fmt.Errorf("%s: %w: %v", f.name, domain.ErrInvalidFlowOutput, err)
	}

	f.metrics.FlowCalled(f.name, "ok")
	return out, nil
}

// checkStruct reports the first failing field as a *domain.ValidationError.
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &domain.ValidationError{
			Field:   verrs[0].Namespace(),
			Message: fmt.Sprintf("failed %q constraint", verrs[0].Tag()),
		}
	}
	return &domain.ValidationError{Field: "input", Message: err.Error()}
}
