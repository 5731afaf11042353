package flows

import (
	"context"
	"errors"
	"text/template"

	"google.golang.org/genai"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
)

const SupportFlowName = "supportChatbotFlow"

type SupportInput struct {
	Question string `json:"question" validate:"required"`
}

type SupportOutput struct {
	Answer string `json:"answer" validate:"required"`
}

var supportPrompt = template.Must(template.New("support").Parse(
	`You are a support chatbot for the BloodLink BD app. Answer the user's questions about the app's features.

Question: {{.Question}}`))

var supportSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"answer": {Type: genai.TypeString, Description: "The answer to the user's question."},
	},
	Required: []string{"answer"},
}

// SupportFlow answers questions about the app.
type SupportFlow struct {
	flow flow[SupportInput, SupportOutput]
}

var _ ports.SupportAssistant = (*SupportFlow)(nil)

func NewSupportFlow(gen ports.Generator, m *metrics.Metrics) *SupportFlow {
	return &SupportFlow{flow: flow[SupportInput, SupportOutput]{
		name:   SupportFlowName,
		prompt: supportPrompt,
		schema: supportSchema,
		check: func(out SupportOutput) error {
			if out.Answer == "" {
				return errors.New("empty answer")
			}
			return nil
		},
		gen:     gen,
		metrics: m,
	}}
}

func (f *SupportFlow) Run(ctx context.Context, in SupportInput) (SupportOutput, error) {
	return f.flow.run(ctx, in)
}

func (f *SupportFlow) Answer(ctx context.Context, question string) (string, error) {
	out, err := f.Run(ctx, SupportInput{Question: question})
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}
