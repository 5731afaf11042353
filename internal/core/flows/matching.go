package flows

import (
	"context"
	"fmt"
	"text/template"

	"google.golang.org/genai"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
)

const MatchingFlowName = "aiMatchingToolFlow"

type MatchInput struct {
	BloodRequest domain.MatchRequest     `json:"bloodRequest"`
	Donors       []domain.MatchCandidate `json:"donors" validate:"dive"`
}

var matchingPrompt = template.Must(template.New("matching").Parse(
	`You are an AI assistant specialized in matching blood donors with blood requests.

Given the following blood request:

Patient Name: {{.BloodRequest.PatientName}}
Requester Name: {{.BloodRequest.RequesterName}}
Blood Group: {{.BloodRequest.BloodGroup}}
Location: {{.BloodRequest.Location}}
Contact Info: {{.BloodRequest.ContactInfo}}
Urgency: {{.BloodRequest.Urgency}}
Notes: {{.BloodRequest.Notes}}

And the following list of potential donors:
{{range .Donors}}
- Name: {{.FullName}}, Blood Group: {{.BloodGroup}}, Location: {{.Location}}, Contact Number: {{.ContactNumber}}
{{- end}}

Identify potential donor matches based on blood group compatibility, location proximity, and request urgency. Provide a list of potential donor matches with reasons for each match, and the contact number of the donor.

Consider blood group compatibility (e.g., O- can donate to all, A+ can donate to A+ and AB+), location proximity (closer is better), and request urgency (high urgency should be prioritized).

Format your response as a JSON array of objects, where each object has the following fields:
- donorName: string (Name of the potential donor)
- matchReason: string (Reason for the match)
- contactNumber: string (Contact number of the donor)
`))

var matchingSchema = &genai.Schema{
	Type:        genai.TypeArray,
	Description: "List of potential donor matches with reasons.",
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"donorName":     {Type: genai.TypeString, Description: "Name of the potential donor"},
			"matchReason":   {Type: genai.TypeString, Description: "Reason for the match (e.g., blood group compatibility, location proximity, urgency)"},
			"contactNumber": {Type: genai.TypeString, Description: "Contact number of the donor"},
		},
		Required:         []string{"donorName", "matchReason", "contactNumber"},
		PropertyOrdering: []string{"donorName", "matchReason", "contactNumber"},
	},
}

// MatchingFlow asks the model to rank donors for a request. The app does no
// matching of its own.
type MatchingFlow struct {
	flow flow[MatchInput, []domain.DonorMatch]
}

var _ ports.DonorMatcher = (*MatchingFlow)(nil)

func NewMatchingFlow(gen ports.Generator, m *metrics.Metrics) *MatchingFlow {
	return &MatchingFlow{flow: flow[MatchInput, []domain.DonorMatch]{
		name:   MatchingFlowName,
		prompt: matchingPrompt,
		schema: matchingSchema,
		check: func(out []domain.DonorMatch) error {
			for i, match := range out {
				if err := validate.Struct(match); err != nil {
					return fmt.Errorf("match %d: %w", i, err)
				}
			}
			return nil
		},
		gen:     gen,
		metrics: m,
	}}
}

func (f *MatchingFlow) Run(ctx context.Context, in MatchInput) ([]domain.DonorMatch, error) {
	matches, err := f.flow.run(ctx, in)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []domain.DonorMatch{}
	}
	return matches, nil
}

func (f *MatchingFlow) Match(ctx context.Context, req domain.MatchRequest, donors []domain.MatchCandidate) ([]domain.DonorMatch, error) {
	return f.Run(ctx, MatchInput{BloodRequest: req, Donors: donors})
}
