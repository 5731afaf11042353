package flows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/flows"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
	"github.com/bloodlinkbd/bloodlink-api/internal/mocks"
)

func urgentRequest() domain.MatchRequest {
	return domain.MatchRequest{
		PatientName:   "Karim Uddin",
		RequesterName: "Jane Doe",
		BloodGroup:    "O-",
		Location:      "Dhaka",
		ContactInfo:   "01712345678",
		Urgency:       "high",
		Notes:         "Surgery tomorrow morning",
	}
}

func donors() []domain.MatchCandidate {
	return []domain.MatchCandidate{
		{FullName: "Rahim", BloodGroup: "O-", Location: "Dhaka", ContactNumber: "01711111111"},
		{FullName: "Salma", BloodGroup: "A+", Location: "Sylhet", ContactNumber: "01733333333"},
	}
}

func TestSupportFlow_Answer(t *testing.T) {
	gen := mocks.NewMockGenerator(`{"answer":"Open the Donate page and fill in the form."}`)
	m := metrics.New()
	flow := flows.NewSupportFlow(gen, m)

	answer, err := flow.Answer(context.Background(), "How do I become a donor?")
	require.NoError(t, err)
	assert.Equal(t, "Open the Donate page and fill in the form.", answer)

	prompt := gen.LastPrompt()
	assert.Equal(t, flows.SupportFlowName, prompt.Name)
	assert.Contains(t, prompt.Text, "support chatbot for the BloodLink BD app")
	assert.Contains(t, prompt.Text, "Question: How do I become a donor?")
	require.NotNil(t, prompt.Schema)
	assert.Equal(t, genai.TypeObject, prompt.Schema.Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowCalls.WithLabelValues(flows.SupportFlowName, "ok")))
}

func TestSupportFlow_Failures(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		setupGen  func(*mocks.MockGenerator)
		wantErr   error
		wantField string
		wantCalls int
	}{
		{
			name:      "empty_question_is_rejected_before_the_call",
			question:  "",
			setupGen:  func(*mocks.MockGenerator) {},
			wantField: "SupportInput.Question",
			wantCalls: 0,
		},
		{
			name:     "generator_error_is_wrapped",
			question: "Hello?",
			setupGen: func(g *mocks.MockGenerator) {
				g.GenerateError = domain.ErrUnavailable
			},
			wantErr:   domain.ErrUnavailable,
			wantCalls: 1,
		},
		{
			name:     "non_json_output",
			question: "Hello?",
			setupGen: func(g *mocks.MockGenerator) {
				g.Response = "I am not JSON"
			},
			wantErr:   domain.ErrInvalidFlowOutput,
			wantCalls: 1,
		},
		{
			name:     "missing_answer",
			question: "Hello?",
			setupGen: func(g *mocks.MockGenerator) {
				g.Response = `{"reply":"wrong field"}`
			},
			wantErr:   domain.ErrInvalidFlowOutput,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := mocks.NewMockGenerator(`{"answer":"ok"}`)
			tt.setupGen(gen)

			_, err := flows.NewSupportFlow(gen, nil).Answer(context.Background(), tt.question)
			require.Error(t, err)
			if tt.wantField != "" {
				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.wantField, verr.Field)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCalls, gen.CallCount())
		})
	}
}

func TestFlows_DisabledWithoutGenerator(t *testing.T) {
	_, err := flows.NewSupportFlow(nil, nil).Answer(context.Background(), "Hello?")
	assert.ErrorIs(t, err, domain.ErrFlowDisabled)

	_, err = flows.NewMatchingFlow(nil, nil).Match(context.Background(), urgentRequest(), donors())
	assert.ErrorIs(t, err, domain.ErrFlowDisabled)
}

func TestMatchingFlow_Match(t *testing.T) {
	gen := mocks.NewMockGenerator(`[
		{"donorName":"Rahim","matchReason":"O- matches O- and is in Dhaka","contactNumber":"01711111111"}
	]`)
	flow := flows.NewMatchingFlow(gen, nil)

	matches, err := flow.Match(context.Background(), urgentRequest(), donors())
	require.NoError(t, err)
	assert.Equal(t, []domain.DonorMatch{{
		DonorName:     "Rahim",
		MatchReason:   "O- matches O- and is in Dhaka",
		ContactNumber: "01711111111",
	}}, matches)

	prompt := gen.LastPrompt()
	assert.Equal(t, flows.MatchingFlowName, prompt.Name)
	assert.Contains(t, prompt.Text, "Patient Name: Karim Uddin")
	assert.Contains(t, prompt.Text, "Urgency: high")
	assert.Contains(t, prompt.Text, "- Name: Rahim, Blood Group: O-, Location: Dhaka, Contact Number: 01711111111")
	assert.Contains(t, prompt.Text, "- Name: Salma, Blood Group: A+, Location: Sylhet, Contact Number: 01733333333")
	require.NotNil(t, prompt.Schema)
	assert.Equal(t, genai.TypeArray, prompt.Schema.Type)
	assert.Equal(t, []string{"donorName", "matchReason", "contactNumber"}, prompt.Schema.Items.Required)
}

func TestMatchingFlow_EmptyResults(t *testing.T) {
	for _, raw := range []string{"[]", "null"} {
		t.Run(raw, func(t *testing.T) {
			matches, err := flows.NewMatchingFlow(mocks.NewMockGenerator(raw), nil).
				Match(context.Background(), urgentRequest(), nil)
			require.NoError(t, err)
			assert.NotNil(t, matches)
			assert.Empty(t, matches)
		})
	}
}

func TestMatchingFlow_RejectsBadInputAndOutput(t *testing.T) {
	t.Run("request_missing_blood_group", func(t *testing.T) {
		gen := mocks.NewMockGenerator("[]")
		req := urgentRequest()
		req.BloodGroup = ""

		_, err := flows.NewMatchingFlow(gen, nil).Match(context.Background(), req, donors())
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "MatchInput.BloodRequest.BloodGroup", verr.Field)
		assert.Zero(t, gen.CallCount())
	})

	t.Run("donor_missing_contact", func(t *testing.T) {
		gen := mocks.NewMockGenerator("[]")
		list := donors()
		list[1].ContactNumber = ""

		_, err := flows.NewMatchingFlow(gen, nil).Match(context.Background(), urgentRequest(), list)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "MatchInput.Donors[1].ContactNumber", verr.Field)
		assert.Zero(t, gen.CallCount())
	})

	t.Run("match_without_reason", func(t *testing.T) {
		gen := mocks.NewMockGenerator(`[{"donorName":"Rahim","contactNumber":"01711111111"}]`)
		_, err := flows.NewMatchingFlow(gen, nil).Match(context.Background(), urgentRequest(), donors())
		assert.ErrorIs(t, err, domain.ErrInvalidFlowOutput)
	})

	t.Run("object_instead_of_array", func(t *testing.T) {
		gen := mocks.NewMockGenerator(`{"donorName":"Rahim"}`)
		_, err := flows.NewMatchingFlow(gen, nil).Match(context.Background(), urgentRequest(), donors())
		assert.ErrorIs(t, err, domain.ErrInvalidFlowOutput)
	})
}
