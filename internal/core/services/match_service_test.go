package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/flows"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
	"github.com/bloodlinkbd/bloodlink-api/internal/mocks"
)

const oneMatch = `[{"donorName":"Rahim","matchReason":"Compatible and nearby","contactNumber":"01711111111"}]`

func newMatchService(gen *mocks.MockGenerator) (*services.MatchService, *mocks.MockProfileRepository, *mocks.MockBloodRequestRepository) {
	profiles := mocks.NewMockProfileRepository()
	requests := mocks.NewMockBloodRequestRepository()
	donors := services.NewDonorDirectory(profiles, nil, nil)
	return services.NewMatchService(flows.NewMatchingFlow(gen, nil), requests, donors), profiles, requests
}

func TestMatchService_StoredRequestAndDirectoryDonors(t *testing.T) {
	gen := mocks.NewMockGenerator(oneMatch)
	svc, profiles, requests := newMatchService(gen)
	profiles.SeedProfile(mocks.TestDonor("d1", "Rahim", domain.ONegative, "Dhaka", "01711111111"))
	requests.SeedDoc(mocks.TestRequestDoc("req-1", "Karim Uddin", domain.ONegative, domain.UrgencyHigh, time.Now()))

	matches, err := svc.Suggest(context.Background(), services.SuggestInput{RequestID: "req-1"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Rahim", matches[0].DonorName)

	prompt := gen.LastPrompt().Text
	assert.Contains(t, prompt, "Patient Name: Karim Uddin")
	assert.Contains(t, prompt, "- Name: Rahim, Blood Group: O-")
	assert.Equal(t, 1, profiles.ListDonorsCalls)
}

func TestMatchService_InlineRequestAndDonors(t *testing.T) {
	gen := mocks.NewMockGenerator(oneMatch)
	svc, profiles, _ := newMatchService(gen)

	_, err := svc.Suggest(context.Background(), services.SuggestInput{
		BloodRequest: &domain.MatchRequest{
			PatientName:   "Karim Uddin",
			RequesterName: "Jane Doe",
			BloodGroup:    "O-",
			Location:      "Dhaka",
			ContactInfo:   "01712345678",
			Urgency:       "high",
		},
		Donors: []domain.MatchCandidate{
			{FullName: "Rahim", BloodGroup: "O-", Location: "Dhaka", ContactNumber: "01711111111"},
		},
	})
	require.NoError(t, err)
	assert.Zero(t, profiles.ListDonorsCalls, "supplied donors skip the directory")
}

func TestMatchService_Errors(t *testing.T) {
	t.Run("no_request", func(t *testing.T) {
		svc, _, _ := newMatchService(mocks.NewMockGenerator(oneMatch))
		_, err := svc.Suggest(context.Background(), services.SuggestInput{})
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "bloodRequest", verr.Field)
	})

	t.Run("unknown_request", func(t *testing.T) {
		svc, _, _ := newMatchService(mocks.NewMockGenerator(oneMatch))
		_, err := svc.Suggest(context.Background(), services.SuggestInput{RequestID: "missing"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("directory_unavailable", func(t *testing.T) {
		svc, profiles, requests := newMatchService(mocks.NewMockGenerator(oneMatch))
		requests.SeedDoc(mocks.TestRequestDoc("req-1", "Karim Uddin", domain.ONegative, domain.UrgencyHigh, time.Now()))
		profiles.ListDonorsError = domain.ErrPermissionDenied

		_, err := svc.Suggest(context.Background(), services.SuggestInput{RequestID: "req-1"})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})
}
