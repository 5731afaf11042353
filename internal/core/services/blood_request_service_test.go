package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/forms"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
	"github.com/bloodlinkbd/bloodlink-api/internal/mocks"
)

var requester = domain.SessionUser{UID: "uid-1", Email: "jane@example.com", DisplayName: "Jane Doe"}

func TestBloodRequestService_Create(t *testing.T) {
	tests := []struct {
		name          string
		edit          func(*forms.RequestBlood)
		setupRepo     func(*mocks.MockBloodRequestRepository)
		setupPub      func(*mocks.MockRequestEventPublisher)
		wantErr       error
		wantField     string
		wantWrites    int
		wantPublishes int
	}{
		{
			name:          "stores_open_request_and_announces_it",
			wantWrites:    1,
			wantPublishes: 1,
		},
		{
			name: "notes_at_limit_pass",
			edit: func(f *forms.RequestBlood) {
				f.Notes = strings.Repeat("a", 500)
			},
			wantWrites:    1,
			wantPublishes: 1,
		},
		{
			name: "notes_over_limit_fail",
			edit: func(f *forms.RequestBlood) {
				f.Notes = strings.Repeat("a", 501)
			},
			wantField: "notes",
		},
		{
			name: "unknown_urgency_fails",
			edit: func(f *forms.RequestBlood) {
				f.Urgency = "critical"
			},
			wantField: "urgency",
		},
		{
			name: "store_failure_is_returned",
			setupRepo: func(r *mocks.MockBloodRequestRepository) {
				r.CreateRequestError = domain.ErrPermissionDenied
			},
			wantErr:    domain.ErrPermissionDenied,
			wantWrites: 1,
		},
		{
			name: "publish_failure_does_not_fail_the_request",
			setupPub: func(p *mocks.MockRequestEventPublisher) {
				p.PublishError = domain.ErrUnavailable
			},
			wantWrites:    1,
			wantPublishes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockBloodRequestRepository()
			pub := mocks.NewMockRequestEventPublisher()
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}
			if tt.setupPub != nil {
				tt.setupPub(pub)
			}
			form := janeRequest()
			if tt.edit != nil {
				tt.edit(&form)
			}

			svc := services.NewBloodRequestService(repo, pub, services.NewSubmitter(nil, nil, nil), nil)
			created, err := svc.Create(context.Background(), requester, form)

			assert.Len(t, repo.CreateRequestCalls, tt.wantWrites)
			assert.Equal(t, tt.wantPublishes, pub.GetPublishCount())
			switch {
			case tt.wantField != "":
				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.wantField, verr.Field)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, domain.RequestOpen, created.Status)
				assert.Equal(t, "uid-1", created.RequesterUID)
				assert.NotEmpty(t, created.ID)
				assert.False(t, created.CreatedAt.IsZero())
			}
		})
	}
}

func TestBloodRequestService_WithoutPublisher(t *testing.T) {
	repo := mocks.NewMockBloodRequestRepository()
	svc := services.NewBloodRequestService(repo, nil, services.NewSubmitter(nil, nil, nil), nil)

	created, err := svc.Create(context.Background(), requester, janeRequest())
	require.NoError(t, err)

	found, err := svc.Find(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Karim Uddin", found.PatientName)
	require.NotNil(t, found.HospitalName)
	assert.Equal(t, "Dhaka Medical College Hospital", *found.HospitalName)
	assert.Nil(t, found.Notes, "empty notes are not stored")

	_, err = svc.Find(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
