package mocks

import (
	"time"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// TestDonor builds a complete donor profile.
func TestDonor(uid, name string, group domain.BloodGroup, location, contact string) domain.UserProfile {
	return domain.UserProfile{
		UID:           uid,
		Name:          Ptr(name),
		IsDonor:       true,
		BloodGroup:    Ptr(group),
		Location:      Ptr(location),
		ContactNumber: Ptr(contact),
	}
}

// TestRequestDoc builds a complete open request document created at createdAt.
func TestRequestDoc(id, patient string, group domain.BloodGroup, urgency domain.Urgency, createdAt time.Time) domain.BloodRequestDoc {
	return domain.BloodRequest{
		ID:            id,
		RequesterUID:  "requester-" + id,
		PatientName:   patient,
		RequesterName: "Requester " + id,
		BloodGroup:    group,
		Location:      "Dhaka",
		ContactInfo:   "01711000000",
		Urgency:       urgency,
		CreatedAt:     createdAt,
		Status:        domain.RequestOpen,
	}.Doc()
}

// TestSession builds a session for clientID without signing a token.
func TestSession(id, clientID, uid, name, email string) *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:        id,
		ClientID:  clientID,
		User:      domain.SessionUser{UID: uid, Email: email, DisplayName: name},
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}
