package domain

import "time"

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MatchRequest is the blood request handed to the matching flow.
type MatchRequest struct {
	PatientName   string `json:"patientName" validate:"required"`
	RequesterName string `json:"requesterName" validate:"required"`
	BloodGroup    string `json:"bloodGroup" validate:"required"`
	Location      string `json:"location" validate:"required"`
	ContactInfo   string `json:"contactInfo" validate:"required"`
	Urgency       string `json:"urgency" validate:"required"`
	Notes         string `json:"notes"`
}

type MatchCandidate struct {
	FullName      string `json:"fullName" validate:"required"`
	BloodGroup    string `json:"bloodGroup" validate:"required"`
	Location      string `json:"location" validate:"required"`
	ContactNumber string `json:"contactNumber" validate:"required"`
}

type DonorMatch struct {
	DonorName     string `json:"donorName" validate:"required"`
	MatchReason   string `json:"matchReason" validate:"required"`
	ContactNumber string `json:"contactNumber" validate:"required"`
}
