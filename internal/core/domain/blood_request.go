package domain

import (
	"fmt"
	"time"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

var UrgencyLevels = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh}

func ParseUrgency(s string) (Urgency, error) {
	for _, u := range UrgencyLevels {
		if string(u) == s {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown urgency %q", s)
}

type RequestStatus string

// Only RequestOpen is ever written; matched and closed are reserved.
const (
	RequestOpen    RequestStatus = "open"
	RequestMatched RequestStatus = "matched"
	RequestClosed  RequestStatus = "closed"
)

type BloodRequest struct {
	ID            string        `json:"id"`
	RequesterUID  string        `json:"requesterUid"`
	PatientName   string        `json:"patientName"`
	RequesterName string        `json:"requesterName"`
	BloodGroup    BloodGroup    `json:"bloodGroup"`
	Location      string        `json:"location"`
	HospitalName  *string       `json:"hospitalName,omitempty"`
	ContactInfo   string        `json:"contactInfo"`
	Urgency       Urgency       `json:"urgency"`
	Notes         *string       `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	Status        RequestStatus `json:"status"`
}

// NewBloodRequest is a request as submitted, before the store assigns id and createdAt.
type NewBloodRequest struct {
	RequesterUID  string
	PatientName   string
	RequesterName string
	BloodGroup    BloodGroup
	Location      string
	HospitalName  *string
	ContactInfo   string
	Urgency       Urgency
	Notes         *string
}

// BloodRequestDoc is a stored request as read back; any field may be missing.
type BloodRequestDoc struct {
	ID            string
	RequesterUID  *string
	PatientName   *string
	RequesterName *string
	BloodGroup    *string
	Location      *string
	HospitalName  *string
	ContactInfo   *string
	Urgency       *string
	Notes         *string
	CreatedAt     *time.Time
	Status        *string
}

type Hospital struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Contact  string `json:"contact"`
	ImageURL string `json:"imageUrl"`
	ImageKey string `json:"-"`
}

// Doc converts a complete request into its stored form.
func (r BloodRequest) Doc() BloodRequestDoc {
	group, urgency, status := string(r.BloodGroup), string(r.Urgency), string(r.Status)
	createdAt := r.CreatedAt
	return BloodRequestDoc{
		ID:            r.ID,
		RequesterUID:  &r.RequesterUID,
		PatientName:   &r.PatientName,
		RequesterName: &r.RequesterName,
		BloodGroup:    &group,
		Location:      &r.Location,
		HospitalName:  r.HospitalName,
		ContactInfo:   &r.ContactInfo,
		Urgency:       &urgency,
		Notes:         r.Notes,
		CreatedAt:     &createdAt,
		Status:        &status,
	}
}

// Request reads a stored document leniently; missing fields stay zero.
func (d BloodRequestDoc) Request() BloodRequest {
	r := BloodRequest{
		ID:           d.ID,
		HospitalName: d.HospitalName,
		Notes:        d.Notes,
		Status:       RequestOpen,
	}
	r.RequesterUID = str(d.RequesterUID)
	r.PatientName = str(d.PatientName)
	r.RequesterName = str(d.RequesterName)
	r.BloodGroup = BloodGroup(str(d.BloodGroup))
	r.Location = str(d.Location)
	r.ContactInfo = str(d.ContactInfo)
	r.Urgency = Urgency(str(d.Urgency))
	if d.Status != nil {
		r.Status = RequestStatus(*d.Status)
	}
	if d.CreatedAt != nil {
		r.CreatedAt = *d.CreatedAt
	}
	return r
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
