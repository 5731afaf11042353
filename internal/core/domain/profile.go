package domain

import (
	"fmt"
	"time"
)

type BloodGroup string

const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"
)

// BloodGroups lists the accepted ABO/Rh groups in display order.
var BloodGroups = []BloodGroup{
	APositive, ANegative, BPositive, BNegative,
	ABPositive, ABNegative, OPositive, ONegative,
}

func ParseBloodGroup(s string) (BloodGroup, error) {
	for _, g := range BloodGroups {
		if string(g) == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown blood group %q", s)
}

func (g BloodGroup) Valid() bool {
	_, err := ParseBloodGroup(string(g))
	return err == nil
}

// UserProfile is the application-level record keyed by the identity uid.
// BloodGroup, Location and ContactNumber only carry meaning while IsDonor is set.
type UserProfile struct {
	UID                   string      `json:"uid"`
	Name                  *string     `json:"name"`
	Email                 *string     `json:"email"`
	IsDonor               bool        `json:"isDonor"`
	BloodGroup            *BloodGroup `json:"bloodGroup,omitempty"`
	Location              *string     `json:"location,omitempty"`
	ContactNumber         *string     `json:"contactNumber,omitempty"`
	DonorRegistrationTime *time.Time  `json:"donorRegistrationTime,omitempty"`
}

// NewDefaultProfile builds the profile created on a first successful authentication.
func NewDefaultProfile(user SessionUser) UserProfile {
	p := UserProfile{UID: user.UID, IsDonor: false}
	if user.DisplayName != "" {
		name := user.DisplayName
		p.Name = &name
	}
	if user.Email != "" {
		email := user.Email
		p.Email = &email
	}
	return p
}

// ProfilePatch enumerates the fields a merge-write may touch. Nil fields are left alone.
type ProfilePatch struct {
	Name          *string     `json:"name,omitempty"`
	Email         *string     `json:"email,omitempty"`
	IsDonor       *bool       `json:"isDonor,omitempty"`
	BloodGroup    *BloodGroup `json:"bloodGroup,omitempty"`
	Location      *string     `json:"location,omitempty"`
	ContactNumber *string     `json:"contactNumber,omitempty"`
}

// BecomesDonor reports whether the patch sets isDonor to true.
func (p ProfilePatch) BecomesDonor() bool {
	return p.IsDonor != nil && *p.IsDonor
}

// Apply merges the patch into a copy of the profile. An empty string in a
// text field clears it.
func (p ProfilePatch) Apply(profile UserProfile) UserProfile {
	if p.Name != nil {
		profile.Name = clearable(p.Name)
	}
	if p.Email != nil {
		profile.Email = clearable(p.Email)
	}
	if p.IsDonor != nil {
		profile.IsDonor = *p.IsDonor
	}
	if p.BloodGroup != nil {
		profile.BloodGroup = p.BloodGroup
	}
	if p.Location != nil {
		profile.Location = clearable(p.Location)
	}
	if p.ContactNumber != nil {
		profile.ContactNumber = clearable(p.ContactNumber)
	}
	return profile
}

func clearable(s *string) *string {
	if *s == "" {
		return nil
	}
	v := *s
	return &v
}
