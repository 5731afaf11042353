// Package forms declares the typed field sets accepted from clients and the
// constraints each field must satisfy before anything is written.
package forms

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

var phonePattern = regexp.MustCompile(`^[0-9+-]+$`)

type Register struct {
	Name            string `json:"name" validate:"min=3"`
	Email           string `json:"email" validate:"email"`
	Password        string `json:"password" validate:"min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

type Login struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=1"`
}

type Donate struct {
	Name          string `json:"name" validate:"min=3"`
	BloodGroup    string `json:"bloodGroup" validate:"bloodgroup"`
	Location      string `json:"location" validate:"min=3"`
	ContactNumber string `json:"contactNumber" validate:"min=10,phone"`
}

type RequestBlood struct {
	PatientName   string `json:"patientName" validate:"min=3"`
	RequesterName string `json:"requesterName" validate:"min=3"`
	BloodGroup    string `json:"bloodGroup" validate:"bloodgroup"`
	Location      string `json:"location" validate:"min=3"`
	HospitalName  string `json:"hospitalName"`
	ContactInfo   string `json:"contactInfo" validate:"min=5"`
	Urgency       string `json:"urgency" validate:"urgency"`
	Notes         string `json:"notes" validate:"max=500"`
}

// Profile fields are all optional; an empty string clears the stored value.
type Profile struct {
	Name          string `json:"name" validate:"omitempty,min=3"`
	Location      string `json:"location" validate:"omitempty,min=3"`
	ContactNumber string `json:"contactNumber" validate:"omitempty,min=10,phone"`
	BloodGroup    string `json:"bloodGroup" validate:"omitempty,bloodgroup"`
}

var messages = map[string]string{
	"name.min":            "Full name must be at least 3 characters.",
	"email.email":         "Please enter a valid email address.",
	"password.min":        "Password must be at least 8 characters.",
	"confirmPassword":     "Passwords do not match.",
	"bloodGroup":          "Blood group is required.",
	"location.min":        "Location must be at least 3 characters.",
	"contactNumber.min":   "Contact number must be at least 10 digits.",
	"contactNumber.phone": "Please enter a valid contact number.",
	"patientName.min":     "Patient name must be at least 3 characters.",
	"requesterName.min":   "Requester name must be at least 3 characters.",
	"contactInfo.min":     "Valid contact information is required.",
	"urgency":             "Urgency level is required.",
	"notes.max":           "Notes cannot exceed 500 characters.",
}

// loginMessages override the shared table where the login form words things differently.
var loginMessages = map[string]string{
	"password.min": "Password is required.",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("bloodgroup", func(fl validator.FieldLevel) bool {
		return domain.BloodGroup(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("urgency", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseUrgency(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks form and returns the first failing field as a
// *domain.ValidationError, or nil.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ValidationError{Field: "form", Message: err.Error()}
	}

	var overrides map[string]string
	if o, ok := form.(overrider); ok {
		overrides = o.messageOverrides()
	}

	first := verrs[0]
	return &domain.ValidationError{
		Field:   first.Field(),
		Message: messageFor(first.Field(), first.Tag(), overrides),
	}
}

type overrider interface {
	messageOverrides() map[string]string
}

func (Login) messageOverrides() map[string]string {
	return loginMessages
}

func messageFor(field, tag string, overrides map[string]string) string {
	key := field + "." + tag
	if msg, ok := overrides[key]; ok {
		return msg
	}
	if msg, ok := messages[key]; ok {
		return msg
	}
	if msg, ok := messages[field]; ok {
		return msg
	}
	return "Invalid value."
}

// NewRequest converts a validated request form into a store write.
func (f RequestBlood) NewRequest(requesterUID string) domain.NewBloodRequest {
	return domain.NewBloodRequest{
		RequesterUID:  requesterUID,
		PatientName:   f.PatientName,
		RequesterName: f.RequesterName,
		BloodGroup:    domain.BloodGroup(f.BloodGroup),
		Location:      f.Location,
		HospitalName:  optional(f.HospitalName),
		ContactInfo:   f.ContactInfo,
		Urgency:       domain.Urgency(f.Urgency),
		Notes:         optional(f.Notes),
	}
}

// Patch turns a validated donor registration into a profile merge that flags the donor.
func (f Donate) Patch() domain.ProfilePatch {
	isDonor := true
	group := domain.BloodGroup(f.BloodGroup)
	return domain.ProfilePatch{
		Name:          &f.Name,
		IsDonor:       &isDonor,
		BloodGroup:    &group,
		Location:      &f.Location,
		ContactNumber: &f.ContactNumber,
	}
}

// Patch turns a validated profile form into a merge. Blood group is only
// carried for donors.
func (f Profile) Patch(isDonor bool) domain.ProfilePatch {
	name := f.Name
	patch := domain.ProfilePatch{Name: &name}
	if f.Location != "" {
		patch.Location = &f.Location
	}
	if f.ContactNumber != "" {
		patch.ContactNumber = &f.ContactNumber
	}
	if isDonor && f.BloodGroup != "" {
		group := domain.BloodGroup(f.BloodGroup)
		patch.BloodGroup = &group
	}
	return patch
}

// RequestDefaults are the values the request form resets to, prefilled from the profile.
func RequestDefaults(profile *domain.UserProfile) RequestBlood {
	var f RequestBlood
	if profile == nil {
		return f
	}
	f.RequesterName = deref(profile.Name)
	f.Location = deref(profile.Location)
	f.ContactInfo = deref(profile.ContactNumber)
	return f
}

// DonateDefaults prefills the donor form from an existing profile.
func DonateDefaults(profile *domain.UserProfile) Donate {
	var f Donate
	if profile == nil {
		return f
	}
	f.Name = deref(profile.Name)
	if profile.BloodGroup != nil {
		f.BloodGroup = string(*profile.BloodGroup)
	}
	f.Location = deref(profile.Location)
	f.ContactNumber = deref(profile.ContactNumber)
	return f
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
