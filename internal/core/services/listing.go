package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
)

const requestDateLayout = "Jan 2, 2006"

var (
	donorsEmpty = domain.CallToAction{
		Message: "No donors are registered yet. Be the first to help save a life.",
		Label:   "Become a Donor",
		Href:    "/donate",
	}
	requestsEmpty = domain.CallToAction{
		Message: "There are no open blood requests right now.",
		Label:   "Request Blood",
		Href:    "/request-blood",
	}
)

// listFailure turns a store error into the message shown in place of rows.
func listFailure(err error) *domain.ListFailure {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return &domain.ListFailure{
			Kind:    domain.ListPermissionDenied,
			Message: "You do not have permission to view this list. Please sign in and try again.",
		}
	case errors.Is(err, domain.ErrMissingIndex):
		return &domain.ListFailure{
			Kind:    domain.ListMissingIndex,
			Message: "This list is not ready yet. Please try again later.",
		}
	default:
		return &domain.ListFailure{
			Kind:    domain.ListGeneric,
			Message: "Could not load the list. Please try again later.",
		}
	}
}

func readyView[T any](rows []T, empty domain.CallToAction) domain.ListView[T] {
	view := domain.ListView[T]{State: domain.ListReady, Rows: rows}
	if len(rows) == 0 {
		view.Rows = []T{}
		view.Empty = &empty
	}
	return view
}

func errorView[T any](err error) domain.ListView[T] {
	return domain.ListView[T]{State: domain.ListError, Rows: []T{}, Failure: listFailure(err)}
}

// missingFields names every required field that is absent or empty.
func missingFields(fields map[string]*string) []string {
	var missing []string
	for name, v := range fields {
		if v == nil || *v == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// DonorDirectory lists profiles flagged as donors.
type DonorDirectory struct {
	profiles ports.ProfileRepository
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewDonorDirectory(profiles ports.ProfileRepository, logger *zap.Logger, m *metrics.Metrics) *DonorDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DonorDirectory{profiles: profiles, logger: logger, metrics: m}
}

// List fetches donors once and maps them in store order, dropping any profile
// that lacks a display field.
func (d *DonorDirectory) List(ctx context.Context) domain.ListView[domain.DonorRow] {
	rows, err := d.rows(ctx)
	if err != nil {
		d.logger.Error("failed to list donors", zap.Error(err))
		return errorView[domain.DonorRow](err)
	}
	return readyView(rows, donorsEmpty)
}

func (d *DonorDirectory) rows(ctx context.Context) ([]domain.DonorRow, error) {
	profiles, err := d.profiles.ListDonors(ctx)
	if err != nil {
		return nil, err
	}

	return lo.FilterMap(profiles, func(p domain.UserProfile, _ int) (domain.DonorRow, bool) {
		var group *string
		if p.BloodGroup != nil {
			g := string(*p.BloodGroup)
			group = &g
		}
		missing := missingFields(map[string]*string{
			"name":          p.Name,
			"bloodGroup":    group,
			"location":      p.Location,
			"contactNumber": p.ContactNumber,
		})
		if len(missing) > 0 {
			d.logger.Warn("skipping malformed donor profile",
				zap.String("uid", p.UID),
				zap.Strings("missing", missing))
			d.metrics.DocumentSkipped("donors")
			return domain.DonorRow{}, false
		}
		return domain.DonorRow{
			UID:           p.UID,
			Name:          *p.Name,
			BloodGroup:    *group,
			Location:      *p.Location,
			ContactNumber: *p.ContactNumber,
		}, true
	}), nil
}

// Candidates returns the donors in the shape the matching flow expects.
func (d *DonorDirectory) Candidates(ctx context.Context) ([]domain.MatchCandidate, error) {
	rows, err := d.rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	return lo.Map(rows, func(r domain.DonorRow, _ int) domain.MatchCandidate {
		return domain.MatchCandidate{
			FullName:      r.Name,
			BloodGroup:    r.BloodGroup,
			Location:      r.Location,
			ContactNumber: r.ContactNumber,
		}
	}), nil
}

// RequestBoard lists open blood requests, newest first.
type RequestBoard struct {
	requests ports.BloodRequestRepository
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewRequestBoard(requests ports.BloodRequestRepository, logger *zap.Logger, m *metrics.Metrics) *RequestBoard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestBoard{requests: requests, logger: logger, metrics: m}
}

// List maps open requests in query order. now anchors the relative age.
func (b *RequestBoard) List(ctx context.Context, now time.Time) domain.ListView[domain.RequestRow] {
	docs, err := b.requests.ListOpenRequests(ctx)
	if err != nil {
		b.logger.Error("failed to list blood requests", zap.Error(err))
		return errorView[domain.RequestRow](err)
	}

	rows := lo.FilterMap(docs, func(doc domain.BloodRequestDoc, _ int) (domain.RequestRow, bool) {
		id := doc.ID
		missing := missingFields(map[string]*string{
			"id":          &id,
			"patientName": doc.PatientName,
			"bloodGroup":  doc.BloodGroup,
			"location":    doc.Location,
			"contactInfo": doc.ContactInfo,
			"urgency":     doc.Urgency,
		})
		if doc.CreatedAt == nil {
			missing = append(missing, "createdAt")
		}
		if len(missing) > 0 {
			b.logger.Warn("skipping malformed blood request",
				zap.String("id", doc.ID),
				zap.Strings("missing", missing))
			b.metrics.DocumentSkipped("requests")
			return domain.RequestRow{}, false
		}

		row := domain.RequestRow{
			ID:           doc.ID,
			PatientName:  *doc.PatientName,
			BloodGroup:   *doc.BloodGroup,
			Location:     *doc.Location,
			HospitalName: doc.HospitalName,
			ContactInfo:  *doc.ContactInfo,
			Urgency:      *doc.Urgency,
			Notes:        doc.Notes,
			CreatedAt:    doc.CreatedAt.Format(requestDateLayout),
			RelativeAge:  humanize.RelTime(*doc.CreatedAt, now, "ago", "from now"),
		}
		if doc.RequesterName != nil {
			row.RequesterName = *doc.RequesterName
		}
		return row, true
	})

	return readyView(rows, requestsEmpty)
}

// HospitalDirectory serves the static hospital and blood bank listing.
type HospitalDirectory struct {
	bucket string
}

func NewHospitalDirectory(storageBucket string) *HospitalDirectory {
	return &HospitalDirectory{bucket: storageBucket}
}

const placeholderImage = "https://placehold.co/600x400.png"

var sampleHospitals = []domain.Hospital{
	{ID: "h1", Name: "Dhaka Medical College Hospital", Address: "Dhaka University Campus, Dhaka 1000", Contact: "+880 2 55165001", ImageKey: "hospitals/h1.jpg"},
	{ID: "h2", Name: "Bangabandhu Sheikh Mujib Medical University (BSMMU)", Address: "Shahbag, Dhaka 1000", Contact: "+880 2 55165600", ImageKey: "hospitals/h2.jpg"},
	{ID: "h3", Name: "Square Hospitals Ltd.", Address: "18/F, Bir Uttam Qazi Nuruzzaman Sarak, West Panthapath, Dhaka 1205", Contact: "10616", ImageKey: "hospitals/h3.jpg"},
	{ID: "h4", Name: "United Hospital Limited", Address: "Plot 15, Road 71, Gulshan, Dhaka 1212", Contact: "10666", ImageKey: "hospitals/h4.jpg"},
	{ID: "h5", Name: "Chittagong Medical College Hospital", Address: "Chittagong Medical College Rd, Chattogram", Contact: "+880 31 630722", ImageKey: "hospitals/h5.jpg"},
	{ID: "h6", Name: "Quantum Foundation Blood Bank", Address: "31/V Shilpacharya Zainul Abedin Sarak, (Old 119 Shantinagar), Dhaka-1217", Contact: "+8801714047626", ImageKey: "hospitals/h6.jpg"},
}

func (h *HospitalDirectory) List() domain.ListView[domain.Hospital] {
	rows := lo.Map(sampleHospitals, func(hosp domain.Hospital, _ int) domain.Hospital {
		hosp.ImageURL = h.imageURL(hosp.ImageKey)
		return hosp
	})
	return readyView(rows, domain.CallToAction{})
}

// imageURL resolves an object key against the storage bucket. Without a bucket every hospital gets the placeholder.
func (h *HospitalDirectory) imageURL(key string) string {
	if h.bucket == "" || key == "" {
		return placeholderImage
	}
	return (&url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: "/" + h.bucket + "/" + key}).String()
}
