package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

const requestColumns = `id, requester_uid, patient_name, requester_name, blood_group, location,
	hospital_name, contact_info, urgency, notes, created_at, status`

func scanRequestDoc(row rowScanner) (*domain.BloodRequestDoc, error) {
	var (
		doc                                         domain.BloodRequestDoc
		requester, patient, requesterName, group    sql.NullString
		location, hospital, contact, urgency, notes sql.NullString
		status                                      sql.NullString
		createdAt                                   sql.NullTime
	)
	err := row.Scan(&doc.ID, &requester, &patient, &requesterName, &group, &location,
		&hospital, &contact, &urgency, &notes, &createdAt, &status)
	if err != nil {
		return nil, err
	}
	doc.RequesterUID = nullable(requester)
	doc.PatientName = nullable(patient)
	doc.RequesterName = nullable(requesterName)
	doc.BloodGroup = nullable(group)
	doc.Location = nullable(location)
	doc.HospitalName = nullable(hospital)
	doc.ContactInfo = nullable(contact)
	doc.Urgency = nullable(urgency)
	doc.Notes = nullable(notes)
	doc.CreatedAt = nullableTime(createdAt)
	doc.Status = nullable(status)
	return &doc, nil
}

// CreateRequest stores an open request. The id is generated here and
// created_at comes from the database clock.
func (r *SQLRepository) CreateRequest(ctx context.Context, req domain.NewBloodRequest) (*domain.BloodRequest, error) {
	var doc *domain.BloodRequestDoc
	err := r.run(func() error {
		var err error
		doc, err = scanRequestDoc(r.db.QueryRowContext(ctx,
			`INSERT INTO blood_requests
			   (id, requester_uid, patient_name, requester_name, blood_group, location,
			    hospital_name, contact_info, urgency, notes, created_at, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), $11)
			 RETURNING `+requestColumns,
			uuid.NewString(), req.RequesterUID, req.PatientName, req.RequesterName,
			string(req.BloodGroup), req.Location, req.HospitalName, req.ContactInfo,
			string(req.Urgency), req.Notes, string(domain.RequestOpen),
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	created := doc.Request()
	return &created, nil
}

func (r *SQLRepository) FindRequest(ctx context.Context, id string) (*domain.BloodRequest, error) {
	var doc *domain.BloodRequestDoc
	err := r.run(func() error {
		var err error
		doc, err = scanRequestDoc(r.db.QueryRowContext(ctx,
			"SELECT "+requestColumns+" FROM blood_requests WHERE id = $1", id))
		return err
	})
	if err != nil {
		return nil, err
	}
	req := doc.Request()
	return &req, nil
}

func (r *SQLRepository) ListOpenRequests(ctx context.Context) ([]domain.BloodRequestDoc, error) {
	var docs []domain.BloodRequestDoc
	err := r.run(func() error {
		rows, err := r.db.QueryContext(ctx,
			"SELECT "+requestColumns+` FROM blood_requests
			 WHERE status = $1
			 ORDER BY created_at DESC NULLS LAST`,
			string(domain.RequestOpen))
		if err != nil {
			return err
		}
		defer rows.Close()

		docs = docs[:0]
		for rows.Next() {
			doc, err := scanRequestDoc(rows)
			if err != nil {
				return err
			}
			docs = append(docs, *doc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
