package repository

import (
	"context"
	"database/sql"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

const profileColumns = `uid, name, email, is_donor, blood_group, location, contact_number, donor_registration_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.UserProfile, error) {
	var (
		p                              domain.UserProfile
		name, email, group, loc, phone sql.NullString
		registered                     sql.NullTime
	)
	if err := row.Scan(&p.UID, &name, &email, &p.IsDonor, &group, &loc, &phone, &registered); err != nil {
		return nil, err
	}
	p.Name = nullable(name)
	p.Email = nullable(email)
	if group.Valid {
		g := domain.BloodGroup(group.String)
		p.BloodGroup = &g
	}
	p.Location = nullable(loc)
	p.ContactNumber = nullable(phone)
	p.DonorRegistrationTime = nullableTime(registered)
	return &p, nil
}

func (r *SQLRepository) FindProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	var profile *domain.UserProfile
	err := r.run(func() error {
		var err error
		profile, err = scanProfile(r.db.QueryRowContext(ctx,
			"SELECT "+profileColumns+" FROM users WHERE uid = $1", uid))
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateProfile writes the default profile. A concurrent creation for the
// same uid keeps whichever landed first.
func (r *SQLRepository) CreateProfile(ctx context.Context, p domain.UserProfile) error {
	return r.run(func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO users (uid, name, email, is_donor)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (uid) DO NOTHING`,
			p.UID, p.Name, p.Email, p.IsDonor,
		)
		return err
	})
}

// MergeProfile upserts the patch. Nil fields keep the stored value, empty
// strings clear it, and donor_registration_time is only ever filled once.
func (r *SQLRepository) MergeProfile(ctx context.Context, uid string, patch domain.ProfilePatch, stampDonorTime bool) (*domain.UserProfile, error) {
	var profile *domain.UserProfile
	err := r.run(func() error {
		var err error
		profile, err = scanProfile(r.db.QueryRowContext(ctx,
			`INSERT INTO users AS u (uid, name, email, is_donor, blood_group, location, contact_number, donor_registration_time)
			 VALUES ($1, NULLIF($2::text, ''), NULLIF($3::text, ''), COALESCE($4::boolean, FALSE), $5::text,
			         NULLIF($6::text, ''), NULLIF($7::text, ''), CASE WHEN $8::boolean THEN NOW() END)
			 ON CONFLICT (uid) DO UPDATE SET
			   name           = CASE WHEN $2::text IS NULL THEN u.name ELSE NULLIF($2::text, '') END,
			   email          = CASE WHEN $3::text IS NULL THEN u.email ELSE NULLIF($3::text, '') END,
			   is_donor       = COALESCE($4::boolean, u.is_donor),
			   blood_group    = COALESCE($5::text, u.blood_group),
			   location       = CASE WHEN $6::text IS NULL THEN u.location ELSE NULLIF($6::text, '') END,
			   contact_number = CASE WHEN $7::text IS NULL THEN u.contact_number ELSE NULLIF($7::text, '') END,
			   donor_registration_time = COALESCE(u.donor_registration_time, CASE WHEN $8::boolean THEN NOW() END),
			   updated_at     = NOW()
			 RETURNING `+profileColumns,
			uid, patch.Name, patch.Email, patch.IsDonor, patch.BloodGroup,
			patch.Location, patch.ContactNumber, stampDonorTime,
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *SQLRepository) ListDonors(ctx context.Context) ([]domain.UserProfile, error) {
	var donors []domain.UserProfile
	err := r.run(func() error {
		rows, err := r.db.QueryContext(ctx,
			"SELECT "+profileColumns+" FROM users WHERE is_donor = TRUE")
		if err != nil {
			return err
		}
		defer rows.Close()

		donors = donors[:0]
		for rows.Next() {
			p, err := scanProfile(rows)
			if err != nil {
				return err
			}
			donors = append(donors, *p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return donors, nil
}
