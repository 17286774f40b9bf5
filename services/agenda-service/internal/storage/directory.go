package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) PatientIDForUser(ctx context.Context, userID string) (string, error) {
	return s.profileID(ctx, `SELECT id::text FROM patients WHERE user_id = $1`, userID)
}

func (s *Store) ProfessionalIDForUser(ctx context.Context, userID string) (string, error) {
	return s.profileID(ctx, `SELECT id::text FROM professionals WHERE user_id = $1`, userID)
}

func (s *Store) profileID(ctx context.Context, sql, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}
	var id string
	err := s.q(ctx).QueryRow(ctx, sql, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (s *Store) HasActiveLink(ctx context.Context, patientID, professionalID string) (bool, error) {
	if !validID(patientID) || !validID(professionalID) {
		return false, nil
	}
	var linked bool
	err := s.q(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patient_professional_links
			WHERE patient_id = $1 AND professional_id = $2 AND active
		)
	`, patientID, professionalID).Scan(&linked)
	return linked, err
}

// EnsurePatientProfessionalLink creates the link or reactivates it.
func (s *Store) EnsurePatientProfessionalLink(ctx context.Context, patientID, professionalID string) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO patient_professional_links (patient_id, professional_id)
		VALUES ($1, $2)
		ON CONFLICT (patient_id, professional_id) DO UPDATE SET active = true
	`, patientID, professionalID)
	return err
}
