package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

func (s *Store) FindAvailabilityWindows(ctx context.Context, professionalID string, day model.Weekday) ([]model.AvailabilityWindow, error) {
	if !validID(professionalID) {
		return nil, nil
	}
	rows, err := s.q(ctx).Query(ctx, `
		SELECT id, weekday, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), COALESCE(granularity_minutes, 0)
		FROM availability_windows
		WHERE professional_id = $1 AND weekday = $2
		ORDER BY start_time
	`, professionalID, int16(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityWindow
	for rows.Next() {
		var (
			w          model.AvailabilityWindow
			weekday    int16
			start, end string
			gran       int16
		)
		if err := rows.Scan(&w.ID, &weekday, &start, &end, &gran); err != nil {
			return nil, err
		}
		if w.Start, err = model.ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		if w.End, err = model.ParseTimeOfDay(end); err != nil {
			return nil, err
		}
		w.ProfessionalID = professionalID
		w.Weekday = model.Weekday(weekday)
		w.Granularity = model.Granularity(gran)
		out = append(out, w)
	}
	return out, rows.Err()
}

// ReplaceAvailabilityWindows deletes the professional's windows and inserts
// the new set in one transaction.
func (s *Store) ReplaceAvailabilityWindows(ctx context.Context, professionalID string, windows []model.AvailabilityWindow) error {
	return s.InTx(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		if _, err := q.Exec(ctx, `DELETE FROM availability_windows WHERE professional_id = $1`, professionalID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, w := range windows {
			var gran *int16
			if w.Granularity != 0 {
				g := int16(w.Granularity)
				gran = &g
			}
			batch.Queue(`
				INSERT INTO availability_windows (professional_id, weekday, start_time, end_time, granularity_minutes)
				VALUES ($1, $2, $3::time, $4::time, $5)
			`, professionalID, int16(w.Weekday), w.Start.String(), w.End.String(), gran)
		}
		tx := q.(pgx.Tx)
		return tx.SendBatch(ctx, batch).Close()
	})
}
