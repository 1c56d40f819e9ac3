package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles database operations for community reports
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new reports repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts report and fills in its timestamp. A repeated id returns
// the stored row's timestamp instead of adding a duplicate.
func (r *Repository) Create(ctx context.Context, report *Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	query := `
		INSERT INTO upi_reports (id, upi_id, report_reason, reporter_email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING reported_at
	`

	err := r.db.QueryRow(ctx, query, report.ID, report.UPIID, report.Reason, report.ReporterEmail).
		Scan(&report.ReportedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// ListRecent returns the newest reports across all ids
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*Report, error) {
	query := `
		SELECT id, upi_id, report_reason, reporter_email, reported_at
		FROM upi_reports
		ORDER BY reported_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// ListByUPIID returns the newest reports for one id
func (r *Repository) ListByUPIID(ctx context.Context, upiID string, limit int) ([]*Report, error) {
	query := `
		SELECT id, upi_id, report_reason, reporter_email, reported_at
		FROM upi_reports
		WHERE upi_id = $1
		ORDER BY reported_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, upiID, limit)
}

// Delete removes a report. A missing row returns pgx.ErrNoRows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM upi_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*Report, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*Report, 0)
	for rows.Next() {
		rep := &Report{}
		if err := rows.Scan(&rep.ID, &rep.UPIID, &rep.Reason, &rep.ReporterEmail, &rep.ReportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}

	return reports, rows.Err()
}
