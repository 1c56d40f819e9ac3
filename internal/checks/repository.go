package checks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const checkColumns = `id, upi_id, is_suspicious, domain, reasons, status, checked_at`

// Repository handles database operations for checks
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new checks repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts check and fills in its timestamp. Inserting an id that
// already exists returns the stored row's timestamp, so a retry after a lost
// response does not add a second row.
func (r *Repository) Create(ctx context.Context, check *Check) error {
	reasons, err := json.Marshal(check.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}
	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}

	query := `
		INSERT INTO upi_checks (id, upi_id, is_suspicious, domain, reasons, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING checked_at
	`

	err = r.db.QueryRow(ctx, query,
		check.ID,
		check.UPIID,
		check.IsSuspicious,
		check.Domain,
		reasons,
		check.Status,
	).Scan(&check.CheckedAt)
	if err != nil {
		return fmt.Errorf("failed to create check: %w", err)
	}
	return nil
}

// GetByID retrieves a check. A missing row returns pgx.ErrNoRows.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Check, error) {
	query := `SELECT ` + checkColumns + ` FROM upi_checks WHERE id = $1`

	check, err := scanCheck(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return check, nil
}

// ListRecent returns the newest checks
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*Check, error) {
	query := `SELECT ` + checkColumns + ` FROM upi_checks ORDER BY checked_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	defer rows.Close()
	return collectChecks(rows)
}

// List returns one page of checks plus the total count
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Check, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM upi_checks`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count checks: %w", err)
	}

	query := `SELECT ` + checkColumns + ` FROM upi_checks ORDER BY checked_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list checks: %w", err)
	}
	defer rows.Close()

	checks, err := collectChecks(rows)
	if err != nil {
		return nil, 0, err
	}
	return checks, total, nil
}

func collectChecks(rows pgx.Rows) ([]*Check, error) {
	checks := make([]*Check, 0)
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		checks = append(checks, check)
	}
	return checks, rows.Err()
}

func scanCheck(row pgx.Row) (*Check, error) {
	check := &Check{}
	var reasons []byte
	if err := row.Scan(
		&check.ID,
		&check.UPIID,
		&check.IsSuspicious,
		&check.Domain,
		&reasons,
		&check.Status,
		&check.CheckedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reasons, &check.Reasons); err != nil {
		return nil, fmt.Errorf("failed to decode reasons: %w", err)
	}
	if check.Reasons == nil {
		check.Reasons = []string{}
	}
	return check, nil
}
