package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/kudoware/kudos/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: TestimonialStore implements domain.TestimonialStore.
var _ domain.TestimonialStore = (*TestimonialStore)(nil)

// TestimonialStore implements domain.TestimonialStore using SQLite.
// Update is a compare-and-set on the version column; lost races
// surface as domain.VersionConflictError, never as lost updates.
type TestimonialStore struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready store.
func New(dataSourceName string) (*TestimonialStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and
// returns a ready store. Use this when the *sql.DB has been
// pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*TestimonialStore, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &TestimonialStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *TestimonialStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other
// adapters (e.g., river).
func (s *TestimonialStore) DB() *sql.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05.000Z"

const columns = `id, author_name, author_email, content, rating, source, category_id,
	 status, version, approved_by, approved_at, rejection_reason,
	 response, response_by, response_at, created_at, updated_at`

func (s *TestimonialStore) Create(ctx context.Context, t domain.Testimonial) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO testimonials (`+columns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AuthorName, t.AuthorEmail, t.Content, t.Rating, string(t.Source), t.CategoryID,
		string(t.Status), t.Version, t.ApprovedBy, formatNullableTime(t.ApprovedAt), t.RejectionReason,
		t.Response, t.ResponseBy, formatNullableTime(t.ResponseAt),
		t.CreatedAt.Format(timeFormat),
		t.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return &domain.TransientError{Op: "inserting testimonial", Err: err}
	}
	return nil
}

func (s *TestimonialStore) GetByID(ctx context.Context, id string) (domain.Testimonial, error) {
	return scanTestimonial(s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM testimonials WHERE id = ?`, id,
	))
}

// Update applies the record while the stored version still equals
// expectedVersion, bumping the version by one. Rows lost to a
// concurrent writer come back as VersionConflictError; vanished rows
// as ErrNotFound.
func (s *TestimonialStore) Update(ctx context.Context, t domain.Testimonial, expectedVersion int64) (domain.Testimonial, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE testimonials
		 SET status = ?, approved_by = ?, approved_at = ?, rejection_reason = ?,
		     response = ?, response_by = ?, response_at = ?,
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(t.Status), t.ApprovedBy, formatNullableTime(t.ApprovedAt), t.RejectionReason,
		t.Response, t.ResponseBy, formatNullableTime(t.ResponseAt),
		now.Format(timeFormat),
		t.ID, expectedVersion,
	)
	if err != nil {
		return domain.Testimonial{}, &domain.TransientError{Op: "updating testimonial", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Testimonial{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		// Either the row is gone or another writer won the version race.
		var stored int64
		err := s.db.QueryRowContext(ctx, `SELECT version FROM testimonials WHERE id = ?`, t.ID).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Testimonial{}, domain.ErrNotFound
		}
		if err != nil {
			return domain.Testimonial{}, &domain.TransientError{Op: "checking testimonial version", Err: err}
		}
		return domain.Testimonial{}, &domain.VersionConflictError{ID: t.ID, Expected: expectedVersion}
	}

	t.Version = expectedVersion + 1
	t.UpdatedAt = now
	return t, nil
}

func (s *TestimonialStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.Testimonial, error) {
	query := `SELECT ` + columns + ` FROM testimonials`
	var clauses []string
	var args []any

	if filter.Status != nil {
		clauses = append(clauses, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	if filter.CategoryID != "" {
		clauses = append(clauses, `category_id = ?`)
		args = append(args, filter.CategoryID)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.TransientError{Op: "listing testimonials", Err: err}
	}
	defer rows.Close()

	var out []domain.Testimonial
	for rows.Next() {
		t, err := scanTestimonialFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

// Aggregate computes totals, the average rating, and per-status
// counts. CountsByStatus always includes archived rows; the policy
// only controls whether archived rows weigh into the average.
func (s *TestimonialStore) Aggregate(ctx context.Context, policy domain.StatsPolicy) (domain.Aggregate, error) {
	agg := domain.Aggregate{CountsByStatus: make(map[domain.Status]int64)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM testimonials GROUP BY status`)
	if err != nil {
		return domain.Aggregate{}, &domain.TransientError{Op: "aggregating testimonials", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return domain.Aggregate{}, fmt.Errorf("scanning status count: %w", err)
		}
		agg.CountsByStatus[domain.Status(status)] = count
		agg.Total += count
	}
	if err := rows.Err(); err != nil {
		return domain.Aggregate{}, &domain.TransientError{Op: "aggregating testimonials", Err: err}
	}

	avgQuery := `SELECT COALESCE(AVG(rating), 0) FROM testimonials`
	if policy.ExcludeArchived {
		avgQuery += ` WHERE status != 'archived'`
	}
	if err := s.db.QueryRowContext(ctx, avgQuery).Scan(&agg.AverageRating); err != nil {
		return domain.Aggregate{}, &domain.TransientError{Op: "averaging ratings", Err: err}
	}

	return agg, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeFormat)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// scanTestimonial scans a single row from QueryRow.
func scanTestimonial(row *sql.Row) (domain.Testimonial, error) {
	var t domain.Testimonial
	var status, source, createdAt, updatedAt string
	var approvedAt, responseAt sql.NullString

	err := row.Scan(
		&t.ID, &t.AuthorName, &t.AuthorEmail, &t.Content, &t.Rating, &source, &t.CategoryID,
		&status, &t.Version, &t.ApprovedBy, &approvedAt, &t.RejectionReason,
		&t.Response, &t.ResponseBy, &responseAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Testimonial{}, domain.ErrNotFound
		}
		return domain.Testimonial{}, fmt.Errorf("scanning testimonial: %w", err)
	}

	t.Status = domain.Status(status)
	t.Source = domain.Source(source)
	t.ApprovedAt = parseNullableTime(approvedAt)
	t.ResponseAt = parseNullableTime(responseAt)
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}

// scanTestimonialFromRows scans a single row from Rows (used in List).
func scanTestimonialFromRows(rows *sql.Rows) (domain.Testimonial, error) {
	var t domain.Testimonial
	var status, source, createdAt, updatedAt string
	var approvedAt, responseAt sql.NullString

	err := rows.Scan(
		&t.ID, &t.AuthorName, &t.AuthorEmail, &t.Content, &t.Rating, &source, &t.CategoryID,
		&status, &t.Version, &t.ApprovedBy, &approvedAt, &t.RejectionReason,
		&t.Response, &t.ResponseBy, &responseAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Testimonial{}, fmt.Errorf("scanning testimonial row: %w", err)
	}

	t.Status = domain.Status(status)
	t.Source = domain.Source(source)
	t.ApprovedAt = parseNullableTime(approvedAt)
	t.ResponseAt = parseNullableTime(responseAt)
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}
