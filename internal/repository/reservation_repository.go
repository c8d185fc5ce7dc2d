package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/table-booking/internal/model"
)

// ReservationRepo stores reservations in a MySQL table.  It implements the
// same query/update contract as the document store and is selected with
// STORE_DRIVER=mysql.  All timestamp fields are stored in UTC and the
// reservation day lives in a DATE column so that "same calendar day"
// filtering is an equality test.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for health checks.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationsSchema = `CREATE TABLE IF NOT EXISTS reservations (
    id               CHAR(36)     NOT NULL PRIMARY KEY,
    customer_name    VARCHAR(255) NOT NULL,
    phone_number     VARCHAR(64)  NOT NULL,
    email            VARCHAR(255) NOT NULL DEFAULT '',
    number_of_people INT          NOT NULL,
    date             DATE         NOT NULL,
    time             CHAR(5)      NOT NULL,
    special_requests TEXT         NOT NULL,
    source           VARCHAR(16)  NOT NULL,
    status           VARCHAR(16)  NOT NULL,
    table_label      VARCHAR(64)  NULL,
    notes            TEXT         NOT NULL,
    created_at       DATETIME(3)  NOT NULL,
    updated_at       DATETIME(3)  NOT NULL,
    KEY idx_reservations_date_status (date, status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the reservations table when it does not exist yet.
func (r *ReservationRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, reservationsSchema); err != nil {
		return fmt.Errorf("create reservations table: %w", err)
	}
	return nil
}

const reservationColumns = `id, customer_name, phone_number, email, number_of_people, date, time,
    special_requests, source, status, table_label, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanReservation reads one row in reservationColumns order.
func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		res    model.Reservation
		source string
		status string
		table  sql.NullString
	)
	err := row.Scan(
		&res.ID, &res.CustomerName, &res.PhoneNumber, &res.Email, &res.NumberOfPeople,
		&res.Date, &res.Time, &res.SpecialRequests, &source, &status, &table,
		&res.Notes, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Source = model.Source(source)
	res.Status = model.Status(status)
	if table.Valid {
		t := table.String
		res.Table = &t
	}
	res.Date = res.Date.UTC()
	return &res, nil
}

func nullableTable(t *string) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *t, Valid: true}
}

// Find lists reservations matching f ordered by date then time.  The day
// filter compares the DATE column; status filters are pushed into SQL.
func (r *ReservationRepo) Find(ctx context.Context, f ReservationFilter) ([]*model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if f.Date != nil {
		start, _ := f.dayRange()
		where = append(where, "date = ?")
		args = append(args, start.Format("2006-01-02"))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ExcludeStatus != "" {
		where = append(where, "status <> ?")
		args = append(args, string(f.ExcludeStatus))
	}
	q := "SELECT " + reservationColumns + " FROM reservations"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date ASC, time ASC, created_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot list reservations: %w", err)
	}
	defer rows.Close()

	out := []*model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID returns ErrNotFound when no row has the given id.
func (r *ReservationRepo) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	q := "SELECT " + reservationColumns + " FROM reservations WHERE id = ?"
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cannot get reservation: %w", err)
	}
	return res, nil
}

// Insert writes a new row.  The caller assigns the ID and timestamps.
func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) error {
	if res == nil {
		return fmt.Errorf("reservation is nil")
	}
	const q = `INSERT INTO reservations (` + reservationColumns + `)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		res.ID, res.CustomerName, res.PhoneNumber, res.Email, res.NumberOfPeople,
		res.Date.UTC().Format("2006-01-02"), res.Time, res.SpecialRequests,
		string(res.Source), string(res.Status), nullableTable(res.Table), res.Notes,
		res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("cannot create reservation: %w", err)
	}
	return nil
}

// UpdateByID overwrites every mutable column inside a transaction and reads
// the row back so callers receive exactly what was stored.  The DSN sets
// clientFoundRows so an update that changes nothing still counts as a match.
func (r *ReservationRepo) UpdateByID(ctx context.Context, id string, res *model.Reservation) (*model.Reservation, error) {
	if res == nil {
		return nil, fmt.Errorf("reservation is nil")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE reservations SET customer_name = ?, phone_number = ?, email = ?,
               number_of_people = ?, date = ?, time = ?, special_requests = ?, source = ?,
               status = ?, table_label = ?, notes = ?, updated_at = ?
               WHERE id = ?`
	result, err := tx.ExecContext(ctx, q,
		res.CustomerName, res.PhoneNumber, res.Email, res.NumberOfPeople,
		res.Date.UTC().Format("2006-01-02"), res.Time, res.SpecialRequests,
		string(res.Source), string(res.Status), nullableTable(res.Table), res.Notes,
		res.UpdatedAt.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot update reservation: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	sel := "SELECT " + reservationColumns + " FROM reservations WHERE id = ?"
	updated, err := scanReservation(tx.QueryRowContext(ctx, sel, id))
	if err != nil {
		return nil, fmt.Errorf("cannot read back reservation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return updated, nil
}

// pingTimeout bounds the readiness check used by the health endpoint.
const pingTimeout = 2 * time.Second

// Ping verifies the connection is alive.
func (r *ReservationRepo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return r.db.PingContext(ctx)
}
