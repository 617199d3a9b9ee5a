// Package profilesql implements the profile repository on PostgreSQL.
package profilesql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

const profileColumns = `id, role, first_name, last_name, email, phone, verified, created_at, updated_at`

type Repository struct {
	db *pgxpool.Pool
}

var _ profile.Repository = (*Repository)(nil)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Get(ctx context.Context, subjectID string) (profile.Profile, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return profile.Profile{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1;`, subjectID)
	return r.scan(ctx, tx, row)
}

func (r *Repository) scan(ctx context.Context, tx pgx.Tx, row pgx.Row) (profile.Profile, error) {
	var p profile.Profile
	if err := row.Scan(&p.ID, &p.Role, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Verified, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile.Profile{}, serviceerr.ErrNotFound
		}

		return profile.Profile{}, fmt.Errorf("scanning row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return profile.Profile{}, fmt.Errorf("committing tx: %w", err)
	}

	return p, nil
}

func (r *Repository) Insert(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return profile.Profile{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`INSERT INTO profiles (id, role, first_name, last_name, email, phone, verified)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+profileColumns+`;`,
		p.ID, p.Role, p.FirstName, p.LastName, p.Email, p.Phone, p.Verified,
	)

	var inserted profile.Profile
	if err := row.Scan(&inserted.ID, &inserted.Role, &inserted.FirstName, &inserted.LastName, &inserted.Email, &inserted.Phone, &inserted.Verified, &inserted.CreatedAt, &inserted.UpdatedAt); err != nil {
		if err, ok := handlePgError(err); ok {
			return profile.Profile{}, err
		}

		return profile.Profile{}, fmt.Errorf("inserting into profiles: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return profile.Profile{}, fmt.Errorf("committing transaction: %w", err)
	}

	return inserted, nil
}

func (r *Repository) Update(ctx context.Context, subjectID string, fields profile.Update) (profile.Profile, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return profile.Profile{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// COALESCE keeps the stored value for every field the caller left nil.
	row := tx.QueryRow(ctx,
		`UPDATE profiles
			 SET first_name = COALESCE($1, first_name),
			     last_name  = COALESCE($2, last_name),
			     phone      = COALESCE($3, phone),
			     verified   = COALESCE($4, verified),
			     updated_at = now()
			 WHERE id = $5
			 RETURNING `+profileColumns+`;`,
		fields.FirstName, fields.LastName, fields.Phone, fields.Verified, subjectID,
	)

	return r.scan(ctx, tx, row)
}

func (r *Repository) List(ctx context.Context) ([]profile.Profile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles;`)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var profiles []profile.Profile
	for rows.Next() {
		var p profile.Profile
		if err := rows.Scan(&p.ID, &p.Role, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Verified, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return profiles, nil
}

func (r *Repository) Delete(ctx context.Context, subjectID string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1;`, subjectID)
	if err != nil {
		return fmt.Errorf("executing sql query: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return serviceerr.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}

	return nil
}

func handlePgError(err error) (error, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return serviceerr.ErrConflict, true
	}

	return err, false
}
