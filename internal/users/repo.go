package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email already exists")
	ErrInvalidRole = errors.New("unknown role")
)

type Repo struct{ DB *pgxpool.Pool }

const userCols = `id, name, email, password_hash, phone, address, avatar_url, role, is_google_account, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Address,
		&u.AvatarURL, &u.Role, &u.GoogleAccount, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *Repo) Create(ctx context.Context, u User) (User, error) {
	if !u.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	u.ID = uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO users(id, name, email, password_hash, phone, address, avatar_url, role, is_google_account)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+userCols,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.Address, u.AvatarURL, u.Role, u.GoogleAccount)
	created, err := scanUser(row)
	// two racing registrations both pass any pre-check; the unique index on
	// email is the arbiter, so its violation maps to the taken-email error
	if uniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	return created, err
}

func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) FindByID(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE users SET
			name       = COALESCE($2, name),
			phone      = COALESCE($3, phone),
			address    = COALESCE($4, address),
			avatar_url = COALESCE($5, avatar_url),
			updated_at = now()
		WHERE id=$1
		RETURNING `+userCols,
		id, in.Name, in.Phone, in.Address, in.AvatarURL)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}
