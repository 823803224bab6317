package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/storage"
)

const userColumns = `id, full_name, email, phone, is_admin, password_hash, ledger_version, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (full_name, email, phone, is_admin, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.FullName, user.Email, user.Phone, user.IsAdmin, user.PasswordHash)
	return scanUser(row)
}

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindByPhone fetches the first user registered with phone.
func (s *Store) FindByPhone(ctx context.Context, phone string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1 ORDER BY id LIMIT 1`, phone)
	return scanUser(row)
}

// SearchUsers lists users matching the filter, oldest first.
func (s *Store) SearchUsers(ctx context.Context, filter storage.UserFilter) ([]models.User, error) {
	var w where
	if filter.Admin != nil {
		w.add("is_admin = ?", *filter.Admin)
	}
	if filter.Query != "" {
		w.add("(full_name ILIKE ? OR email ILIKE ? OR phone ILIKE ?)", likePattern(filter.Query))
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountUsers counts users by admin flag.
func (s *Store) CountUsers(ctx context.Context, admin bool) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_admin = $1`, admin).Scan(&n)
	return n, err
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.Phone, &user.IsAdmin, &user.PasswordHash, &user.LedgerVersion, &user.CreatedAt); err != nil {
		return models.User{}, mapErr(err)
	}
	return user, nil
}
