package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/invest-be/internal/models"
)

// GetSettings returns the stored settings singleton.
func (s *Store) GetSettings(ctx context.Context) (models.Settings, error) {
	var out models.Settings
	err := s.pool.QueryRow(ctx, `SELECT interest_rate, version, updated_at FROM settings WHERE id = 1`).
		Scan(&out.InterestRate, &out.Version, &out.UpdatedAt)
	if err != nil {
		return models.Settings{}, mapErr(err)
	}
	return out, nil
}

// SaveSettings upserts the interest rate and bumps the settings version.
func (s *Store) SaveSettings(ctx context.Context, rate decimal.Decimal, at time.Time) (models.Settings, error) {
	const query = `
		INSERT INTO settings (id, interest_rate, version, updated_at)
		VALUES (1, $1, 1, $2)
		ON CONFLICT (id) DO UPDATE
			SET interest_rate = EXCLUDED.interest_rate,
			    version = settings.version + 1,
			    updated_at = EXCLUDED.updated_at
		RETURNING interest_rate, version, updated_at`
	var out models.Settings
	if err := s.pool.QueryRow(ctx, query, rate, at).Scan(&out.InterestRate, &out.Version, &out.UpdatedAt); err != nil {
		return models.Settings{}, mapErr(err)
	}
	return out, nil
}

// CreateContact stores a contact-form message.
func (s *Store) CreateContact(ctx context.Context, c models.Contact) (models.Contact, error) {
	const query = `
		INSERT INTO contacts (name, email, message, submitted_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, message, submitted_at`
	var out models.Contact
	err := s.pool.QueryRow(ctx, query, c.Name, c.Email, c.Message, c.SubmittedAt).
		Scan(&out.ID, &out.Name, &out.Email, &out.Message, &out.SubmittedAt)
	return out, mapErr(err)
}

// ListContacts lists contact messages, newest first.
func (s *Store) ListContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, message, submitted_at FROM contacts ORDER BY submitted_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &c.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
