package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/buildleft/site-backend/internal/domain"
	"github.com/buildleft/site-backend/internal/repository"
)

const createContactTables = `
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	service TEXT NOT NULL,
	timeline TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	consent INTEGER NOT NULL DEFAULT 0,
	newsletter INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS quick_contacts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	service TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) repository.ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createContactTables); err != nil {
		return fmt.Errorf("create contact tables: %w", err)
	}
	return nil
}

func (r *ContactRepository) CreateContact(ctx context.Context, contact *domain.Contact) error {
	now := time.Now().UTC()
	contact.ID = uuid.NewString()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO contacts (id, first_name, last_name, email, phone, company, service, timeline, message, consent, newsletter, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contact.ID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.Phone,
		contact.Company,
		contact.Service,
		contact.Timeline,
		contact.Message,
		contact.Consent,
		contact.Newsletter,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) CreateQuickContact(ctx context.Context, contact *domain.QuickContact) error {
	now := time.Now().UTC()
	contact.ID = uuid.NewString()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO quick_contacts (id, name, email, phone, service, message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		contact.ID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Service,
		contact.Message,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quick contact: %w", err)
	}
	return nil
}
