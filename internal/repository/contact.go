package repository

import (
	"context"

	"github.com/buildleft/site-backend/internal/domain"
)

// ContactRepository defines persistence operations for contact-form submissions.
type ContactRepository interface {
	Init(ctx context.Context) error
	CreateContact(ctx context.Context, contact *domain.Contact) error
	CreateQuickContact(ctx context.Context, contact *domain.QuickContact) error
}
