package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/buildleft/site-backend/internal/domain"
)

func TestContactCreate(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewContactRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Init(ctx))

	contact := &domain.Contact{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Service:    "web-design",
		Newsletter: true,
	}
	require.NoError(t, repo.CreateContact(ctx, contact))
	require.NotEmpty(t, contact.ID)
	require.False(t, contact.CreatedAt.IsZero())

	quick := &domain.QuickContact{
		Name:  "Grace",
		Email: "grace@example.com",
		Phone: "555-0100",
	}
	require.NoError(t, repo.CreateQuickContact(ctx, quick))
	require.NotEmpty(t, quick.ID)
	require.NotEqual(t, contact.ID, quick.ID)
}
