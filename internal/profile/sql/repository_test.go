package profilesql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geodev122/cogniflow-sub002/internal/dbtest/postgrestest"
	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	profilesql "github.com/Geodev122/cogniflow-sub002/internal/profile/sql"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

var dbPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, _, terminate := postgrestest.Start(ctx)
	defer terminate(ctx)

	dbPool = pool

	code := m.Run()
	os.Exit(code)
}

func TestRepository_Get(t *testing.T) {
	tests := []struct {
		name        string
		subjectID   string
		wantProfile profile.Profile
		assertErr   assert.ErrorAssertionFunc
	}{
		{
			name:      "Success",
			subjectID: "sub-seed-1",
			wantProfile: profile.Profile{
				ID:        "sub-seed-1",
				Role:      profile.RoleTherapist,
				FirstName: "Nadia",
				LastName:  "Haddad",
				Email:     "nadia@example.com",
				Verified:  true,
			},
			assertErr: assert.NoError,
		},
		{
			name:      "Error does not exist",
			subjectID: "does-not-exist",
			assertErr: func(t assert.TestingT, err error, msgAndArgs ...any) bool {
				return assert.ErrorIs(t, err, serviceerr.ErrNotFound, msgAndArgs...)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := profilesql.NewRepository(dbPool)

			gotProfile, err := r.Get(t.Context(), tt.subjectID)
			if !tt.assertErr(t, err, fmt.Sprintf("Repository.Get() error %v", err)) || err != nil {
				return
			}

			gotProfile.CreatedAt = tt.wantProfile.CreatedAt
			gotProfile.UpdatedAt = tt.wantProfile.UpdatedAt
			assert.Equal(t, tt.wantProfile, gotProfile, "Repository.Get()")
		})
	}
}

func TestRepository_Insert(t *testing.T) {
	r := profilesql.NewRepository(dbPool)

	t.Run("Success", func(t *testing.T) {
		inserted, err := r.Insert(t.Context(), profile.Profile{
			ID:        "sub-insert-1",
			Role:      profile.RoleClient,
			FirstName: "Karim",
			Email:     "karim@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "sub-insert-1", inserted.ID)
		assert.False(t, inserted.CreatedAt.IsZero())
		assert.False(t, inserted.UpdatedAt.IsZero())
	})

	t.Run("Error duplicate subject", func(t *testing.T) {
		_, err := r.Insert(t.Context(), profile.Profile{
			ID:    "sub-seed-1",
			Role:  profile.RoleTherapist,
			Email: "someone-else@example.com",
		})
		assert.ErrorIs(t, err, serviceerr.ErrConflict)
	})

	t.Run("Error duplicate email", func(t *testing.T) {
		_, err := r.Insert(t.Context(), profile.Profile{
			ID:    "sub-insert-2",
			Role:  profile.RoleTherapist,
			Email: "nadia@example.com",
		})
		assert.ErrorIs(t, err, serviceerr.ErrConflict)
	})

	t.Run("Error invalid role rejected by schema", func(t *testing.T) {
		_, err := r.Insert(t.Context(), profile.Profile{
			ID:    "sub-insert-3",
			Role:  profile.Role("admin"),
			Email: "admin@example.com",
		})
		assert.Error(t, err)
	})
}

func TestRepository_Update(t *testing.T) {
	r := profilesql.NewRepository(dbPool)

	t.Run("Success partial update", func(t *testing.T) {
		phone := "+961 70 123 456"
		updated, err := r.Update(t.Context(), "sub-seed-2", profile.Update{Phone: &phone})
		require.NoError(t, err)

		assert.Equal(t, phone, updated.Phone)
		// Fields left nil keep their stored values.
		assert.Equal(t, "Omar", updated.FirstName)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	})

	t.Run("Error does not exist", func(t *testing.T) {
		verified := true
		_, err := r.Update(t.Context(), "does-not-exist", profile.Update{Verified: &verified})
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})
}

func TestRepository_List(t *testing.T) {
	r := profilesql.NewRepository(dbPool)

	profiles, err := r.List(t.Context())
	require.NoError(t, err)

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}

	assert.Contains(t, ids, "sub-seed-1")
	assert.Contains(t, ids, "sub-seed-2")
}

func TestRepository_Delete(t *testing.T) {
	r := profilesql.NewRepository(dbPool)

	t.Run("Success", func(t *testing.T) {
		_, err := r.Insert(t.Context(), profile.Profile{
			ID:    "sub-delete-1",
			Role:  profile.RoleClient,
			Email: "delete-me@example.com",
		})
		require.NoError(t, err)

		require.NoError(t, r.Delete(t.Context(), "sub-delete-1"))

		_, err = r.Get(t.Context(), "sub-delete-1")
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})

	t.Run("Error does not exist", func(t *testing.T) {
		assert.ErrorIs(t, r.Delete(t.Context(), "does-not-exist"), serviceerr.ErrNotFound)
	})
}
