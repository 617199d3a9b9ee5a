package profile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	profilemock "github.com/Geodev122/cogniflow-sub002/internal/profile/mock"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

func TestService_GetProfile(t *testing.T) {
	stored := profile.Profile{
		ID:        "u1",
		Role:      profile.RoleClient,
		FirstName: "Jo",
		LastName:  "Doe",
		Email:     "jo@example.com",
	}

	tests := []struct {
		name     string
		repo     *profilemock.Repository
		subject  string
		wantCode serviceerr.Code
		want     profile.Profile
	}{
		{
			name:    "Success",
			repo:    profilemock.NewInMemRepository(profilemock.WithProfile(stored)),
			subject: "u1",
			want:    stored,
		},
		{
			name:     "Not found",
			repo:     profilemock.NewInMemRepository(),
			subject:  "nobody",
			wantCode: serviceerr.CodeProfileNotFound,
		},
		{
			name:     "Transient store error",
			repo:     profilemock.NewInMemRepository(profilemock.WithGetError(errors.New("connection reset"))),
			subject:  "u1",
			wantCode: serviceerr.CodeProfileFetchTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := profile.NewService(tt.repo, time.Second)

			got, err := svc.GetProfile(context.Background(), tt.subject)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, serviceerr.Classify(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_GetProfile_Deadline(t *testing.T) {
	repo := profilemock.NewInMemRepository(
		profilemock.WithProfile(profile.Profile{ID: "u1", Role: profile.RoleClient}),
		profilemock.WithGetDelay(200*time.Millisecond),
	)
	svc := profile.NewService(repo, 20*time.Millisecond)

	_, err := svc.GetProfile(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, serviceerr.CodeProfileFetchTimeout, serviceerr.Classify(err))
}

func TestService_EnsureProfile(t *testing.T) {
	existing := profile.Profile{ID: "u1", Role: profile.RoleTherapist, FirstName: "Ana"}

	t.Run("Existing profile wins", func(t *testing.T) {
		repo := profilemock.NewInMemRepository(profilemock.WithProfile(existing))
		svc := profile.NewService(repo, time.Second)

		got, err := svc.EnsureProfile(context.Background(), profile.Profile{ID: "u1", Role: profile.RoleClient})
		require.NoError(t, err)
		assert.Equal(t, profile.RoleTherapist, got.Role)
		assert.Zero(t, repo.InsertCalls)
	})

	t.Run("Provisions missing profile", func(t *testing.T) {
		repo := profilemock.NewInMemRepository()
		svc := profile.NewService(repo, time.Second)

		got, err := svc.EnsureProfile(context.Background(), profile.Profile{
			ID:        "u2",
			Role:      profile.RoleClient,
			FirstName: "Ben",
			Email:     "ben@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "u2", got.ID)
		assert.Equal(t, 1, repo.InsertCalls)
	})

	t.Run("Invalid role rejected before any store call", func(t *testing.T) {
		repo := profilemock.NewInMemRepository()
		svc := profile.NewService(repo, time.Second)

		_, err := svc.EnsureProfile(context.Background(), profile.Profile{ID: "u3", Role: "admin"})
		require.Error(t, err)
		assert.Equal(t, serviceerr.CodeInvalidRole, serviceerr.Classify(err))
		assert.Zero(t, repo.GetCalls)
		assert.Zero(t, repo.InsertCalls)
	})

	t.Run("Insert failure classifies as creation failed", func(t *testing.T) {
		repo := profilemock.NewInMemRepository(profilemock.WithInsertError(errors.New("disk full")))
		svc := profile.NewService(repo, time.Second)

		_, err := svc.EnsureProfile(context.Background(), profile.Profile{ID: "u4", Role: profile.RoleClient})
		require.Error(t, err)
		assert.Equal(t, serviceerr.CodeProfileCreationFailed, serviceerr.Classify(err))
	})
}

func TestService_UpdateProfile(t *testing.T) {
	repo := profilemock.NewInMemRepository(profilemock.WithProfile(profile.Profile{
		ID:        "u1",
		Role:      profile.RoleClient,
		FirstName: "Jo",
	}))
	svc := profile.NewService(repo, time.Second)

	first := "Joanna"
	verified := true
	got, err := svc.UpdateProfile(context.Background(), "u1", profile.Update{
		FirstName: &first,
		Verified:  &verified,
	})
	require.NoError(t, err)
	assert.Equal(t, "Joanna", got.FirstName)
	assert.True(t, got.Verified)
	assert.Equal(t, profile.RoleClient, got.Role)

	_, err = svc.UpdateProfile(context.Background(), "ghost", profile.Update{FirstName: &first})
	require.Error(t, err)
	assert.Equal(t, serviceerr.CodeProfileNotFound, serviceerr.Classify(err))
}
