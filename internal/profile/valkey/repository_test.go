package profilevalkey_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/Geodev122/cogniflow-sub002/internal/dbtest/valkeytest"
	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	profilemock "github.com/Geodev122/cogniflow-sub002/internal/profile/mock"
	profilevalkey "github.com/Geodev122/cogniflow-sub002/internal/profile/valkey"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

var valkeyClient valkey.Client

func TestMain(m *testing.M) {
	ctx := context.Background()

	client, _, terminate := valkeytest.Start(ctx)
	defer terminate(ctx)

	valkeyClient = client

	code := m.Run()
	os.Exit(code)
}

func seedProfile(subjectID string) profile.Profile {
	return profile.Profile{
		ID:        subjectID,
		Role:      profile.RoleTherapist,
		FirstName: "Nadia",
		Email:     subjectID + "@example.com",
	}
}

func TestRepository_GetReadThrough(t *testing.T) {
	inner := profilemock.NewInMemRepository(profilemock.WithProfile(seedProfile("sub-rt-1")))
	r := profilevalkey.NewRepository(valkeyClient, "cogniflow-test-rt", time.Minute, inner)

	// First read misses the cache and hits the inner repository.
	first, err := r.Get(t.Context(), "sub-rt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.GetCalls)

	// Second read is served from the cache.
	second, err := r.Get(t.Context(), "sub-rt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.GetCalls)
	assert.Equal(t, first.ID, second.ID)
}

func TestRepository_GetMissing(t *testing.T) {
	inner := profilemock.NewInMemRepository()
	r := profilevalkey.NewRepository(valkeyClient, "cogniflow-test-miss", time.Minute, inner)

	_, err := r.Get(t.Context(), "does-not-exist")
	assert.ErrorIs(t, err, serviceerr.ErrNotFound)
}

func TestRepository_UpdateRefreshesCache(t *testing.T) {
	inner := profilemock.NewInMemRepository(profilemock.WithProfile(seedProfile("sub-up-1")))
	r := profilevalkey.NewRepository(valkeyClient, "cogniflow-test-up", time.Minute, inner)

	_, err := r.Get(t.Context(), "sub-up-1")
	require.NoError(t, err)

	phone := "+961 70 123 456"
	_, err = r.Update(t.Context(), "sub-up-1", profile.Update{Phone: &phone})
	require.NoError(t, err)

	// The cached copy reflects the update without another inner read.
	cached, err := r.Get(t.Context(), "sub-up-1")
	require.NoError(t, err)
	assert.Equal(t, phone, cached.Phone)
	assert.Equal(t, 1, inner.GetCalls)
}

func TestRepository_EvictAndCachedSubjects(t *testing.T) {
	inner := profilemock.NewInMemRepository(
		profilemock.WithProfile(seedProfile("sub-ev-1")),
		profilemock.WithProfile(seedProfile("sub-ev-2")),
	)
	r := profilevalkey.NewRepository(valkeyClient, "cogniflow-test-ev", time.Minute, inner)

	_, err := r.Get(t.Context(), "sub-ev-1")
	require.NoError(t, err)
	_, err = r.Get(t.Context(), "sub-ev-2")
	require.NoError(t, err)

	subjects, err := r.CachedSubjects(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sub-ev-1", "sub-ev-2"}, subjects)

	require.NoError(t, r.Evict(t.Context(), "sub-ev-1"))

	subjects, err = r.CachedSubjects(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sub-ev-2"}, subjects)

	// Evicted entries are re-fetched from the inner repository.
	_, err = r.Get(t.Context(), "sub-ev-1")
	require.NoError(t, err)
	assert.Equal(t, 3, inner.GetCalls)
}

func TestRepository_DeleteInvalidatesCache(t *testing.T) {
	inner := profilemock.NewInMemRepository(profilemock.WithProfile(seedProfile("sub-del-1")))
	r := profilevalkey.NewRepository(valkeyClient, "cogniflow-test-del", time.Minute, inner)

	_, err := r.Get(t.Context(), "sub-del-1")
	require.NoError(t, err)

	require.NoError(t, r.Delete(t.Context(), "sub-del-1"))

	_, err = r.Get(t.Context(), "sub-del-1")
	assert.ErrorIs(t, err, serviceerr.ErrNotFound)
}
