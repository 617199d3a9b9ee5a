package profilevalkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

const objectTypeProfile = "profile"

// Repository is a read-through cache over an authoritative profile
// repository. Reads hit valkey first; writes go to the inner repository
// and update the cache best-effort.
type Repository struct {
	store *store
	inner profile.Repository
}

var _ profile.Repository = (*Repository)(nil)

func NewRepository(valkeyClient valkey.Client, prefix string, ttl time.Duration, inner profile.Repository) *Repository {
	return &Repository{
		store: newStore(valkeyClient, prefix, ttl),
		inner: inner,
	}
}

func (r *Repository) Get(ctx context.Context, subjectID string) (profile.Profile, error) {
	var cached profile.Profile
	err := r.store.Get(ctx, objectTypeProfile, subjectID, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, serviceerr.ErrNotFound) {
		slogctx.Warn(ctx, "Profile cache read failed", "subject_id", subjectID, "error", err)
	}

	p, err := r.inner.Get(ctx, subjectID)
	if err != nil {
		return profile.Profile{}, err
	}

	r.cache(ctx, p)

	return p, nil
}

func (r *Repository) Insert(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	inserted, err := r.inner.Insert(ctx, p)
	if err != nil {
		return profile.Profile{}, err
	}

	r.cache(ctx, inserted)

	return inserted, nil
}

func (r *Repository) Update(ctx context.Context, subjectID string, fields profile.Update) (profile.Profile, error) {
	updated, err := r.inner.Update(ctx, subjectID, fields)
	if err != nil {
		return profile.Profile{}, err
	}

	r.cache(ctx, updated)

	return updated, nil
}

func (r *Repository) List(ctx context.Context) ([]profile.Profile, error) {
	return r.inner.List(ctx)
}

func (r *Repository) Delete(ctx context.Context, subjectID string) error {
	if err := r.inner.Delete(ctx, subjectID); err != nil {
		return err
	}

	if err := r.store.Destroy(ctx, objectTypeProfile, subjectID); err != nil {
		slogctx.Warn(ctx, "Profile cache invalidation failed", "subject_id", subjectID, "error", err)
	}

	return nil
}

// Evict removes a single cached profile without touching the
// authoritative store.
func (r *Repository) Evict(ctx context.Context, subjectID string) error {
	if err := r.store.Destroy(ctx, objectTypeProfile, subjectID); err != nil {
		return fmt.Errorf("destroying cached profile: %w", err)
	}

	return nil
}

// CachedSubjects returns the subject ids currently present in the cache.
func (r *Repository) CachedSubjects(ctx context.Context) ([]string, error) {
	ids, err := r.store.Keys(ctx, objectTypeProfile)
	if err != nil {
		return nil, fmt.Errorf("scanning cached profiles: %w", err)
	}

	return ids, nil
}

func (r *Repository) cache(ctx context.Context, p profile.Profile) {
	if err := r.store.Set(ctx, objectTypeProfile, p.ID, p); err != nil {
		slogctx.Warn(ctx, "Profile cache write failed", "subject_id", p.ID, "error", err)
	}
}
