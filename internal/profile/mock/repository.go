// Package profilemock provides an in-memory profile repository for tests.
package profilemock

import (
	"context"
	"sync"
	"time"

	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

type RepositoryOption func(*Repository)

type Repository struct {
	mu       sync.Mutex
	profiles map[string]profile.Profile

	getErr, insertErr, updateErr, listErr, deleteErr error

	getDelay time.Duration

	GetCalls    int
	InsertCalls int
	UpdateCalls int
	DeleteCalls int
}

func WithProfile(p profile.Profile) RepositoryOption {
	return func(r *Repository) { r.profiles[p.ID] = p }
}

func WithGetError(err error) RepositoryOption {
	return func(r *Repository) { r.getErr = err }
}

func WithInsertError(err error) RepositoryOption {
	return func(r *Repository) { r.insertErr = err }
}

func WithUpdateError(err error) RepositoryOption {
	return func(r *Repository) { r.updateErr = err }
}

func WithListError(err error) RepositoryOption {
	return func(r *Repository) { r.listErr = err }
}

func WithDeleteError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}

// WithGetDelay makes Get block for the given duration before answering,
// to exercise fetch deadlines.
func WithGetDelay(d time.Duration) RepositoryOption {
	return func(r *Repository) { r.getDelay = d }
}

// SetGetError swaps the Get failure at runtime.
func (r *Repository) SetGetError(err error) {
	r.mu.Lock()
	r.getErr = err
	r.mu.Unlock()
}

var _ profile.Repository = (*Repository)(nil)

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		profiles: make(map[string]profile.Profile),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) Get(ctx context.Context, subjectID string) (profile.Profile, error) {
	if r.getDelay > 0 {
		select {
		case <-time.After(r.getDelay):
		case <-ctx.Done():
			return profile.Profile{}, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.GetCalls++
	if r.getErr != nil {
		return profile.Profile{}, r.getErr
	}
	if p, ok := r.profiles[subjectID]; ok {
		return p, nil
	}
	return profile.Profile{}, serviceerr.ErrNotFound
}

func (r *Repository) Insert(_ context.Context, p profile.Profile) (profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.InsertCalls++
	if r.insertErr != nil {
		return profile.Profile{}, r.insertErr
	}
	if _, ok := r.profiles[p.ID]; ok {
		return profile.Profile{}, serviceerr.ErrConflict
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.profiles[p.ID] = p

	return p, nil
}

func (r *Repository) Update(_ context.Context, subjectID string, fields profile.Update) (profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.UpdateCalls++
	if r.updateErr != nil {
		return profile.Profile{}, r.updateErr
	}

	p, ok := r.profiles[subjectID]
	if !ok {
		return profile.Profile{}, serviceerr.ErrNotFound
	}

	if fields.FirstName != nil {
		p.FirstName = *fields.FirstName
	}
	if fields.LastName != nil {
		p.LastName = *fields.LastName
	}
	if fields.Phone != nil {
		p.Phone = *fields.Phone
	}
	if fields.Verified != nil {
		p.Verified = *fields.Verified
	}
	p.UpdatedAt = time.Now()
	r.profiles[subjectID] = p

	return p, nil
}

func (r *Repository) List(_ context.Context) ([]profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}

	profiles := make([]profile.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (r *Repository) Delete(_ context.Context, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.DeleteCalls++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.profiles[subjectID]; !ok {
		return serviceerr.ErrNotFound
	}

	delete(r.profiles, subjectID)
	return nil
}
