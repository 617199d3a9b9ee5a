package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

// Service mediates access to the profile store for the auth session core.
// Every fetch is bounded by a deadline so a hanging store can never hang
// the session bootstrap.
type Service struct {
	repository   Repository
	fetchTimeout time.Duration
}

func NewService(repo Repository, fetchTimeout time.Duration) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}

	return &Service{
		repository:   repo,
		fetchTimeout: fetchTimeout,
	}
}

// GetProfile fetches exactly one profile for the subject. Not-found and
// transient outcomes are distinguishable: the former classifies as
// ProfileNotFound, the latter as ProfileFetchTimeout.
func (s *Service) GetProfile(ctx context.Context, subjectID string) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	p, err := s.repository.Get(ctx, subjectID)
	if err != nil {
		switch {
		case errors.Is(err, serviceerr.ErrNotFound):
			return Profile{}, fmt.Errorf("%w: subject %s", serviceerr.ErrProfileNotFound, subjectID)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return Profile{}, fmt.Errorf("%w: %s", serviceerr.ErrProfileFetchTimeout, err)
		default:
			return Profile{}, fmt.Errorf("%w: %s", serviceerr.ErrProfileFetchTimeout, err)
		}
	}

	return p, nil
}

// EnsureProfile returns the stored profile for the subject, creating one
// from the given fields when none exists. Provisioning is an explicit
// operation here; plain fetches never create records.
func (s *Service) EnsureProfile(ctx context.Context, p Profile) (Profile, error) {
	if !p.Role.Valid() {
		return Profile{}, fmt.Errorf("%w: %q", serviceerr.ErrInvalidRole, p.Role)
	}

	existing, err := s.GetProfile(ctx, p.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, serviceerr.ErrProfileNotFound) {
		return Profile{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	inserted, err := s.repository.Insert(ctx, p)
	if err != nil {
		// Another writer may have provisioned the record between the
		// fetch and the insert; their row wins.
		if errors.Is(err, serviceerr.ErrConflict) {
			slogctx.Debug(ctx, "Profile already provisioned concurrently", "subject_id", p.ID)
			return s.GetProfile(ctx, p.ID)
		}

		return Profile{}, fmt.Errorf("%w: %s", serviceerr.ErrProfileCreationFailed, err)
	}

	return inserted, nil
}

// UpdateProfile applies a partial update and returns the stored record.
func (s *Service) UpdateProfile(ctx context.Context, subjectID string, fields Update) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	p, err := s.repository.Update(ctx, subjectID, fields)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return Profile{}, fmt.Errorf("%w: subject %s", serviceerr.ErrProfileNotFound, subjectID)
		}

		return Profile{}, fmt.Errorf("updating profile: %w", err)
	}

	return p, nil
}
