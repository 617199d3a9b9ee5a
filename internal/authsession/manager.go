package authsession

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/config"
	"github.com/Geodev122/cogniflow-sub002/internal/identity"
	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

// Manager is the single source of truth for the current user and their
// profile. All identity provider and profile store interactions go
// through it; the UI layer only ever sees settled State snapshots.
//
// State transitions are serialised by a mutex and tagged with a
// generation number. A transition that finishes after the state has
// moved on (sign-out during a slow fetch, for example) is discarded
// instead of overwriting the newer state.
type Manager struct {
	idp      identity.Provider
	profiles *profile.Service

	requestTimeout           time.Duration
	signUpEstablishesSession bool
	retry                    RetryPolicy

	sub       identity.Subscription
	closeOnce sync.Once
	closed    atomic.Bool

	mu           sync.Mutex
	state        State
	gen          uint64
	initializing bool
	initDone     chan struct{}

	obsMu     sync.Mutex
	nextObsID int
	observers map[int]func(State)
}

func NewManager(cfg *config.Auth, idp identity.Provider, profiles *profile.Service) *Manager {
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}

	m := &Manager{
		idp:                      idp,
		profiles:                 profiles,
		requestTimeout:           requestTimeout,
		signUpEstablishesSession: cfg.SignUpEstablishesSession,
		retry:                    retryPolicyFromConfig(cfg.Retry),
		observers:                make(map[int]func(State)),
	}

	// Subscribed once for the manager's lifetime; Close unsubscribes
	// exactly once.
	m.sub = idp.OnSessionChange(m.handleEvent)

	return m
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers an observer called with a snapshot after every
// settled transition.
func (m *Manager) Subscribe(fn func(State)) Subscription {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()

	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = fn

	return &observerSubscription{manager: m, id: id}
}

// Close tears the manager down: the session-change subscription is
// released and late events are ignored.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		if m.sub != nil {
			m.sub.Unsubscribe()
		}
	})
}

// Initialize bootstraps the auth state from the provider's ambient
// stored session. Re-entrant calls join the in-flight attempt instead of
// starting a second round trip. Errors are absorbed into the state; the
// call itself only fails when the caller's context ends while joining.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initializing {
		done := m.initDone
		m.mu.Unlock()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.initializing = true
	done := make(chan struct{})
	m.initDone = done
	m.gen++
	attempt := m.gen
	m.state.Loading = true
	m.state.Err = nil
	snap := m.state.clone()
	m.mu.Unlock()
	m.notify(snap)

	m.runInitialize(ctx, attempt, done)

	return nil
}

func (m *Manager) runInitialize(ctx context.Context, attempt uint64, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		if m.initDone == done {
			m.initializing = false
			m.initDone = nil
		}
		m.mu.Unlock()
		close(done)
	}()

	var session *identity.Session
	err := m.retry.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
		defer cancel()

		var err error
		session, err = m.idp.CurrentSession(ctx)
		if err != nil {
			return fmt.Errorf("%w: %s", serviceerr.ErrUnreachable, err)
		}

		return nil
	})
	if err != nil {
		slogctx.Warn(ctx, "Session bootstrap could not reach the identity provider", "error", err)
		m.settle(attempt, func(st *State) {
			st.User = nil
			st.Profile = nil
			st.Err = stateErrorFrom(err)
		})

		return
	}

	if session == nil {
		m.settle(attempt, func(st *State) {
			st.User = nil
			st.Profile = nil
			st.Err = nil
		})

		return
	}

	user := &User{ID: session.Subject, Email: session.Email}

	p, perr := m.profiles.GetProfile(ctx, session.Subject)
	if perr != nil {
		slogctx.Warn(ctx, "Session restored without profile", "subject_id", session.Subject, "error", perr)
		m.settle(attempt, func(st *State) {
			st.User = user
			st.Profile = nil
			st.Err = stateErrorFrom(perr)
		})

		return
	}

	m.settle(attempt, func(st *State) {
		st.User = user
		st.Profile = &p
		st.Err = nil
	})
}

// SignIn verifies the credentials and establishes a session. Provider
// rejections are surfaced to the caller and reflected in the state; the
// previous user and profile are left untouched on failure.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	attempt := m.beginTransition()

	cctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	session, err := m.idp.SignInWithPassword(cctx, email, password)
	cancel()
	if err != nil {
		err = classifyProviderErr(err)
		m.settle(attempt, func(st *State) {
			st.Err = stateErrorFrom(err)
		})

		return err
	}

	user := &User{ID: session.Subject, Email: session.Email}

	p, perr := m.profiles.GetProfile(ctx, session.Subject)
	if perr != nil {
		m.settle(attempt, func(st *State) {
			st.User = user
			st.Profile = nil
			st.Err = stateErrorFrom(perr)
		})

		return perr
	}

	m.settle(attempt, func(st *State) {
		st.User = user
		st.Profile = &p
		st.Err = nil
	})

	return nil
}

// SignUp creates the identity with the profile fields embedded as
// metadata, then ensures the corresponding profile record. The role is
// validated before any network call. When profile creation fails after
// the identity exists, the distinct ProfileCreationFailed classification
// tells retry logic to recreate only the profile, never the identity.
func (m *Manager) SignUp(ctx context.Context, email, password, firstName, lastName string, role profile.Role) error {
	if !role.Valid() {
		err := fmt.Errorf("%w: %q", serviceerr.ErrInvalidRole, role)

		m.mu.Lock()
		m.state.Err = stateErrorFrom(err)
		snap := m.state.clone()
		m.mu.Unlock()
		m.notify(snap)

		return err
	}

	attempt := m.beginTransition()

	md := identity.Metadata{
		FirstName: firstName,
		LastName:  lastName,
		Role:      string(role),
	}

	cctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	subject, session, err := m.idp.SignUp(cctx, email, password, md)
	cancel()
	if err != nil {
		err = classifyProviderErr(err)
		m.settle(attempt, func(st *State) {
			st.Err = stateErrorFrom(err)
		})

		return err
	}

	establish := session != nil && m.signUpEstablishesSession
	user := &User{ID: subject, Email: email}

	p, perr := m.profiles.EnsureProfile(ctx, profile.Profile{
		ID:        subject,
		Role:      role,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
	})
	if perr != nil {
		m.settle(attempt, func(st *State) {
			if establish {
				st.User = user
				st.Profile = nil
			}
			st.Err = stateErrorFrom(perr)
		})

		return perr
	}

	m.settle(attempt, func(st *State) {
		if establish {
			st.User = user
			st.Profile = &p
		}
		st.Err = nil
	})

	return nil
}

// SignOut clears the local state unconditionally and synchronously, then
// requests remote termination. A remote failure is logged only; the
// local view never remains signed-in after the user asked to leave.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	m.state.User = nil
	m.state.Profile = nil
	m.state.Err = nil
	m.state.Loading = false
	snap := m.state.clone()
	m.mu.Unlock()
	m.notify(snap)

	cctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	defer cancel()

	if err := m.idp.SignOut(cctx); err != nil {
		slogctx.Warn(ctx, "Remote sign-out failed; local session already cleared", "error", err)
	}

	return nil
}

// Retry resets the error, loading flag and the single-flight guard, then
// re-runs Initialize, so a failed bootstrap can be recovered without
// restarting the application.
func (m *Manager) Retry(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	m.initializing = false
	m.initDone = nil
	m.state.Err = nil
	m.state.Loading = false
	m.mu.Unlock()

	return m.Initialize(ctx)
}

// RefreshProfile re-fetches the current subject's profile. Without a
// current subject it is a no-op. On failure the previous profile value
// is kept: stale-but-present beats clearing a known-good profile over a
// transient fetch error.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.Lock()
	if m.state.User == nil {
		m.mu.Unlock()
		return nil
	}

	subject := m.state.User.ID

	// A fresh generation tag per refresh; when refreshes overlap, only
	// the latest one settles.
	m.gen++
	attempt := m.gen
	m.state.Loading = true
	m.state.Err = nil
	snap := m.state.clone()
	m.mu.Unlock()
	m.notify(snap)

	p, err := m.profiles.GetProfile(ctx, subject)
	if err != nil {
		m.settle(attempt, func(st *State) {
			st.Err = stateErrorFrom(err)
		})

		return err
	}

	m.settle(attempt, func(st *State) {
		st.Profile = &p
		st.Err = nil
	})

	return nil
}

// beginTransition starts a command transition: clears the last error,
// raises the loading flag and hands back the generation tag the eventual
// settle must present.
func (m *Manager) beginTransition() uint64 {
	m.mu.Lock()
	m.gen++
	attempt := m.gen
	m.state.Loading = true
	m.state.Err = nil
	snap := m.state.clone()
	m.mu.Unlock()
	m.notify(snap)

	return attempt
}

// settle applies a transition outcome unless the state has moved on
// since the attempt started.
func (m *Manager) settle(attempt uint64, apply func(*State)) {
	m.mu.Lock()
	if m.gen != attempt {
		m.mu.Unlock()
		return
	}

	apply(&m.state)
	m.state.Loading = false
	snap := m.state.clone()
	m.mu.Unlock()
	m.notify(snap)
}

func (m *Manager) notify(snap State) {
	m.obsMu.Lock()
	fns := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// classifyProviderErr maps unclassified provider failures (transport
// errors, deadlines) onto the Unreachable category so the UI can offer a
// retry instead of blaming the password.
func classifyProviderErr(err error) error {
	if serviceerr.Classify(err) != serviceerr.CodeUnknown {
		return err
	}

	return fmt.Errorf("%w: %s", serviceerr.ErrUnreachable, err)
}

type observerSubscription struct {
	manager *Manager
	id      int
	once    sync.Once
}

func (s *observerSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.manager.obsMu.Lock()
		delete(s.manager.observers, s.id)
		s.manager.obsMu.Unlock()
	})
}
