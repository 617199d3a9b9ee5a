package authsession

import (
	"context"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/identity"
)

// handleEvent folds provider-originated session changes into the state.
// Events never toggle the loading flag; only explicit commands do, so a
// background token refresh cannot make the UI flash a spinner.
func (m *Manager) handleEvent(event identity.Event) {
	if m.closed.Load() {
		return
	}

	switch event.Kind {
	case identity.EventSignedOut:
		m.mu.Lock()
		m.gen++
		m.state.User = nil
		m.state.Profile = nil
		m.state.Err = nil
		m.state.Loading = false
		snap := m.state.clone()
		m.mu.Unlock()
		m.notify(snap)

	case identity.EventSignedIn:
		if event.Session == nil {
			return
		}

		m.mu.Lock()
		if m.state.Loading {
			// An explicit command is mid-transition and will reconcile
			// the announced session itself.
			m.mu.Unlock()
			return
		}
		if m.state.User != nil && m.state.User.ID == event.Session.Subject && m.state.Profile != nil {
			// The explicit sign-in already completed the full
			// transition; a second fetch would be pure churn.
			m.mu.Unlock()
			return
		}
		attempt := m.gen
		m.mu.Unlock()

		go m.adoptSession(attempt, event.Session)

	case identity.EventTokenRefreshed:
		if event.Session == nil {
			return
		}

		m.mu.Lock()
		needsProfile := m.state.User != nil && m.state.Profile == nil && !m.state.Loading
		attempt := m.gen
		m.mu.Unlock()

		// A refresh does not change who is signed in; only backfill a
		// profile that a previous fetch failed to load.
		if needsProfile {
			go m.adoptSession(attempt, event.Session)
		}
	}
}

// adoptSession reflects a provider-announced session in the state,
// fetching the profile for its subject. The outcome is discarded when
// the state moved on while the fetch was in flight.
func (m *Manager) adoptSession(attempt uint64, session *identity.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), m.requestTimeout)
	defer cancel()

	p, err := m.profiles.GetProfile(ctx, session.Subject)

	m.mu.Lock()
	if m.gen != attempt {
		m.mu.Unlock()
		return
	}

	subjectChanged := m.state.User == nil || m.state.User.ID != session.Subject
	m.state.User = &User{ID: session.Subject, Email: session.Email}
	if err != nil {
		if subjectChanged {
			m.state.Profile = nil
		}
		m.state.Err = stateErrorFrom(err)
	} else {
		m.state.Profile = &p
		m.state.Err = nil
	}
	snap := m.state.clone()
	m.mu.Unlock()
	m.notify(snap)

	if err != nil {
		slogctx.Warn(ctx, "Profile fetch for announced session failed", "subject_id", session.Subject, "error", err)
	}
}
