// Package identity abstracts the remote identity provider: credential
// verification, session issuance and refresh, sign-out, and asynchronous
// session-change notifications.
package identity

import (
	"context"
	"time"
)

// Session is a live authentication grant issued by the provider. It is
// held by the auth session manager and never persisted locally.
type Session struct {
	Subject      string
	Email        string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Expired reports whether the access token is past its expiry instant.
func (s *Session) Expired() bool {
	return !s.Expiry.IsZero() && time.Now().After(s.Expiry)
}

// Metadata is the application data embedded in the identity record at
// sign-up time. It is the source for profile auto-provisioning.
type Metadata struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type EventKind string

const (
	EventSignedIn       EventKind = "signed-in"
	EventSignedOut      EventKind = "signed-out"
	EventTokenRefreshed EventKind = "token-refreshed"
)

// Event is an asynchronous session-change notification. Session is nil
// for signed-out events.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Subscription is the handle returned by OnSessionChange. Unsubscribe is
// idempotent; after it returns the listener is never called again.
type Subscription interface {
	Unsubscribe()
}

type Provider interface {
	// CurrentSession returns the ambient stored session, or (nil, nil)
	// when none exists.
	CurrentSession(ctx context.Context) (*Session, error)

	// SignInWithPassword verifies the credentials and establishes a session.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignUp creates a new identity with the given metadata attached.
	// The returned session is nil when the provider requires a separate
	// sign-in (for example pending email confirmation); the subject id of
	// the created identity is returned either way.
	SignUp(ctx context.Context, email, password string, md Metadata) (subject string, _ *Session, _ error)

	// SignOut terminates the remote session.
	SignOut(ctx context.Context) error

	// RefreshSession exchanges the refresh credential for a new grant.
	RefreshSession(ctx context.Context) (*Session, error)

	// OnSessionChange registers a listener for session-change events.
	OnSessionChange(fn func(Event)) Subscription
}
