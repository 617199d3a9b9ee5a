// Package authsession owns the lifecycle of "who is the current user and
// what is their profile". It mediates every identity provider and profile
// store interaction and publishes a consistent snapshot to the UI layer.
package authsession

import (
	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

// User identifies the subject of the current session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// State is the externally observable snapshot. It is published as a value
// copy per transition; readers never observe a torn state.
//
// Invariant: when User is nil, Profile is nil.
type State struct {
	User    *User            `json:"user,omitempty"`
	Profile *profile.Profile `json:"profile,omitempty"`
	Loading bool             `json:"loading"`
	Err     *StateError      `json:"error,omitempty"`
}

// StateError is the classified last error carried in the snapshot.
type StateError struct {
	Code        serviceerr.Code `json:"code"`
	Description string          `json:"description,omitempty"`
	Retryable   bool            `json:"retryable"`
}

func stateErrorFrom(err error) *StateError {
	if err == nil {
		return nil
	}

	code := serviceerr.Classify(err)
	return &StateError{
		Code:        code,
		Description: err.Error(),
		Retryable:   code.Retryable(),
	}
}

// clone returns a deep copy so published snapshots cannot be mutated
// from under a reader.
func (s State) clone() State {
	out := State{Loading: s.Loading}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	if s.Err != nil {
		e := *s.Err
		out.Err = &e
	}
	return out
}

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}
