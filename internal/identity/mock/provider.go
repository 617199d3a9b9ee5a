// Package identitymock provides an in-memory identity.Provider for tests.
package identitymock

import (
	"context"
	"sync"
	"time"

	"github.com/Geodev122/cogniflow-sub002/internal/identity"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

type ProviderOption func(*Provider)

type Provider struct {
	mu sync.Mutex

	current  *identity.Session
	accounts map[string]account // keyed by email

	currentSessionErr error
	signInErr         error
	signUpErr         error
	signOutErr        error
	refreshErr        error

	signUpSession bool
	callDelay     time.Duration

	CurrentSessionCalls int
	SignInCalls         int
	SignUpCalls         int
	SignOutCalls        int
	RefreshCalls        int

	subMu       sync.Mutex
	nextSubID   int
	subscribers map[int]func(identity.Event)
}

type account struct {
	subject  string
	password string
	metadata identity.Metadata
}

func WithStoredSession(s identity.Session) ProviderOption {
	return func(p *Provider) { p.current = &s }
}

func WithAccount(subject, email, password string, md identity.Metadata) ProviderOption {
	return func(p *Provider) {
		p.accounts[email] = account{subject: subject, password: password, metadata: md}
	}
}

func WithCurrentSessionError(err error) ProviderOption {
	return func(p *Provider) { p.currentSessionErr = err }
}

func WithSignInError(err error) ProviderOption {
	return func(p *Provider) { p.signInErr = err }
}

func WithSignUpError(err error) ProviderOption {
	return func(p *Provider) { p.signUpErr = err }
}

func WithSignOutError(err error) ProviderOption {
	return func(p *Provider) { p.signOutErr = err }
}

func WithRefreshError(err error) ProviderOption {
	return func(p *Provider) { p.refreshErr = err }
}

// WithSignUpSession makes SignUp return a usable session, mimicking a
// provider configured to auto-confirm new identities.
func WithSignUpSession() ProviderOption {
	return func(p *Provider) { p.signUpSession = true }
}

// WithCallDelay makes every provider call sleep first, to widen race
// windows in concurrency tests.
func WithCallDelay(d time.Duration) ProviderOption {
	return func(p *Provider) { p.callDelay = d }
}

// SetCurrentSessionError swaps the CurrentSession failure at runtime, so
// a test can let a previously unreachable provider recover.
func (p *Provider) SetCurrentSessionError(err error) {
	p.mu.Lock()
	p.currentSessionErr = err
	p.mu.Unlock()
}

var _ identity.Provider = (*Provider)(nil)

func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		accounts:    make(map[string]account),
		subscribers: make(map[int]func(identity.Event)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Provider) CurrentSession(ctx context.Context) (*identity.Session, error) {
	p.delay(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.CurrentSessionCalls++
	if p.currentSessionErr != nil {
		return nil, p.currentSessionErr
	}
	if p.current == nil {
		return nil, nil
	}

	s := *p.current
	return &s, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	p.delay(ctx)

	p.mu.Lock()
	p.SignInCalls++
	if p.signInErr != nil {
		err := p.signInErr
		p.mu.Unlock()
		return nil, err
	}

	acc, ok := p.accounts[email]
	if !ok || acc.password != password {
		p.mu.Unlock()
		return nil, serviceerr.ErrInvalidCredentials
	}

	session := &identity.Session{
		Subject:      acc.subject,
		Email:        email,
		AccessToken:  "access-" + acc.subject,
		RefreshToken: "refresh-" + acc.subject,
		Expiry:       time.Now().Add(time.Hour),
	}
	p.current = session
	p.mu.Unlock()

	p.Emit(identity.Event{Kind: identity.EventSignedIn, Session: session})

	return session, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string, md identity.Metadata) (string, *identity.Session, error) {
	p.delay(ctx)

	p.mu.Lock()
	p.SignUpCalls++
	if p.signUpErr != nil {
		err := p.signUpErr
		p.mu.Unlock()
		return "", nil, err
	}

	if _, ok := p.accounts[email]; ok {
		p.mu.Unlock()
		return "", nil, serviceerr.ErrConflict
	}

	subject := "sub-" + email
	p.accounts[email] = account{subject: subject, password: password, metadata: md}

	if !p.signUpSession {
		p.mu.Unlock()
		return subject, nil, nil
	}

	session := &identity.Session{
		Subject:      subject,
		Email:        email,
		AccessToken:  "access-" + subject,
		RefreshToken: "refresh-" + subject,
		Expiry:       time.Now().Add(time.Hour),
	}
	p.current = session
	p.mu.Unlock()

	p.Emit(identity.Event{Kind: identity.EventSignedIn, Session: session})

	return subject, session, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.delay(ctx)

	p.mu.Lock()
	p.SignOutCalls++
	p.current = nil
	err := p.signOutErr
	p.mu.Unlock()

	p.Emit(identity.Event{Kind: identity.EventSignedOut})

	return err
}

func (p *Provider) RefreshSession(ctx context.Context) (*identity.Session, error) {
	p.delay(ctx)

	p.mu.Lock()
	p.RefreshCalls++
	if p.refreshErr != nil {
		err := p.refreshErr
		p.mu.Unlock()
		return nil, err
	}
	if p.current == nil {
		p.mu.Unlock()
		return nil, serviceerr.ErrNotFound
	}

	p.current.Expiry = time.Now().Add(time.Hour)
	session := *p.current
	p.mu.Unlock()

	p.Emit(identity.Event{Kind: identity.EventTokenRefreshed, Session: &session})

	return &session, nil
}

func (p *Provider) OnSessionChange(fn func(identity.Event)) identity.Subscription {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = fn

	return &subscription{provider: p, id: id}
}

// Emit delivers an event to all subscribers, synchronously.
func (p *Provider) Emit(event identity.Event) {
	p.subMu.Lock()
	fns := make([]func(identity.Event), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// Subscribers reports how many listeners are currently registered.
func (p *Provider) Subscribers() int {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	return len(p.subscribers)
}

func (p *Provider) delay(ctx context.Context) {
	if p.callDelay <= 0 {
		return
	}
	select {
	case <-time.After(p.callDelay):
	case <-ctx.Done():
	}
}

type subscription struct {
	provider *Provider
	id       int
	once     sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.provider.subMu.Lock()
		delete(s.provider.subscribers, s.id)
		s.provider.subMu.Unlock()
	})
}
