// Package httpapi implements the identity.Provider interface over the
// provider's REST API (password grant, sign-up, logout, token refresh).
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	gocache "github.com/patrickmn/go-cache"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/identity"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

const settingsCacheKey = "settings"

// sigAlgs are the signature algorithms accepted when reading subject and
// expiry claims out of an access token. Claims are read unverified; the
// token is only ever presented back to the provider that minted it.
var sigAlgs = []jose.SignatureAlgorithm{jose.RS256, jose.ES256, jose.HS256}

type Client struct {
	baseURL      *url.URL
	apiKey       string
	secureClient *http.Client
	settings     *gocache.Cache

	mu      sync.Mutex
	current *identity.Session

	subMu       sync.Mutex
	nextSubID   int
	subscribers map[int]func(identity.Event)
}

var _ identity.Provider = (*Client)(nil)

func NewClient(providerURL, apiKey string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(providerURL)
	if err != nil {
		return nil, fmt.Errorf("parsing provider URL: %w", err)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:      u,
		apiKey:       apiKey,
		secureClient: httpClient,
		settings:     gocache.New(10*time.Minute, 30*time.Minute),
		subscribers:  make(map[int]func(identity.Event)),
	}, nil
}

func (c *Client) CurrentSession(_ context.Context) (*identity.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, nil
	}

	s := *c.current
	return &s, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var tokens tokenResponse
	status, err := c.post(ctx, "/token?grant_type=password", body, "", &tokens)
	if err != nil {
		return nil, fmt.Errorf("requesting password grant: %w", err)
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusBadRequest, status == http.StatusUnauthorized, status == http.StatusUnprocessableEntity:
		return nil, serviceerr.ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: password grant returned status %d", serviceerr.ErrUnreachable, status)
	}

	session, err := sessionFromTokens(tokens)
	if err != nil {
		return nil, fmt.Errorf("building session from token response: %w", err)
	}

	c.setCurrent(session)
	c.emit(identity.Event{Kind: identity.EventSignedIn, Session: session})

	return session, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, md identity.Metadata) (string, *identity.Session, error) {
	// The settings document tells us upfront whether the provider accepts
	// sign-ups at all. When it cannot be fetched the sign-up request is
	// still attempted; the provider stays the authority on rejecting it.
	settings, err := c.Settings(ctx)

	switch {
	case err != nil:
		slogctx.Warn(ctx, "Could not load provider settings before sign-up", "error", err)
	case settings.DisableSignup:
		return "", nil, serviceerr.ErrSignupDisabled
	}

	body := signUpRequest{
		Email:    email,
		Password: password,
		Data:     md,
	}

	var resp signUpResponse
	status, err := c.post(ctx, "/signup", body, "", &resp)
	if err != nil {
		return "", nil, fmt.Errorf("requesting sign-up: %w", err)
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusUnprocessableEntity, status == http.StatusConflict:
		return "", nil, fmt.Errorf("%w: identity already exists", serviceerr.ErrConflict)
	default:
		return "", nil, fmt.Errorf("%w: sign-up returned status %d", serviceerr.ErrUnreachable, status)
	}

	subject := resp.ID
	if subject == "" && resp.User != nil {
		subject = resp.User.ID
	}

	// The provider only returns tokens when it auto-confirms new identities.
	if resp.AccessToken == "" {
		return subject, nil, nil
	}

	session, err := sessionFromTokens(tokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		User:         resp.User,
	})
	if err != nil {
		return subject, nil, fmt.Errorf("building session from sign-up response: %w", err)
	}

	c.setCurrent(session)
	c.emit(identity.Event{Kind: identity.EventSignedIn, Session: session})

	return session.Subject, session, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.current = nil
	c.mu.Unlock()

	c.emit(identity.Event{Kind: identity.EventSignedOut})

	if current == nil {
		return nil
	}

	status, err := c.post(ctx, "/logout", nil, current.AccessToken, nil)
	if err != nil {
		return fmt.Errorf("requesting logout: %w", err)
	}

	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("%w: logout returned status %d", serviceerr.ErrUnreachable, status)
	}

	return nil
}

func (c *Client) RefreshSession(ctx context.Context) (*identity.Session, error) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	if current == nil {
		return nil, fmt.Errorf("%w: no session to refresh", serviceerr.ErrNotFound)
	}

	body := map[string]string{"refresh_token": current.RefreshToken}

	var tokens tokenResponse
	status, err := c.post(ctx, "/token?grant_type=refresh_token", body, "", &tokens)
	if err != nil {
		return nil, fmt.Errorf("requesting token refresh: %w", err)
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: token refresh returned status %d", serviceerr.ErrUnreachable, status)
	}

	session, err := sessionFromTokens(tokens)
	if err != nil {
		return nil, fmt.Errorf("building session from refresh response: %w", err)
	}

	if session.Subject == "" {
		session.Subject = current.Subject
	}
	if session.Email == "" {
		session.Email = current.Email
	}

	c.setCurrent(session)
	c.emit(identity.Event{Kind: identity.EventTokenRefreshed, Session: session})

	return session, nil
}

// Settings fetches the provider settings document, caching it between calls.
func (c *Client) Settings(ctx context.Context) (Settings, error) {
	if cached, ok := c.settings.Get(settingsCacheKey); ok {
		//nolint:forcetypeassert
		return cached.(Settings), nil
	}

	u := c.baseURL.JoinPath("/settings")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Settings{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.secureClient.Do(req)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %s", serviceerr.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Settings{}, fmt.Errorf("%w: settings returned status %d", serviceerr.ErrUnreachable, resp.StatusCode)
	}

	var settings Settings
	if err := json.NewDecoder(resp.Body).Decode(&settings); err != nil {
		return Settings{}, fmt.Errorf("decoding settings response: %w", err)
	}

	c.settings.Set(settingsCacheKey, settings, 0)

	return settings, nil
}

func (c *Client) OnSessionChange(fn func(identity.Event)) identity.Subscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn

	return &subscription{client: c, id: id}
}

// RunAutoRefresh refreshes the access token shortly before it expires and
// keeps doing so until the context is cancelled.
func (c *Client) RunAutoRefresh(ctx context.Context, interval, leeway time.Duration) {
	tick := time.Tick(interval)
	for {
		select {
		case <-tick:
		case <-ctx.Done():
			return
		}

		c.mu.Lock()
		current := c.current
		c.mu.Unlock()

		if current == nil || time.Until(current.Expiry) > leeway {
			continue
		}

		if _, err := c.RefreshSession(ctx); err != nil {
			slogctx.Warn(ctx, "Could not refresh session token", "error", err)
		}
	}
}

func (c *Client) setCurrent(s *identity.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
}

func (c *Client) emit(event identity.Event) {
	c.subMu.Lock()
	fns := make([]func(identity.Event), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// post sends a JSON request to the given API path. A non-nil out is
// decoded from 2xx responses only. The returned status is always valid
// when err is nil.
func (c *Client) post(ctx context.Context, path string, body any, bearer string, out any) (int, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return 0, fmt.Errorf("parsing request path: %w", err)
	}

	u := c.baseURL.ResolveReference(ref)

	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return 0, fmt.Errorf("encoding request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &payload)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.secureClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", serviceerr.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

type subscription struct {
	client *Client
	id     int
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.subMu.Lock()
		delete(s.client.subscribers, s.id)
		s.client.subMu.Unlock()
	})
}

// sessionFromTokens builds a session from a token response, falling back
// to the access token claims when the user object is absent.
func sessionFromTokens(tokens tokenResponse) (*identity.Session, error) {
	session := &identity.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}

	if tokens.ExpiresIn > 0 {
		session.Expiry = time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}

	if tokens.User != nil {
		session.Subject = tokens.User.ID
		session.Email = tokens.User.Email
	}

	if session.Subject != "" && !session.Expiry.IsZero() {
		return session, nil
	}

	token, err := jwt.ParseSigned(tokens.AccessToken, sigAlgs)
	if err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}

	var claims jwt.Claims
	if err := token.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, fmt.Errorf("reading access token claims: %w", err)
	}

	if session.Subject == "" {
		session.Subject = claims.Subject
	}
	if session.Expiry.IsZero() && claims.Expiry != nil {
		session.Expiry = claims.Expiry.Time()
	}

	return session, nil
}
