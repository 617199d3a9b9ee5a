package business

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/authsession"
	"github.com/Geodev122/cogniflow-sub002/internal/business/server"
	"github.com/Geodev122/cogniflow-sub002/internal/config"
	"github.com/Geodev122/cogniflow-sub002/internal/identity/httpapi"
	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	profilesql "github.com/Geodev122/cogniflow-sub002/internal/profile/sql"
	profilevalkey "github.com/Geodev122/cogniflow-sub002/internal/profile/valkey"
)

// Main starts the public HTTP API server hosting the auth session manager.
func Main(ctx context.Context, cfg *config.Config) error {
	deps, closeFn, err := initAuthManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the auth session manager: %w", err)
	}

	defer closeFn()

	// The provider settings tell us whether sign-ups hand out a session
	// right away. A mismatch with the configured expectation means newly
	// registered users end up signed out until they sign in explicitly.
	if settings, err := deps.identityClient.Settings(ctx); err != nil {
		slogctx.Warn(ctx, "Could not load identity provider settings", "error", err)
	} else if settings.Autoconfirm != cfg.Auth.SignUpEstablishesSession {
		slogctx.Warn(ctx, "Provider auto-confirm does not match the configured sign-up behaviour",
			"autoconfirm", settings.Autoconfirm,
			"signUpEstablishesSession", cfg.Auth.SignUpEstablishesSession)
	}

	// Keep the provider session fresh while the server runs.
	go deps.identityClient.RunAutoRefresh(ctx, time.Minute, cfg.Auth.TokenRefreshLeeway)

	if err := deps.manager.Initialize(ctx); err != nil {
		slogctx.Warn(ctx, "Initial session bootstrap did not complete", "error", err)
	}

	return server.StartHTTPServer(ctx, cfg, deps.manager, deps.profileService)
}

// managerDeps bundles everything initAuthManager wires together.
type managerDeps struct {
	manager        *authsession.Manager
	identityClient *httpapi.Client
	profileService *profile.Service
	profileRepo    *profilesql.Repository
	profileCache   *profilevalkey.Repository
}

func initAuthManager(ctx context.Context, cfg *config.Config) (_ *managerDeps, closeFn func(), _ error) {
	db, err := openPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	valkeyClient, err := openValkey(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	apiKey, err := commoncfg.LoadValueFromSourceRef(cfg.Auth.APIKey)
	if err != nil {
		db.Close()
		valkeyClient.Close()

		return nil, nil, fmt.Errorf("loading identity provider API key: %w", err)
	}

	identityClient, err := httpapi.NewClient(cfg.Auth.ProviderURL, string(apiKey), http.DefaultClient)
	if err != nil {
		db.Close()
		valkeyClient.Close()

		return nil, nil, fmt.Errorf("creating identity provider client: %w", err)
	}

	profileRepo := profilesql.NewRepository(db)
	profileCache := profilevalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix, cfg.ValKey.CacheTTL, profileRepo)
	profileService := profile.NewService(profileCache, cfg.Auth.ProfileFetchTimeout)

	manager := authsession.NewManager(&cfg.Auth, identityClient, profileService)

	closeFn = func() {
		manager.Close()
		valkeyClient.Close()
		db.Close()
	}

	return &managerDeps{
		manager:        manager,
		identityClient: identityClient,
		profileService: profileService,
		profileRepo:    profileRepo,
		profileCache:   profileCache,
	}, closeFn, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}

	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	return db, nil
}

func openValkey(cfg *config.Config) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyClient, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	})
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}
