package config

import (
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestAuthConfig_YAML(t *testing.T) {
	doc := []byte(`
providerURL: https://identity.cogniflow.example
apiKey:
  source: embedded
  value: test-api-key
requestTimeout: 8s
profileFetchTimeout: 3s
signUpEstablishesSession: true
tokenRefreshLeeway: 2m
retry:
  maxAttempts: 5
  baseDelay: 250ms
  multiplier: 1.5
`)

	var got Auth
	require.NoError(t, yaml.Unmarshal(doc, &got))

	want := Auth{
		ProviderURL:              "https://identity.cogniflow.example",
		RequestTimeout:           8 * time.Second,
		ProfileFetchTimeout:      3 * time.Second,
		SignUpEstablishesSession: true,
		TokenRefreshLeeway:       2 * time.Minute,
		Retry: Retry{
			MaxAttempts: 5,
			BaseDelay:   250 * time.Millisecond,
			Multiplier:  1.5,
		},
	}
	want.APIKey.Source = "embedded"
	want.APIKey.Value = "test-api-key"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Auth config mismatch (-want +got):\n%s", diff)
	}
}

func TestHousekeeperConfig_YAML(t *testing.T) {
	var got Housekeeper
	require.NoError(t, yaml.Unmarshal([]byte("interval: 30m"), &got))

	if diff := cmp.Diff(Housekeeper{Interval: 30 * time.Minute}, got); diff != "" {
		t.Errorf("Housekeeper config mismatch (-want +got):\n%s", diff)
	}
}
