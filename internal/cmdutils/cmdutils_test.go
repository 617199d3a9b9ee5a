package cmdutils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/stretchr/testify/assert"

	"github.com/Geodev122/cogniflow-sub002/internal/config"
)

func TestCobraCommand(t *testing.T) {
	noopBusiness := func(ctx context.Context, cfg *config.Config) error {
		return nil
	}

	passthroughWrapper := func(ctx context.Context, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
		return fn(ctx, cfg)
	}

	t.Run("creates command with the given properties", func(t *testing.T) {
		cmd := CobraCommand("test-cmd", "short desc", "long description", "v1.0.0", passthroughWrapper, noopBusiness)

		assert.Equal(t, "test-cmd", cmd.Use)
		assert.Equal(t, "short desc", cmd.Short)
		assert.Equal(t, "long description", cmd.Long)
		assert.NotNil(t, cmd.RunE)
	})

	t.Run("fails when no config file can be found", func(t *testing.T) {
		cmd := CobraCommand("test-cmd", "short", "long", "v1.0.0", passthroughWrapper, noopBusiness)

		err := cmd.Execute()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "loading config")
	})
}

func TestStatusListener(t *testing.T) {
	tests := []struct {
		name  string
		state health.State
	}{
		{
			name:  "no checks",
			state: health.State{Status: "up", CheckState: map[string]health.CheckState{}},
		},
		{
			name: "database up",
			state: health.State{
				Status: "up",
				CheckState: map[string]health.CheckState{
					"database": {Status: "up"},
				},
			},
		},
		{
			name: "database down",
			state: health.State{
				Status: "down",
				CheckState: map[string]health.CheckState{
					"database": {Status: "down", Result: errors.New("connection refused")},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				statusListener(context.Background(), tt.state)
			})
		})
	}
}

func TestStartStatusServer(t *testing.T) {
	t.Run("fails when the connection string cannot be built", func(t *testing.T) {
		cfg := &config.Config{}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := startStatusServer(ctx, cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "making connection string from config")
	})
}
