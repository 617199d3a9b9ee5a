package business

import (
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"

	"github.com/Geodev122/cogniflow-sub002/internal/config"
)

func TestMigrateMain_InvalidDatabaseConfig(t *testing.T) {
	cfg := &config.Config{
		Database: config.Database{
			Host:     commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}},
			Port:     "5432",
			Name:     "auth_manager",
			User:     commoncfg.SourceRef{Source: "embedded", Value: "user"},
			Password: commoncfg.SourceRef{Source: "embedded", Value: "pass"},
		},
	}

	err := MigrateMain(t.Context(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "making connection string from config")
}

func TestMigrateMain_UnsupportedSource(t *testing.T) {
	cfg := &config.Config{
		Database: config.Database{
			Host:     commoncfg.SourceRef{Source: "embedded", Value: "localhost"},
			Port:     "5432",
			Name:     "auth_manager",
			User:     commoncfg.SourceRef{Source: "embedded", Value: "user"},
			Password: commoncfg.SourceRef{Source: "embedded", Value: "pass"},
		},
		Migrate: config.Migrate{Source: "s3://migrations"},
	}

	err := MigrateMain(t.Context(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "resolving migration source")
}
