package setup

import (
	"context"
	"testing"

	"github.com/itchan-dev/authgate/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDependencies_Memory(t *testing.T) {
	cfg := &config.Config{
		Public: config.Public{
			Port: "8081",
			Auth: config.Auth{URL: "http://localhost:9999/auth/v1"},
			Home: config.Home{WelcomeMarkdown: "Hello"},
		},
		Private: config.Private{AuthAnonKey: "anon", JwtSecret: "secret"},
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	deps, err := SetupDependencies(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.Handler)
	assert.NotNil(t, deps.Guard)
	assert.NotNil(t, deps.Registry)
	assert.NotNil(t, deps.FormLimiter)
	assert.NotNil(t, deps.EmailLimiter)
	assert.Nil(t, deps.PgStorage)
	assert.Same(t, deps.Guard, deps.Handler.Sessions)
	assert.Contains(t, deps.Handler.Templates, "login.html")
}

func TestDependenciesCloseIsIdempotent(t *testing.T) {
	calls := 0
	deps := &Dependencies{closers: []func(){func() { calls++ }}}
	deps.Close()
	deps.Close()
	assert.Equal(t, 1, calls)
}
