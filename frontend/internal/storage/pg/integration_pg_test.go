package pg

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/storage"
	"github.com/itchan-dev/authgate/shared/crypto"
	"github.com/itchan-dev/authgate/shared/domain"
	sharedpg "github.com/itchan-dev/authgate/shared/storage/pg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testDB *sql.DB
	sealer *crypto.Sealer
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	container := mustSetup(ctx)

	exitCode := m.Run()

	teardown(ctx, container)
	os.Exit(exitCode)
}

func mustSetup(ctx context.Context) *postgres.PostgresContainer {
	container, err := postgres.Run(ctx,
		"postgres:15.3-alpine",
		postgres.WithDatabase("authgate"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			// The container restarts itself after the first startup.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("failed to obtain connection string: %s", err)
	}
	testDB, err = sharedpg.Connect(ctx, dsn, sharedpg.LightweightConnectionConfig())
	if err != nil {
		log.Fatalf("failed to connect to postgres container: %s", err)
	}
	if err := Migrate(ctx, testDB); err != nil {
		log.Fatalf("failed to migrate: %s", err)
	}
	sealer, err = crypto.NewSealer("test-secret", SealPurpose)
	if err != nil {
		log.Fatalf("failed to create sealer: %s", err)
	}
	return container
}

func teardown(ctx context.Context, container *postgres.PostgresContainer) {
	if err := testDB.Close(); err != nil {
		log.Printf("failed to close db: %s", err)
	}
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
}

func testToken(access string) domain.Token {
	return domain.Token{
		AccessToken:  access,
		RefreshToken: "rt",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		User: domain.User{
			Id:         "u1",
			Email:      "user@example.com",
			Identities: []domain.Identity{{Id: "i1", Provider: "email"}},
		},
	}
}

func TestStorage_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := New(testDB, sealer, time.Hour)

	_, err := s.Load(ctx, "sid-a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	tok := testToken("at1")
	require.NoError(t, s.Save(ctx, "sid-a", tok))

	got, err := s.Load(ctx, "sid-a")
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
	assert.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, tok.User.Identities, got.User.Identities)

	require.NoError(t, s.Save(ctx, "sid-a", testToken("at2")))
	got, err = s.Load(ctx, "sid-a")
	require.NoError(t, err)
	assert.Equal(t, "at2", got.AccessToken)

	require.NoError(t, s.Delete(ctx, "sid-a"))
	_, err = s.Load(ctx, "sid-a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_TokensAreSealed(t *testing.T) {
	ctx := context.Background()
	s := New(testDB, sealer, time.Hour)
	require.NoError(t, s.Save(ctx, "sid-sealed", testToken("plain-access-token")))

	var raw []byte
	require.NoError(t, testDB.QueryRowContext(ctx, `SELECT sealed FROM visitor_sessions WHERE sid = $1`, "sid-sealed").Scan(&raw))
	assert.NotContains(t, string(raw), "plain-access-token")

	t.Run("row moved to another sid is unreadable", func(t *testing.T) {
		_, err := testDB.ExecContext(ctx, `UPDATE visitor_sessions SET sid = 'sid-stolen' WHERE sid = 'sid-sealed'`)
		require.NoError(t, err)

		_, err = s.Load(ctx, "sid-stolen")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("other secret cannot read", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "sid-other", testToken("at")))
		otherSealer, err := crypto.NewSealer("another-secret", SealPurpose)
		require.NoError(t, err)

		_, err = New(testDB, otherSealer, time.Hour).Load(ctx, "sid-other")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestStorage_Expiry(t *testing.T) {
	ctx := context.Background()
	s := New(testDB, sealer, -time.Second)

	require.NoError(t, s.Save(ctx, "sid-expired", testToken("at")))
	_, err := s.Load(ctx, "sid-expired")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}

func TestStorage_Ping(t *testing.T) {
	assert.NoError(t, New(testDB, sealer, time.Hour).Ping(context.Background()))
}
