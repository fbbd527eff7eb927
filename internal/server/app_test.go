package server

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/adminaccess/internal/logging"
	"github.com/dmitrijs2005/adminaccess/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Storage = config.StorageMemory
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.HashTime = 1
	c.HashMemoryKiB = 1024
	return c
}

func TestNewApp_WarnsOnDefaultSecret(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New("debug", "json", &logs)

	app, err := NewApp(context.Background(), memoryConfig(), logger, &bytes.Buffer{})
	require.NoError(t, err)
	defer app.Close()

	assert.Contains(t, logs.String(), "insecure default secret key")
	assert.Contains(t, logs.String(), `"level":"WARN"`)
}

func TestNewApp_NoWarningWithCustomSecret(t *testing.T) {
	var logs bytes.Buffer
	c := memoryConfig()
	c.SecretKey = "a-real-secret"

	_, err := NewApp(context.Background(), c, logging.New("debug", "json", &logs), &bytes.Buffer{})
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "insecure default secret key")
}

func TestNewApp_DatabaseError(t *testing.T) {
	orig := openDB
	defer func() { openDB = orig }()
	openDB = func(context.Context, string) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}

	c := memoryConfig()
	c.Storage = config.StoragePostgres

	_, err := NewApp(context.Background(), c, logging.Nop{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestApp_EndToEndWithMemoryStorage(t *testing.T) {
	var outbox bytes.Buffer
	app, err := NewApp(context.Background(), memoryConfig(), logging.Nop{}, &outbox)
	require.NoError(t, err)

	ctx := context.Background()
	access := app.Access()

	require.NoError(t, access.Register(ctx, "owner@bistro.test", "pw", "Owner"))

	tok, err := access.Login(ctx, "owner@bistro.test", "pw")
	require.NoError(t, err)
	claims, err := access.VerifySession(tok)
	require.NoError(t, err)
	assert.Equal(t, "restaurant_admin", claims.RoleName)

	ok, err := access.CheckPermission(ctx, "owner@bistro.test", "orders.write")
	require.NoError(t, err)
	assert.True(t, ok)

	recovery, err := access.RequestRecovery(ctx, "owner@bistro.test")
	require.NoError(t, err)
	assert.True(t, strings.Contains(outbox.String(), recovery))

	require.NoError(t, access.CompleteRecovery(ctx, recovery, "new-pw"))
	_, err = access.Login(ctx, "owner@bistro.test", "new-pw")
	require.NoError(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig(), logging.Nop{}, &bytes.Buffer{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}
