package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/passvault/internal/server/breach"
	"github.com/dmitrijs2005/passvault/internal/server/config"
	"github.com/dmitrijs2005/passvault/internal/server/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := logOutput
	logOutput = io.Discard
	t.Cleanup(func() { logOutput = prev })

	c := &config.Config{}
	c.LoadDefaults()
	c.DataDir = filepath.Join(t.TempDir(), "data")
	c.ListenAddr = "127.0.0.1:0"
	c.BreachURL = ""
	c.KDFTime, c.KDFMemoryKiB, c.KDFThreads = 1, 64, 1
	return c
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestNewApp_CreatesEmbeddedDatabase(t *testing.T) {
	c := testConfig(t)
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	defer app.db.Close()

	_, err = os.Stat(filepath.Join(c.DataDir, "passvault.db"))
	assert.NoError(t, err)
}

func TestNewApp_Errors(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		c := testConfig(t)
		c.StorageDriver = "mysql"
		_, err := NewApp(context.Background(), c)
		assert.ErrorContains(t, err, "db init error")
	})

	t.Run("bad kdf params", func(t *testing.T) {
		c := testConfig(t)
		c.KDFThreads = 0
		_, err := NewApp(context.Background(), c)
		assert.ErrorContains(t, err, "kdf init error")
	})

	t.Run("missing api key file", func(t *testing.T) {
		c := testConfig(t)
		c.BreachURL = "http://127.0.0.1:1"
		c.BreachAPIKeyFile = filepath.Join(t.TempDir(), "nope")
		_, err := NewApp(context.Background(), c)
		assert.ErrorContains(t, err, "breach checker init error")
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		c := testConfig(t)
		c.VaultBackend = "s3"
		c.S3Bucket = ""
		_, err := NewApp(context.Background(), c)
		assert.ErrorContains(t, err, "vault init error")
	})
}

func TestNewVaultBackend(t *testing.T) {
	c := testConfig(t)
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	defer app.db.Close()

	b, err := newVaultBackend(context.Background(), c, app.db, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &vault.SQLBackend{}, b)

	c.VaultBackend = "s3"
	c.S3BaseEndpoint = "http://127.0.0.1:9000"
	c.S3AccessKey, c.S3SecretKey = "ak", "sk"
	b, err = newVaultBackend(context.Background(), c, app.db, nil, app.logger)
	require.NoError(t, err)
	assert.IsType(t, &vault.S3Backend{}, b)
}

func TestNewChecker(t *testing.T) {
	c := testConfig(t)
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	defer app.db.Close()

	ch, err := newChecker(c, app.logger)
	require.NoError(t, err)
	assert.Equal(t, breach.Disabled{}, ch)

	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("k3y\n"), 0o600))
	c.BreachURL = "http://127.0.0.1:1"
	c.BreachAPIKeyFile = keyFile
	ch, err = newChecker(c, app.logger)
	require.NoError(t, err)
	assert.IsType(t, &breach.RangeChecker{}, ch)
}

func TestApp_RunServesAndStops(t *testing.T) {
	c := testConfig(t)
	c.ListenAddr = freeAddr(t)
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	var nc net.Conn
	require.Eventually(t, func() bool {
		nc, err = net.Dial("tcp", c.ListenAddr)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer nc.Close()

	r := bufio.NewReader(nc)
	_ = nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	greeting, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "OK passvault/1 ready\n", greeting)

	_, err = io.WriteString(nc, "REGISTER alice pw\n")
	require.NoError(t, err)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "OK registered\n", line)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Error(t, app.db.Ping(), "db must be closed after Run")
}

func TestApp_RunReturnsListenError(t *testing.T) {
	c := testConfig(t)
	c.ListenAddr = "127.0.0.1:99999"
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	assert.Error(t, app.Run(context.Background()))
}
