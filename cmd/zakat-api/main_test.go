package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_StartsAndShutsDown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "api.db")
	t.Setenv("ENV", "development")
	t.Setenv("API_PORT", "18731")
	t.Setenv("DB_PATH", dbPath)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get("http://localhost:18731/")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.FileExists(t, dbPath)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("API_PORT", "not-a-port")

	err := Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API port")
}
