package cli

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_StopsOnCancel(t *testing.T) {
	db := isolate(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- Execute(ctx, []string{"serve", "--db", db, "--addr", "127.0.0.1:0"}, &stdout, &stderr)
	}()

	select {
	case code := <-done:
		assert.Equal(t, ExitSuccess, code, stderr.String())
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after context cancellation")
	}
	assert.Contains(t, stderr.String(), "server stopped gracefully")
}

func TestServe_ListenError(t *testing.T) {
	db := isolate(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, stderr, code := execute(t, "serve", "--db", db, "--addr", ln.Addr().String())
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "server error")
}

func TestServe_EnvironmentAddr(t *testing.T) {
	db := isolate(t)
	t.Setenv("HISTORIES_HTTP_ADDR", "256.0.0.1:bad")

	_, stderr, code := execute(t, "serve", "--db", db)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "256.0.0.1:bad")
}
