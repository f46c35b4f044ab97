package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_ReportsListenFailure(t *testing.T) {
	// GIVEN: the address is already taken
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	// WHEN: serving on it
	err = serve(context.Background(), &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()})

	// THEN: the failure reaches the caller
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed")
}

func TestServe_StopsCleanlyWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()})
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
