package server

import (
	"net/http"
	"testing"
	"time"
)

func TestShutdownIsIdempotent(t *testing.T) {
	gs := NewGracefulServer("127.0.0.1:0", http.NewServeMux(), time.Second, nil)
	if err := gs.Shutdown(); err != nil {
		t.Fatalf("first shutdown failed: %v", err)
	}
	if err := gs.Shutdown(); err != nil {
		t.Fatalf("second shutdown failed: %v", err)
	}
	select {
	case <-gs.ShutdownChannel():
	default:
		t.Error("shutdown channel should be closed")
	}
}

func TestStartReturnsAfterShutdown(t *testing.T) {
	gs := NewGracefulServer("127.0.0.1:0", http.NewServeMux(), time.Second, nil)

	done := make(chan error, 1)
	go func() { done <- gs.Start() }()

	// let the listener come up before tearing it down
	time.Sleep(50 * time.Millisecond)
	if err := gs.Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
}
