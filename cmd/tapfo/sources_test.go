package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkoosis/tapfo/internal/config"
)

func TestLoadSources_CancelReleasesBlockedInput(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var stdout, stderr bytes.Buffer
	a := newApp(pr, &stdout, &stderr)
	cfg := &config.Resolved{YAMLEngine: "yaml.v3", MaxLineLength: 1024, Jobs: 1}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := a.loadSources(ctx, []string{stdinName}, cfg)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loadSources stayed blocked on a reader with no data after cancel")
	}
}

func TestInputNames(t *testing.T) {
	assert.Equal(t, []string{stdinName}, inputNames(nil))
	assert.Equal(t, []string{"a.tap", stdinName}, inputNames([]string{"a.tap", "-"}))
}
