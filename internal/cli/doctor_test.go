package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yubzen/replay/internal/config"
)

func TestCheckAll(t *testing.T) {
	t.Parallel()

	statuses := CheckAll(context.Background(), []healthCheck{
		{name: "ok", probe: func(context.Context) error { return nil }},
		{name: "bad", probe: func(context.Context) error { return errors.New("down") }},
		{name: "off", skip: true, probe: func(context.Context) error { panic("must not run") }},
	})

	require.Len(t, statuses, 3)
	assert.True(t, statuses[0].OK)
	assert.False(t, statuses[1].OK)
	assert.Equal(t, "down", statuses[1].ErrorMsg)
	assert.True(t, statuses[2].Skipped)
}

func TestDoctorReportsFailures(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })
	lookPath = func(string) (string, error) { return "/usr/bin/git", nil }

	cfg := config.Default()
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	useConfig(t, cfg)

	out, _, err := run(t, NewDoctorCmd(), actionDir(t))
	require.Error(t, err)
	assert.Contains(t, out, "1 unreadable file(s)")
	assert.Contains(t, out, "ollama")
	assert.Contains(t, out, "skipped")
	assert.ErrorContains(t, err, "1 check(s) failed")
}
