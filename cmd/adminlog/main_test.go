package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/go-go-golems/adminlog/pkg/transport/sqlite"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (*app, string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := newApp()
	var out bytes.Buffer
	a.root.SetOut(&out)
	a.root.SetArgs(args)
	require.NoError(t, a.root.ExecuteContext(context.Background()))
	return a, out.String()
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	_, out := runApp(t, args...)
	return out
}

func TestConfig_FlagOverridesDefault(t *testing.T) {
	a, out := runApp(t, "config", "path", "--source", "sqlite:x.db", "--log-level", "debug")
	require.Contains(t, out, "config.yaml")
	require.Equal(t, "sqlite:x.db", a.settings.Source)
	require.Equal(t, "debug", a.settings.LogLevel)
}

func TestConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adminlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("list:\n  page-size: 7\nsource: sqlite:file.db\n"), 0o600))
	t.Setenv("ADMINLOG_LIST_PRELOAD_SCREENS", "5")

	a, _ := runApp(t, "config", "path", "--config", path)
	require.Equal(t, "sqlite:file.db", a.settings.Source)
	require.Equal(t, 7, a.settings.List.PageSize)
	require.Equal(t, 5, a.settings.List.PreloadScreens)
}

func TestFlattenSettings(t *testing.T) {
	a, _ := runApp(t, "config", "path", "--source", "sqlite:x.db")
	entries, err := flattenSettings(a.settings)
	require.NoError(t, err)

	got := map[string]interface{}{}
	var keys []string
	for _, e := range entries {
		got[e.key] = e.value
		keys = append(keys, e.key)
	}
	require.IsIncreasing(t, keys)
	require.Equal(t, "sqlite:x.db", got["source"])
	require.Equal(t, 50, got["list.page-size"])
	require.Equal(t, "400ms", got["pointer.multi-click-interval"])
	require.NotContains(t, got, "list")
}

func TestSeed_WritesSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	run(t, "seed", path, "--count", "120", "--seed", "5", "--log-level", "error")
	run(t, "seed", path, "--count", "30", "--seed", "6", "--log-level", "error")

	dsn, err := sqlite.DSNForFile(path)
	require.NoError(t, err)
	src, err := sqlite.Open(dsn)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	n, err := src.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 150, n)

	page, err := src.FetchItems(context.Background(), transport.ItemsRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	require.Equal(t, int64(150), page.Items[len(page.Items)-1].ID)
}

func TestOpenSource_Memory(t *testing.T) {
	src, closer, err := openSource(context.Background(), "memory", 0)
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	page, err := src.FetchItems(context.Background(), transport.ItemsRequest{Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
}

func TestOpenSource_Unsupported(t *testing.T) {
	_, _, err := openSource(context.Background(), "ftp://x", 0)
	require.Error(t, err)
}
