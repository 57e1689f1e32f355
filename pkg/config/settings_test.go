package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func load(t *testing.T, path string) (*Settings, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return Load(viper.New(), path)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := load(t, "")
	require.NoError(t, err)
	require.Equal(t, "memory", s.Source)
	require.Equal(t, 20, s.List.FirstPageSize)
	require.Equal(t, 50, s.List.PageSize)
	require.Equal(t, 3, s.List.PreloadScreens)
	require.Equal(t, 400*time.Millisecond, s.Pointer.MultiClickInterval)
	require.Equal(t, time.Second, s.ScrollDate.HideDelay)

	wc := s.Widget()
	require.Equal(t, 50, wc.Preload.PageSize)
	require.Equal(t, int64(4), wc.MaxConcurrent)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
source: sqlite:/tmp/log.db
list:
  page-size: 30
pointer:
  tooltip-delay: 1500ms
filter:
  kinds: [pinned, left]
  query: spam
`)
	t.Setenv("ADMINLOG_LIST_PAGE_SIZE", "70")

	s, err := load(t, path)
	require.NoError(t, err)
	require.Equal(t, "sqlite:/tmp/log.db", s.Source)
	require.Equal(t, 70, s.List.PageSize)
	require.Equal(t, 20, s.List.FirstPageSize)
	require.Equal(t, 1500*time.Millisecond, s.Pointer.TooltipDelay)

	f, err := s.InitialFilter()
	require.NoError(t, err)
	require.Equal(t, []eventlog.Kind{eventlog.KindPinned, eventlog.KindLeft}, f.Kinds)
	require.Equal(t, "spam", f.Query)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	for name, body := range map[string]string{
		"page size": "list:\n  page-size: 0\n",
		"source":    "source: ftp://nope\n",
		"kind":      "filter:\n  kinds: [nope]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestParseSource(t *testing.T) {
	spec, err := ParseSource("sqlite:a.db")
	require.NoError(t, err)
	require.Equal(t, SourceSpec{Kind: SourceSQLite, Target: "a.db"}, spec)

	spec, err = ParseSource("ws://localhost:8089/ws")
	require.NoError(t, err)
	require.Equal(t, SourceWebSocket, spec.Kind)

	_, err = ParseSource("sqlite:")
	require.Error(t, err)
}

func TestSettings_YAMLDump(t *testing.T) {
	s, err := load(t, "")
	require.NoError(t, err)
	b, err := s.YAML()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(b, &doc))
	require.Equal(t, "memory", doc["source"])
	require.Equal(t, "1s", doc["pointer"].(map[string]interface{})["tooltip-delay"])
}
