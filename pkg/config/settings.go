// Package config loads the viewer settings from defaults, a YAML file,
// ADMINLOG_* environment variables and command line flags, in that order
// of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/preload"
	"github.com/go-go-golems/adminlog/pkg/scrolldate"
	"github.com/go-go-golems/adminlog/pkg/selection"
	"github.com/go-go-golems/adminlog/pkg/widget"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "ADMINLOG"

type ListSettings struct {
	FirstPageSize  int   `mapstructure:"first-page-size" yaml:"first-page-size"`
	PageSize       int   `mapstructure:"page-size" yaml:"page-size"`
	PreloadScreens int   `mapstructure:"preload-screens" yaml:"preload-screens"`
	ItemGap        int   `mapstructure:"item-gap" yaml:"item-gap"`
	MaxConcurrent  int64 `mapstructure:"max-concurrent" yaml:"max-concurrent"`
}

type PointerSettings struct {
	DragThreshold      int           `mapstructure:"drag-threshold" yaml:"drag-threshold"`
	MultiClickInterval time.Duration `mapstructure:"multi-click-interval" yaml:"multi-click-interval"`
	MultiClickDistance int           `mapstructure:"multi-click-distance" yaml:"multi-click-distance"`
	TooltipDelay       time.Duration `mapstructure:"tooltip-delay" yaml:"tooltip-delay"`
}

type ScrollDateSettings struct {
	HideDelay    time.Duration `mapstructure:"hide-delay" yaml:"hide-delay"`
	FadeDuration time.Duration `mapstructure:"fade-duration" yaml:"fade-duration"`
}

type FilterSettings struct {
	Kinds  []string `mapstructure:"kinds" yaml:"kinds,omitempty"`
	Actors []int64  `mapstructure:"actors" yaml:"actors,omitempty"`
	Query  string   `mapstructure:"query" yaml:"query,omitempty"`
}

type Settings struct {
	Source     string             `mapstructure:"source" yaml:"source"`
	Listen     string             `mapstructure:"listen" yaml:"listen"`
	LogLevel   string             `mapstructure:"log-level" yaml:"log-level"`
	LogFile    string             `mapstructure:"log-file" yaml:"log-file"`
	List       ListSettings       `mapstructure:"list" yaml:"list"`
	Pointer    PointerSettings    `mapstructure:"pointer" yaml:"pointer"`
	ScrollDate ScrollDateSettings `mapstructure:"scroll-date" yaml:"scroll-date"`
	Filter     FilterSettings     `mapstructure:"filter" yaml:"filter"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("source", "memory")
	v.SetDefault("listen", "127.0.0.1:8089")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file", filepath.Join(os.TempDir(), "adminlog.log"))

	v.SetDefault("list.first-page-size", 20)
	v.SetDefault("list.page-size", 50)
	v.SetDefault("list.preload-screens", 3)
	v.SetDefault("list.item-gap", 0)
	v.SetDefault("list.max-concurrent", 4)

	v.SetDefault("pointer.drag-threshold", 1)
	v.SetDefault("pointer.multi-click-interval", 400*time.Millisecond)
	v.SetDefault("pointer.multi-click-distance", 1)
	v.SetDefault("pointer.tooltip-delay", time.Second)

	v.SetDefault("scroll-date.hide-delay", time.Second)
	v.SetDefault("scroll-date.fade-duration", 200*time.Millisecond)

	v.SetDefault("filter.kinds", []string{})
	v.SetDefault("filter.actors", []int64{})
	v.SetDefault("filter.query", "")
}

// DefaultPath is $XDG_CONFIG_HOME/adminlog/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "adminlog", "config.yaml")
}

// Load reads the settings into v. An explicit path must exist; the default
// path may be missing.
func Load(v *viper.Viper, path string) (*Settings, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if _, err := ParseSource(s.Source); err != nil {
		return err
	}
	switch {
	case s.List.FirstPageSize <= 0:
		return errors.New("list.first-page-size must be positive")
	case s.List.PageSize <= 0:
		return errors.New("list.page-size must be positive")
	case s.List.PreloadScreens <= 0:
		return errors.New("list.preload-screens must be positive")
	case s.List.ItemGap < 0:
		return errors.New("list.item-gap must not be negative")
	case s.List.MaxConcurrent <= 0:
		return errors.New("list.max-concurrent must be positive")
	case s.Pointer.DragThreshold < 0:
		return errors.New("pointer.drag-threshold must not be negative")
	case s.Pointer.MultiClickInterval <= 0:
		return errors.New("pointer.multi-click-interval must be positive")
	case s.ScrollDate.HideDelay <= 0:
		return errors.New("scroll-date.hide-delay must be positive")
	}
	if _, err := s.InitialFilter(); err != nil {
		return err
	}
	return nil
}

// InitialFilter is the filter the viewer starts with.
func (s *Settings) InitialFilter() (eventlog.Filter, error) {
	f := eventlog.Filter{Actors: s.Filter.Actors, Query: s.Filter.Query}
	if len(s.Filter.Kinds) > 0 {
		kinds, ok := eventlog.ParseKinds(strings.Join(s.Filter.Kinds, ","))
		if !ok {
			return eventlog.Filter{}, errors.Errorf("filter.kinds: unknown kind in %v", s.Filter.Kinds)
		}
		f.Kinds = kinds
	}
	return f, nil
}

func (s *Settings) Widget() widget.Config {
	return widget.Config{
		Preload: preload.Config{
			FirstPageSize:  s.List.FirstPageSize,
			PageSize:       s.List.PageSize,
			PreloadScreens: s.List.PreloadScreens,
		},
		Selection: selection.Config{
			DragThreshold:      s.Pointer.DragThreshold,
			MultiClickInterval: s.Pointer.MultiClickInterval,
			MultiClickDistance: s.Pointer.MultiClickDistance,
			TooltipDelay:       s.Pointer.TooltipDelay,
		},
		ScrollDate: scrolldate.Config{
			HideDelay:    s.ScrollDate.HideDelay,
			FadeDuration: s.ScrollDate.FadeDuration,
		},
		ItemGap:       s.List.ItemGap,
		MaxConcurrent: s.List.MaxConcurrent,
	}
}

func (s *Settings) YAML() ([]byte, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "encode settings")
	}
	return b, nil
}

type SourceKind string

const (
	SourceMemory    SourceKind = "memory"
	SourceSQLite    SourceKind = "sqlite"
	SourceWebSocket SourceKind = "ws"
)

// SourceSpec is a parsed source setting: memory, sqlite:<path> or a ws://
// or wss:// URL.
type SourceSpec struct {
	Kind SourceKind
	// Target is the database path or the URL.
	Target string
}

func ParseSource(s string) (SourceSpec, error) {
	switch {
	case s == "memory":
		return SourceSpec{Kind: SourceMemory}, nil
	case strings.HasPrefix(s, "sqlite:"):
		path := strings.TrimPrefix(s, "sqlite:")
		if path == "" {
			return SourceSpec{}, errors.New("source: sqlite needs a path, as in sqlite:adminlog.db")
		}
		return SourceSpec{Kind: SourceSQLite, Target: path}, nil
	case strings.HasPrefix(s, "ws://"), strings.HasPrefix(s, "wss://"):
		return SourceSpec{Kind: SourceWebSocket, Target: s}, nil
	}
	return SourceSpec{}, errors.Errorf("source: unsupported %q", s)
}
