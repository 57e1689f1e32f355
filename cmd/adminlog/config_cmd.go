package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-go-golems/adminlog/pkg/config"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(a *app) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective settings",
	}
	show, err := NewConfigShowCommand(a)
	if err != nil {
		return nil, err
	}
	cobraShow, err := cli.BuildCobraCommand(show)
	if err != nil {
		return nil, err
	}
	cmd.AddCommand(cobraShow)
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the default config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultPath())
		},
	})
	return cmd, nil
}

// ConfigShowCommand lists the merged settings, one row per key.
type ConfigShowCommand struct {
	*cmds.CommandDescription
	app *app
}

func NewConfigShowCommand(a *app) (*ConfigShowCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"show",
		cmds.WithShort("Print the merged settings"),
		cmds.WithLong("List every setting after defaults, the config file, ADMINLOG_* variables and flags were merged."),
		cmds.WithSections(glazedSection, commandSettingsSection),
	)
	return &ConfigShowCommand{CommandDescription: desc, app: a}, nil
}

func (c *ConfigShowCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	_ *values.Values,
	gp middlewares.Processor,
) error {
	if c.app.settings == nil {
		return errors.New("settings not loaded")
	}
	entries, err := flattenSettings(c.app.settings)
	if err != nil {
		return err
	}
	for _, e := range entries {
		row := types.NewRow(
			types.MRP("key", e.key),
			types.MRP("value", e.value),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

var _ cmds.GlazeCommand = &ConfigShowCommand{}

type settingEntry struct {
	key   string
	value interface{}
}

// flattenSettings lists the settings under dotted keys, sorted.
func flattenSettings(s *config.Settings) ([]settingEntry, error) {
	b, err := s.YAML()
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	var ret []settingEntry
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, v := range m {
			key := prefix + k
			if sub, ok := v.(map[string]interface{}); ok {
				walk(key+".", sub)
				continue
			}
			ret = append(ret, settingEntry{key: key, value: v})
		}
	}
	walk("", doc)
	sort.Slice(ret, func(i, j int) bool { return ret[i].key < ret[j].key })
	return ret, nil
}
