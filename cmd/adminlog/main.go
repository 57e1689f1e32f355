package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/adminlog/pkg/config"
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v        *viper.Viper
	root     *cobra.Command
	settings *config.Settings
}

func newApp() *app {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:           "adminlog",
		Short:         "Browse a group's admin log in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.root.PersistentFlags().GetString("config")
			if err != nil {
				return err
			}
			s, err := config.Load(a.v, path)
			if err != nil {
				return err
			}
			a.settings = s
			return initLogger(s.LogLevel)
		},
	}
	a.root = root

	// Registers --config and the logging flags on the root.
	cobra.CheckErr(clay.InitViper("adminlog", root))

	pf := root.PersistentFlags()
	pf.String("source", "memory", "event source: memory, sqlite:<path> or a ws:// URL")
	for _, name := range []string{"source", "log-level", "log-file"} {
		cobra.CheckErr(a.v.BindPFlag(name, pf.Lookup(name)))
	}

	configCmd, err := newConfigCommand(a)
	cobra.CheckErr(err)
	root.AddCommand(
		newViewCommand(a),
		newServeCommand(a),
		newSeedCommand(),
		configCmd,
	)
	return a
}

func newRootCommand() *cobra.Command { return newApp().root }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("adminlog failed")
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
