package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/adminlog/pkg/ui"
	"github.com/go-go-golems/adminlog/pkg/widget"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newViewCommand(a *app) *cobra.Command {
	var (
		jump    int64
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open the admin log viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return errors.New("view needs a terminal on stdout")
			}
			if noColor || os.Getenv("NO_COLOR") != "" {
				lipgloss.SetColorProfile(termenv.Ascii)
			}
			s := a.settings
			if err := initViewerLogger(s.LogFile); err != nil {
				return err
			}

			filter, err := s.InitialFilter()
			if err != nil {
				return err
			}
			src, srcCloser, err := openSource(cmd.Context(), s.Source, demoLatency)
			if err != nil {
				return err
			}
			defer func() { _ = srcCloser.Close() }()

			w := widget.New(src, s.Widget())
			defer w.Close()
			m := ui.New(w)

			initial := w.ApplyFilter(filter)
			if jump > 0 {
				initial = tea.Batch(initial, w.JumpTo(jump))
			}
			p := tea.NewProgram(startup{Model: m, cmd: initial},
				tea.WithAltScreen(),
				tea.WithMouseAllMotion(),
				tea.WithContext(cmd.Context()),
			)
			log.Info().Str("source", s.Source).Msg("viewer started")
			if _, err := p.Run(); err != nil && !errors.Is(err, context.Canceled) {
				return errors.Wrap(err, "run viewer")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "render without colors")
	cmd.Flags().Int64Var(&jump, "jump", 0, "open the log around this event id")
	return cmd
}

// startup runs the first load together with the model's own init.
type startup struct {
	*ui.Model
	cmd tea.Cmd
}

func (s startup) Init() tea.Cmd {
	return tea.Batch(s.Model.Init(), s.cmd)
}
