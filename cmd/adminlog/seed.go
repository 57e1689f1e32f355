package main

import (
	"time"

	"github.com/go-go-golems/adminlog/pkg/demo"
	"github.com/go-go-golems/adminlog/pkg/transport/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	var (
		count   int
		seed    uint64
		step    time.Duration
		missing float64
	)
	cmd := &cobra.Command{
		Use:   "seed <path>",
		Short: "Write a generated admin log into a sqlite database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return errors.New("--count must be positive")
			}
			dsn, err := sqlite.DSNForFile(args[0])
			if err != nil {
				return err
			}
			src, err := sqlite.Open(dsn)
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			before, err := src.Count(cmd.Context())
			if err != nil {
				return err
			}
			records := demo.Generate(demo.Config{Count: count, Seed: seed, Step: step, MissingRefs: missing})
			// Generated references count from 1; shift them past the rows
			// already in the database.
			for i := range records {
				if records[i].RefID != 0 {
					records[i].RefID += int64(before)
				}
			}
			ids, err := src.Append(cmd.Context(), records...)
			if err != nil {
				return err
			}
			log.Info().
				Str("path", args[0]).
				Int("inserted", len(ids)).
				Int("total", before+len(ids)).
				Msg("seeded admin log")
			log.Info().Msgf("view it with: adminlog view --source sqlite:%s", args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1000, "number of events to generate")
	cmd.Flags().Uint64Var(&seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	cmd.Flags().DurationVar(&step, "step", 17*time.Minute, "average time between events")
	cmd.Flags().Float64Var(&missing, "missing-refs", 0.05, "share of references to events that do not exist")
	return cmd
}
