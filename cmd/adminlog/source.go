package main

import (
	"context"
	"io"
	"time"

	"github.com/go-go-golems/adminlog/pkg/config"
	"github.com/go-go-golems/adminlog/pkg/demo"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/go-go-golems/adminlog/pkg/transport/memory"
	"github.com/go-go-golems/adminlog/pkg/transport/sqlite"
	"github.com/go-go-golems/adminlog/pkg/transport/ws"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const demoLatency = 150 * time.Millisecond

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openSource builds the source named by the setting. The closer releases its
// connection.
func openSource(ctx context.Context, setting string, latency time.Duration) (transport.Source, io.Closer, error) {
	spec, err := config.ParseSource(setting)
	if err != nil {
		return nil, nil, err
	}
	switch spec.Kind {
	case config.SourceMemory:
		items, err := eventlog.Items(demo.Generate(demo.Config{Count: 2000, Seed: 42, MissingRefs: 0.05}))
		if err != nil {
			return nil, nil, err
		}
		src, err := memory.New(items, memory.WithLatency(latency))
		if err != nil {
			return nil, nil, err
		}
		log.Info().Int("items", src.Len()).Msg("using generated demo log")
		return src, nopCloser{}, nil

	case config.SourceSQLite:
		dsn, err := sqlite.DSNForFile(spec.Target)
		if err != nil {
			return nil, nil, err
		}
		src, err := sqlite.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", spec.Target).Msg("using sqlite log")
		return src, src, nil

	case config.SourceWebSocket:
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		c, err := ws.Dial(dialCtx, spec.Target)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("url", spec.Target).Msg("connected to log server")
		return c, c, nil
	}
	return nil, nil, errors.Errorf("unsupported source %q", setting)
}
