package main

import (
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// initLogger configures zerolog from the logging flags, with the level
// taken from the merged settings.
func initLogger(level string) error {
	viper.Set("log-level", level)
	return logging.InitLoggerFromViper()
}

// initViewerLogger sends logs to path so they do not corrupt the viewer.
// Without a path logging is off.
func initViewerLogger(path string) error {
	if path == "" {
		log.Logger = zerolog.Nop()
		return nil
	}
	viper.Set("log-file", path)
	return logging.InitLoggerFromViper()
}
