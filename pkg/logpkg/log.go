// Package logpkg sets up zerolog loggers and carries them through contexts.
package logpkg

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/go-petr/ledger-core/pkg/configpkg"
)

// CreateLogger returns the application logger configured for the environment.
func CreateLogger(config configpkg.Config) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var (
		output   io.Writer = os.Stderr
		logLevel           = zerolog.InfoLevel // default to INFO
	)

	log := zerolog.New(output).
		Level(logLevel).
		With().
		Timestamp().
		Logger()

	if config.Environement == "development" {
		log = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(zerolog.TraceLevel).
			With().
			Caller().
			Logger()
	}

	return log
}

// WithOperation returns a context whose logger is tagged with the operation
// name and a fresh operation id, so every log line produced by one ledger
// operation can be correlated.
func WithOperation(ctx context.Context, name string) context.Context {
	l := zerolog.Ctx(ctx).With().
		Str("op", name).
		Str("op_id", uuid.NewString()).
		Logger()

	return l.WithContext(ctx)
}
