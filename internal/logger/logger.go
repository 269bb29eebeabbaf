package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	return New(os.Stderr, dev)
}

// New builds the CLI logger writing to w. Dev mode switches to the console
// writer at debug level.
func New(w io.Writer, dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Timed runs fn with the context logger tagged by op and logs its outcome
// and duration.
func Timed(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	started := time.Now()

	ctx = zerolog.Ctx(ctx).With().Str("op", op).Logger().WithContext(ctx)

	err := fn(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("command failed")

		return err
	}

	zerolog.Ctx(ctx).Info().
		Dur("duration", time.Since(started)).
		Msg("command finished")

	return nil
}
