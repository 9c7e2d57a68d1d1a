package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns the process logger: JSON on stderr, or a console writer
// at debug level when dev is set.
func Setup(dev bool) zerolog.Logger {
	return New(os.Stderr, dev)
}

// New is Setup writing to out.
func New(out io.Writer, dev bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Stage logs the start of a named command stage and returns a function
// that logs its outcome and duration. The returned context carries a logger
// tagged with the stage name.
func Stage(ctx context.Context, name string) (context.Context, func(err error)) {
	started := time.Now()

	stageLogger := zerolog.Ctx(ctx).With().Str("stage", name).Logger()
	ctx = stageLogger.WithContext(ctx)

	stageLogger.Debug().Msg("stage started")

	return ctx, func(err error) {
		if err != nil {
			stageLogger.Error().
				Err(err).
				Dur("duration", time.Since(started)).
				Msg("stage failed")
			return
		}

		stageLogger.Info().
			Dur("duration", time.Since(started)).
			Msg("stage finished")
	}
}
