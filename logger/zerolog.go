/*
 * Copyright (c) 2018 VMware, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */
package logger

import (
	"io"

	"github.com/rs/zerolog"
)

type zeroLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a new Logger backed by RS Zerolog using a default config
func NewZerologLogger() Logger {
	return NewZerologLoggerWithConfig(Configuration{
		EnableConsole:     true,
		ConsoleJSONFormat: true,
		ConsoleLevel:      Info,
		LocalTime:         true,
	})
}

// NewZerologLoggerWithConfig creates a new Logger backed by RS Zerolog using the provided config
func NewZerologLoggerWithConfig(config Configuration) Logger {
	normalizeConfig(&config)

	var console io.Writer = config.ConsoleOutput
	if !config.ConsoleJSONFormat {
		console = zerolog.ConsoleWriter{Out: config.ConsoleOutput}
	}

	var finalLogger zerolog.Logger
	switch {
	case config.EnableConsole && config.EnableFile:
		multi := zerolog.MultiLevelWriter(console, newRotatingFile(config))
		finalLogger = zerolog.New(multi).Level(getZeroLogLevel(config.ConsoleLevel))
	case config.EnableFile:
		finalLogger = zerolog.New(newRotatingFile(config)).Level(getZeroLogLevel(config.FileLevel))
	case config.EnableConsole:
		finalLogger = zerolog.New(console).Level(getZeroLogLevel(config.ConsoleLevel))
	default:
		finalLogger = zerolog.Nop()
	}

	return &zeroLogger{log: finalLogger.With().Timestamp().Logger()}
}

func (z *zeroLogger) Debugf(format string, args ...interface{}) {
	z.log.Debug().Msgf(format, args...)
}

func (z *zeroLogger) Infof(format string, args ...interface{}) {
	z.log.Info().Msgf(format, args...)
}

func (z *zeroLogger) Warnf(format string, args ...interface{}) {
	z.log.Warn().Msgf(format, args...)
}

func (z *zeroLogger) Errorf(format string, args ...interface{}) {
	z.log.Error().Msgf(format, args...)
}

func (z *zeroLogger) Fatalf(format string, args ...interface{}) {
	z.log.Fatal().Msgf(format, args...)
}

func (z *zeroLogger) Panicf(format string, args ...interface{}) {
	z.log.Panic().Msgf(format, args...)
}

func (z *zeroLogger) WithFields(keyValues Fields) Logger {
	ctx := z.log.With()
	for k, v := range keyValues {
		ctx = ctx.Interface(k, v)
	}

	return &zeroLogger{
		log: ctx.Logger(),
	}
}

func getZeroLogLevel(level string) zerolog.Level {
	switch level {
	case Info:
		return zerolog.InfoLevel
	case Warn:
		return zerolog.WarnLevel
	case Debug:
		return zerolog.DebugLevel
	case Error:
		return zerolog.ErrorLevel
	case Fatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
