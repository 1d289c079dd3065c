/*
 * MIT License
 *
 * Copyright (c) 2022-2026 Tochemey
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// DefaultLogger represents the default Log to use
	// This Log wraps zap under the hood
	DefaultLogger = New(InfoLevel, os.Stdout)
	// DiscardLogger is used not to log anything
	DiscardLogger = New(InfoLevel, io.Discard)
	// DebugLogger logs everything from the debug level upward
	DebugLogger = New(DebugLevel, os.Stdout)
)

// Log implements Logger interface with the underlying zap as
// the underlying logging library
type Log struct {
	*zap.Logger
	outputs []io.Writer
}

// enforce compilation and linter error
var _ Logger = (*Log)(nil)

// New creates an instance of Log
// New requires the log level and the writers where the messages will be written to
func New(level Level, writers ...io.Writer) *Log {
	// create the zap Log configuration
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	// create the zap log core
	var syncWriters []zapcore.WriteSyncer
	for _, writer := range writers {
		syncWriters = append(syncWriters, zapcore.AddSync(writer))
	}

	// set the log level
	logLevel := zap.InfoLevel
	switch level {
	case InfoLevel:
		logLevel = zap.InfoLevel
	case DebugLevel:
		logLevel = zap.DebugLevel
	case WarningLevel:
		logLevel = zap.WarnLevel
	case ErrorLevel:
		logLevel = zap.ErrorLevel
	case PanicLevel:
		logLevel = zap.PanicLevel
	case FatalLevel:
		logLevel = zap.FatalLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zap.CombineWriteSyncers(syncWriters...),
		logLevel,
	)

	// get the zap Log
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	// create the instance of Log and returns it
	return &Log{
		Logger:  zapLogger,
		outputs: writers,
	}
}

// Debug starts a message with debug level
func (l *Log) Debug(v ...any) {
	l.Logger.Sugar().Debug(v...)
}

// Debugf starts a message with debug level
func (l *Log) Debugf(format string, v ...any) {
	l.Logger.Sugar().Debugf(format, v...)
}

// Panic starts a new message with panic level. The panic() function
// is called which stops the ordinary flow of a goroutine.
func (l *Log) Panic(v ...any) {
	l.Logger.Sugar().Panic(v...)
}

// Panicf starts a new message with panic level. The panic() function
// is called which stops the ordinary flow of a goroutine.
func (l *Log) Panicf(format string, v ...any) {
	l.Logger.Sugar().Panicf(format, v...)
}

// Fatal starts a new message with fatal level. The os.Exit(1) function
// is called which terminates the program immediately.
func (l *Log) Fatal(v ...any) {
	l.Logger.Sugar().Fatal(v...)
}

// Fatalf starts a new message with fatal level. The os.Exit(1) function
// is called which terminates the program immediately.
func (l *Log) Fatalf(format string, v ...any) {
	l.Logger.Sugar().Fatalf(format, v...)
}

// Error starts a new message with error level.
func (l *Log) Error(v ...any) {
	l.Logger.Sugar().Error(v...)
}

// Errorf starts a new message with error level.
func (l *Log) Errorf(format string, v ...any) {
	l.Logger.Sugar().Errorf(format, v...)
}

// Warn starts a new message with warn level
func (l *Log) Warn(v ...any) {
	l.Logger.Sugar().Warn(v...)
}

// Warnf starts a new message with warn level
func (l *Log) Warnf(format string, v ...any) {
	l.Logger.Sugar().Warnf(format, v...)
}

// Info starts a message with info level
func (l *Log) Info(v ...any) {
	l.Logger.Sugar().Info(v...)
}

// Infof starts a message with info level
func (l *Log) Infof(format string, v ...any) {
	l.Logger.Sugar().Infof(format, v...)
}

// LogLevel returns the log level that is set
func (l *Log) LogLevel() Level {
	switch l.Logger.Level() {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarningLevel
	case zapcore.ErrorLevel:
		return ErrorLevel
	case zapcore.PanicLevel:
		return PanicLevel
	case zapcore.FatalLevel:
		return FatalLevel
	default:
		return InvalidLevel
	}
}

// LogOutput returns the log output that is set
func (l *Log) LogOutput() []io.Writer {
	return l.outputs
}
