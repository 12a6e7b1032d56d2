// internal/logger/logger.go
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger: a console core teed with a core that
// captures every entry into the returned Ring, feeding the diagnostics
// view the same stream the terminal sees.
func New(debug bool, ringSize int) (*zap.Logger, *Ring) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	ring := NewRing(ringSize)
	core := zapcore.NewTee(consoleCore, &ringCore{ring: ring, LevelEnabler: level})

	return zap.New(core), ring
}

// ringCore is a zapcore.Core that mirrors log entries into a Ring.
type ringCore struct {
	zapcore.LevelEnabler
	ring   *Ring
	fields []zapcore.Field
}

func (c *ringCore) With(fields []zapcore.Field) zapcore.Core {
	combined := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	combined = append(combined, c.fields...)
	combined = append(combined, fields...)
	return &ringCore{LevelEnabler: c.LevelEnabler, ring: c.ring, fields: combined}
}

func (c *ringCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *ringCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	var captured map[string]interface{}
	if len(enc.Fields) > 0 {
		captured = enc.Fields
	}

	c.ring.Add(Entry{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Logger:    entry.LoggerName,
		Message:   entry.Message,
		Fields:    captured,
	})
	return nil
}

func (c *ringCore) Sync() error { return nil }
