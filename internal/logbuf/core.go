package logbuf

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Core returns a zapcore.Core that mirrors every accepted log entry into the
// buffer. Tee it with the process's primary core so /logs sees the same
// stream that goes to stdout.
func (b *Buffer) Core(enab zapcore.LevelEnabler) zapcore.Core {
	return &bufferCore{LevelEnabler: enab, buf: b}
}

type bufferCore struct {
	zapcore.LevelEnabler
	buf    *Buffer
	fields []zapcore.Field
}

func (c *bufferCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &bufferCore{
		LevelEnabler: c.LevelEnabler,
		buf:          c.buf,
	}
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *bufferCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *bufferCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)
	c.buf.append(Entry{
		Timestamp: ent.Time.UTC(),
		Level:     entryLevel(ent.Level),
		Message:   renderMessage(ent.Message, all),
	})
	return nil
}

func (c *bufferCore) Sync() error { return nil }

// entryLevel collapses zap's levels onto the two the log model carries.
func entryLevel(level zapcore.Level) string {
	if level >= zapcore.ErrorLevel {
		return "error"
	}
	return "info"
}

// renderMessage flattens structured fields into the message string so the
// /logs payload stays a plain {timestamp, level, message} triple.
func renderMessage(msg string, fields []zapcore.Field) string {
	if len(fields) == 0 {
		return msg
	}
	enc := zapcore.NewMapObjectEncoder()
	for i := range fields {
		fields[i].AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, enc.Fields[k]))
	}
	return msg + " " + strings.Join(parts, " ")
}
