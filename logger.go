package identity

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

var _ Logger = (*SlogLogger)(nil)

// NewSlogLogger wraps l. A nil logger uses slog.Default.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l, ctx: context.Background()}
}

// NewLogger builds a logger writing to w. Development mode uses the text
// handler at debug level, everything else JSON at info level.
func NewLogger(w io.Writer, development bool) *SlogLogger {
	if w == nil {
		w = os.Stdout
	}

	if development {
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.DebugContext(l.ctx, msg, args...) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.InfoContext(l.ctx, msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.WarnContext(l.ctx, msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.ErrorContext(l.ctx, msg, args...) }

// WithContext returns a logger bound to ctx
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SlogLogger{logger: l.logger, ctx: ctx}
}

// With returns a logger that always includes the given attributes.
func (l *SlogLogger) With(args ...any) *SlogLogger {
	return &SlogLogger{logger: l.logger.With(args...), ctx: l.ctx}
}

type defLogger struct{}

func (defLogger) Debug(msg string, args ...any) {
	slog.Debug("IDENTITY "+msg, args...)
}

func (defLogger) Info(msg string, args ...any) {
	slog.Info("IDENTITY "+msg, args...)
}

func (defLogger) Warn(msg string, args ...any) {
	slog.Warn("IDENTITY "+msg, args...)
}

func (defLogger) Error(msg string, args ...any) {
	slog.Error("IDENTITY "+msg, args...)
}

func (d defLogger) WithContext(context.Context) Logger {
	return d
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
