package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/simp-lee/logger"
)

// Attribute keys whose values never reach the log in clear text. Secrets are
// replaced outright; participant contact details keep just enough to match a
// support request.
var (
	secretLogKeys  = []string{"password", "token", "id_token", "secret"}
	contactLogKeys = []string{"email", "phone", "name"}
)

const redacted = "[REDACTED]"

// SetupLogger builds the application logger from cfg, masks secrets and
// participant contact details, and installs it as the slog default. The
// caller owns the returned logger and must Close it to flush the rotating
// file writer.
func SetupLogger(cfg *LogConfig) (*logger.Logger, error) {
	opts := BuildLoggerOpts(cfg)
	if opts == nil {
		return nil, errors.New("log config is nil")
	}

	log, err := logger.New(opts...)
	if err != nil {
		return nil, err
	}

	log.Logger = slog.New(newMaskingHandler(log.Handler()))
	slog.SetDefault(log.Logger)
	return log, nil
}

// BuildLoggerOpts translates cfg into logger options, or nil for a nil cfg.
// Rotation settings only apply with a file path.
func BuildLoggerOpts(cfg *LogConfig) []logger.Option {
	if cfg == nil {
		return nil
	}

	format := parseFormat(cfg.Format)
	color := true
	if cfg.Color != nil {
		color = *cfg.Color
	}

	opts := []logger.Option{
		logger.WithLevel(parseLevel(cfg.Level)),
		logger.WithMiddleware(logger.ContextMiddleware()),
		logger.WithConsoleFormat(format),
		logger.WithConsoleColor(color),
	}
	if cfg.FilePath == "" {
		return opts
	}

	opts = append(opts, logger.WithFilePath(cfg.FilePath), logger.WithFileFormat(format))
	if cfg.MaxSizeMB > 0 {
		opts = append(opts, logger.WithMaxSizeMB(cfg.MaxSizeMB))
	}
	if cfg.RetentionDays > 0 {
		opts = append(opts, logger.WithRetentionDays(cfg.RetentionDays))
	}
	if cfg.MaxBackups > 0 {
		opts = append(opts, logger.WithMaxBackups(cfg.MaxBackups))
	}
	if cfg.CompressRotated != nil {
		opts = append(opts, logger.WithCompressRotated(*cfg.CompressRotated))
	}
	return opts
}

func parseFormat(s string) logger.OutputFormat {
	switch strings.ToLower(s) {
	case "text":
		return logger.FormatText
	case "json":
		return logger.FormatJSON
	default:
		return logger.FormatCustom
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// maskingHandler rewrites sensitive attributes before the wrapped handler
// sees them. Keys match case-insensitively at any group depth.
type maskingHandler struct {
	next slog.Handler
}

func newMaskingHandler(next slog.Handler) *maskingHandler {
	return &maskingHandler{next: next}
}

func (h *maskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *maskingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(maskAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *maskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return &maskingHandler{next: h.next.WithAttrs(masked)}
}

func (h *maskingHandler) WithGroup(name string) slog.Handler {
	return &maskingHandler{next: h.next.WithGroup(name)}
}

func maskAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		group := v.Group()
		masked := make([]any, len(group))
		for i, ga := range group {
			masked[i] = maskAttr(ga)
		}
		return slog.Group(a.Key, masked...)
	}

	key := strings.ToLower(a.Key)
	switch {
	case containsKey(secretLogKeys, key):
		return slog.String(a.Key, redacted)
	case containsKey(contactLogKeys, key):
		return slog.String(a.Key, maskContact(v.String()))
	}
	return slog.Attr{Key: a.Key, Value: v}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// maskContact keeps the first character and the mail domain of an address,
// the last four characters of anything else:
//
//	maria@example.com -> m***@example.com
//	555-123-4567      -> ***4567
func maskContact(s string) string {
	if s == "" {
		return ""
	}
	if local, domain, ok := strings.Cut(s, "@"); ok && local != "" {
		return string([]rune(local)[:1]) + "***@" + domain
	}
	r := []rune(s)
	if len(r) <= 4 {
		return "***"
	}
	return "***" + string(r[len(r)-4:])
}
