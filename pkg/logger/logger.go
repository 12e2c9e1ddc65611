package logger

import (
	"log/slog"
	"os"
)

var log *slog.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

// Init sets up the global logger. Production gets JSON output at info
// level, everything else gets text output at debug level.
func Init(environment string) {
	var handler slog.Handler

	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	log = slog.New(handler)
	slog.SetDefault(log)
}

// normalizeArgs lets call sites pass a bare error (or any single value)
// after the message without breaking slog's key/value pairing.
func normalizeArgs(args []any) []any {
	out := make([]any, 0, len(args)+1)
	for i := 0; i < len(args); i++ {
		if err, ok := args[i].(error); ok {
			out = append(out, "error", err.Error())
			continue
		}
		if _, ok := args[i].(string); !ok {
			if _, isAttr := args[i].(slog.Attr); !isAttr {
				out = append(out, "value", args[i])
				continue
			}
		}
		out = append(out, args[i])
		if _, ok := args[i].(slog.Attr); ok {
			continue
		}
		if i+1 < len(args) {
			i++
			out = append(out, args[i])
		}
	}
	return out
}

func Debug(msg string, args ...any) {
	log.Debug(msg, normalizeArgs(args)...)
}

func Info(msg string, args ...any) {
	log.Info(msg, normalizeArgs(args)...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, normalizeArgs(args)...)
}

func Error(msg string, args ...any) {
	log.Error(msg, normalizeArgs(args)...)
}

// Fatal logs at error level and exits.
func Fatal(msg string, args ...any) {
	log.Error(msg, normalizeArgs(args)...)
	os.Exit(1)
}
