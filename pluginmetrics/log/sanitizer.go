package log

import (
	"context"
	"fmt"
	"strings"
)

// controlCharReplacer escapes control characters that can be used for log injection (CWE-117).
// Plugin diagnostic output is free text and may carry newlines that would
// otherwise forge entries in console encoders.
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// maxLoggedValueLength bounds how much of an external string ends up in a log line.
const maxLoggedValueLength = 512

// SanitizeString escapes control characters and truncates overly long values.
func SanitizeString(s string) string {
	if len(s) > maxLoggedValueLength {
		s = s[:maxLoggedValueLength] + "...[truncated]"
	}

	return controlCharReplacer.Replace(s)
}

// SafeError logs errors with explicit production-aware sanitization.
// When production is true, only the error type is logged.
func SafeError(ctx context.Context, logger Logger, msg string, err error, production bool) {
	if logger == nil || err == nil {
		return
	}

	if !logger.Enabled(LevelError) {
		return
	}

	if production {
		logger.Log(ctx, LevelError, msg, String("error_type", fmt.Sprintf("%T", err)))
		return
	}

	logger.Log(ctx, LevelError, msg, Err(err))
}
