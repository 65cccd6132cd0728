// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

type contextKey string

const contextKeyRequestID contextKey = "request_id"

var (
	out   io.Writer = color.Output
	debug atomic.Bool
)

// SetOutput redirects log output. Passing nil restores the default.
func SetOutput(w io.Writer) {
	if w == nil {
		w = color.Output
	}
	out = w
}

// SetDebug turns Debug and DumpStruct output on or off.
func SetDebug(enabled bool) {
	debug.Store(enabled)
}

func init() {
	if os.Getenv("LOG_LEVEL") == "debug" {
		debug.Store(true)
	}
}

// WithRequestID adds request ID to context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestID retrieves the request ID from context
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// formatLog formats log message with optional request ID
func formatLog(requestID string, format string, a ...interface{}) string {
	msg := fmt.Sprintf(format, a...)
	if requestID != "" {
		return fmt.Sprintf("[req_id=%s] %s", requestID, msg)
	}
	return msg
}

func write(badge string, msg string) {
	fmt.Fprintf(out, "%s %s\n", badge, msg)
}

var (
	infoBadge  = color.New(color.FgWhite, color.BgGreen).SprintFunc()
	warnBadge  = color.New(color.FgWhite, color.BgYellow).SprintFunc()
	errorBadge = color.New(color.FgRed).SprintFunc()
	debugBadge = color.New(color.FgCyan).SprintFunc()
)

// Info log information
func Info(format string, a ...interface{}) {
	write(infoBadge("[INFO] "), fmt.Sprintf(format, a...))
}

// InfoWithContext logs information with context (includes request ID if available)
func InfoWithContext(ctx context.Context, format string, a ...interface{}) {
	write(infoBadge("[INFO] "), formatLog(RequestID(ctx), format, a...))
}

// Warn log warning
func Warn(format string, a ...interface{}) {
	write(warnBadge("[WARN] "), fmt.Sprintf(format, a...))
}

// WarnWithContext logs warning with context (includes request ID if available)
func WarnWithContext(ctx context.Context, format string, a ...interface{}) {
	write(warnBadge("[WARN] "), formatLog(RequestID(ctx), format, a...))
}

// Error log error
func Error(format string, a ...interface{}) {
	write(errorBadge("[Error]"), fmt.Sprintf(format, a...))
}

// ErrorWithContext logs error with context (includes request ID if available)
func ErrorWithContext(ctx context.Context, format string, a ...interface{}) {
	write(errorBadge("[Error]"), formatLog(RequestID(ctx), format, a...))
}

// Debug logs only when debug output is enabled
func Debug(format string, a ...interface{}) {
	if !debug.Load() {
		return
	}
	write(debugBadge("[DEBUG]"), fmt.Sprintf(format, a...))
}

// DumpStruct pretty prints values at debug level
func DumpStruct(label string, a ...interface{}) {
	if !debug.Load() {
		return
	}
	write(debugBadge("[DEBUG]"), label+"\n"+spew.Sdump(a...))
}
