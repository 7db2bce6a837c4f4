package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent is one security-relevant occurrence at the access gate.
type AuditEvent struct {
	EventType     string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes the tamper-evident trail for logins, lockouts and
// payment commits. Entries go through the regular slog pipeline under the
// fixed "audit" message so they can be filtered downstream.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt records one pass through the credential gate.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	al.emit(event.Success, attrs)
}

// LogCommit records one reconciler commit, succeeded or not.
func (al *AuditLogger) LogCommit(changeKey, status string, created bool, success bool, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "reconcile"),
		slog.String("event_type", "payment_commit"),
		slog.String("change_key", changeKey),
		slog.String("status", status),
		slog.Bool("created_payment", created),
		slog.Bool("success", success),
	}
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	al.emit(success, attrs)
}

// emit logs failures at Warn so an alerting pipeline can key on level alone.
func (al *AuditLogger) emit(success bool, attrs []slog.Attr) {
	attrs = append(attrs, slog.Time("at", time.Now().UTC()))

	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
