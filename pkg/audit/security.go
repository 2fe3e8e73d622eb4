// Package audit provides security audit logging for SIEM consumption.
// It logs authentication and authorization events in structured JSON format
// for easy parsing and alerting.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bestcars/dealership-engine/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventLoginSuccess is logged when a user authenticates.
	EventLoginSuccess SecurityEventType = "login_success"
	// EventLoginFailure is logged when credentials are rejected.
	EventLoginFailure SecurityEventType = "login_failure"
	// EventRegistration is logged when a new account is created.
	EventRegistration SecurityEventType = "registration"
	// EventLogout is logged when a session is ended.
	EventLogout SecurityEventType = "logout"
	// EventUnauthorizedReview is logged when an anonymous caller tries to post a review.
	EventUnauthorizedReview SecurityEventType = "unauthorized_review_attempt"
)

// Severity levels.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	Username  string            `json:"username,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details,omitempty"`
	Severity  string            `json:"severity"` // info, warning
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The "security_audit" name makes these entries easy to filter downstream.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogLoginSuccess records a successful login.
func (a *SecurityAuditor) LogLoginSuccess(ctx context.Context, username, clientIP string) {
	a.emit(ctx, zapcore.InfoLevel, "User logged in", SecurityEvent{
		EventType: EventLoginSuccess,
		Username:  username,
		ClientIP:  clientIP,
		Severity:  SeverityInfo,
	})
}

// LogLoginFailure records rejected credentials. The password is never logged.
// Repeated failures from one client IP are the signal to alert on.
func (a *SecurityAuditor) LogLoginFailure(ctx context.Context, username, clientIP string) {
	a.emit(ctx, zapcore.WarnLevel, "Login failed", SecurityEvent{
		EventType: EventLoginFailure,
		Username:  username,
		ClientIP:  clientIP,
		Severity:  SeverityWarning,
	})
}

// LogRegistration records a new account.
func (a *SecurityAuditor) LogRegistration(ctx context.Context, username, clientIP string) {
	a.emit(ctx, zapcore.InfoLevel, "User registered", SecurityEvent{
		EventType: EventRegistration,
		Username:  username,
		ClientIP:  clientIP,
		Severity:  SeverityInfo,
	})
}

// LogLogout records the end of a session. Username is empty for anonymous logouts.
func (a *SecurityAuditor) LogLogout(ctx context.Context, username, clientIP string) {
	a.emit(ctx, zapcore.InfoLevel, "User logged out", SecurityEvent{
		EventType: EventLogout,
		Username:  username,
		ClientIP:  clientIP,
		Severity:  SeverityInfo,
	})
}

// LogUnauthorizedReview records an anonymous attempt to post a review.
//
// Example usage:
//
//	auditor.LogUnauthorizedReview(r.Context(), r.RemoteAddr)
func (a *SecurityAuditor) LogUnauthorizedReview(ctx context.Context, clientIP string) {
	a.emit(ctx, zapcore.WarnLevel, "Anonymous review submission rejected", SecurityEvent{
		EventType: EventUnauthorizedReview,
		ClientIP:  clientIP,
		Details: map[string]string{
			"endpoint": "add_review",
		},
		Severity: SeverityWarning,
	})
}

func (a *SecurityAuditor) emit(ctx context.Context, level zapcore.Level, msg string, event SecurityEvent) {
	event.Timestamp = time.Now().UTC()
	if user, ok := auth.UserFromContext(ctx); ok {
		event.UserID = user.ID.String()
		if event.Username == "" {
			event.Username = user.Username
		}
	}

	// Marshaling known types never fails
	eventJSON, _ := json.Marshal(event)

	a.logger.Log(level, msg,
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(event.EventType)),
		zap.String("username", event.Username),
		zap.String("user_id", event.UserID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}
