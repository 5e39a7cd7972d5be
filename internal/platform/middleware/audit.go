package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bloodnet/bloodnet/internal/platform/auth"
)

// AuditEntry captures who touched which resource, when, from where and with
// what outcome. Blood-request state changes and stock updates are the events
// coordinators ask about after the fact, so every mutating call is recorded.
type AuditEntry struct {
	UserID       string
	UserRoles    []string
	ResourceType string
	Action       string // create, update, delete
	IPAddress    string
	Path         string
	Method       string
	Timestamp    time.Time
	RequestID    string
	StatusCode   int
}

// AuditRecorder persists audit entries. Decoupled from any concrete sink so
// tests can capture entries in memory.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns middleware that records every mutating request under
// /api/v1. Reads are not audited; the queue is recomputed on every display
// and would drown the log. Without a recorder, entries go to zerolog.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			err := next(c)

			if !strings.HasPrefix(path, "/api/v1/") {
				return err
			}
			action := actionForMethod(req.Method)
			if action == "" {
				return err
			}

			ctx := req.Context()
			rid, _ := c.Get("request_id").(string)
			entry := AuditEntry{
				UserID:       auth.UserIDFromContext(ctx),
				UserRoles:    auth.RolesFromContext(ctx),
				ResourceType: resourceFromPath(path),
				Action:       action,
				IPAddress:    c.RealIP(),
				Path:         path,
				Method:       req.Method,
				Timestamp:    time.Now(),
				RequestID:    rid,
				StatusCode:   c.Response().Status,
			}

			if len(recorders) > 0 {
				for _, r := range recorders {
					if recErr := r.RecordAccess(entry); recErr != nil {
						logger.Error().Err(recErr).Msg("audit recorder failed")
					}
				}
				return err
			}

			logger.Info().
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("roles", entry.UserRoles).
				Str("resource", entry.ResourceType).
				Str("action", entry.Action).
				Str("path", entry.Path).
				Int("status", entry.StatusCode).
				Msg("audit")

			return err
		}
	}
}

func actionForMethod(method string) string {
	switch method {
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return ""
	}
}

// resourceFromPath extracts the resource segment from an API path, e.g.
// "/api/v1/blood-requests/123/accept" -> "blood-requests".
func resourceFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/v1/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}
