package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hospitall/hospitall/internal/platform/auth"
)

// AuditEntry records who touched which resource, when, and with what result.
type AuditEntry struct {
	UserID     string
	UserRole   string
	Resource   string
	ResourceID string
	PatientID  string
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// auditedResources hold patient data; every access to them is logged.
var auditedResources = map[string]bool{
	"patients":        true,
	"appointments":    true,
	"medical-records": true,
	"doctors":         true,
	"users":           true,
}

// Audit logs access to patient-data routes under /api/v1 and forwards each
// entry to the optional recorders.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			resource, resourceID := splitResourcePath(path)
			if !auditedResources[resource] {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}

			ctx := req.Context()
			entry := AuditEntry{
				UserID:     auth.UserIDFromContext(ctx),
				UserRole:   auth.RoleFromContext(ctx),
				Resource:   resource,
				ResourceID: resourceID,
				PatientID:  extractPatientID(c, resource, resourceID),
				Action:     httpMethodToAction(req.Method),
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Path:       path,
				Method:     req.Method,
				Timestamp:  time.Now().UTC(),
				StatusCode: status,
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("user_role", entry.UserRole).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("data_access")

			return err
		}
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// splitResourcePath returns the resource segment and, when it is a UUID,
// the id segment of an /api/v1 path.
//
//	/api/v1/patients                     -> patients, ""
//	/api/v1/patients/<id>/appointments   -> patients, <id>
//	/api/v1/appointments/available-slots -> appointments, ""
func splitResourcePath(path string) (string, string) {
	if !strings.HasPrefix(path, "/api/v1/") {
		return "", ""
	}
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	resource := segments[0]
	if len(segments) > 1 && isUUIDLike(segments[1]) {
		return resource, segments[1]
	}
	return resource, ""
}

// extractPatientID finds the patient a request concerns, from the path or
// the patient_id query parameter.
func extractPatientID(c echo.Context, resource, resourceID string) string {
	if resource == "patients" && resourceID != "" {
		return resourceID
	}
	if p := c.QueryParam("patient_id"); isUUIDLike(p) {
		return p
	}
	return ""
}

func isUUIDLike(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
