package observability

import (
	"context"

	"github.com/rs/zerolog"

	"polity/internal/core"
)

// AuditLog writes each audited write as a structured log line.
type AuditLog struct {
	logger zerolog.Logger
}

var _ core.AuditRecorder = AuditLog{}

// NewAuditLog returns an audit recorder logging to l under the "audit" component.
func NewAuditLog(l zerolog.Logger) AuditLog {
	return AuditLog{logger: l.With().Str("component", "audit").Logger()}
}

// Record implements core.AuditRecorder.
func (a AuditLog) Record(_ context.Context, entry core.AuditEntry) {
	ev := a.logger.Info()
	if entry.Status == core.AuditStatusError {
		ev = a.logger.Warn().Str("error", entry.Error)
	}
	ev.Str("operation", entry.Operation).
		Str("entity", string(entry.Entity)).
		Str("action", string(entry.Action)).
		Str("entity_id", entry.EntityID).
		Str("status", string(entry.Status)).
		Dur("duration", entry.Duration).
		Time("at", entry.Timestamp).
		Msg("write")
}
