package audit

import (
	"context"

	"github.com/google/uuid"
)

// Logger records audit events. Implementations must not fail the calling
// operation: recording is best-effort from the caller's point of view, so
// services log returned errors instead of propagating them.
type Logger interface {
	// Record persists a single audit record.
	Record(ctx context.Context, rec *Record) error
}

// NopLogger discards all records. Used in tests and when auditing is
// disabled by configuration.
type NopLogger struct{}

func (NopLogger) Record(ctx context.Context, rec *Record) error {
	return nil
}

// Event is a convenience builder for the common record shape used by the
// service layers.
func Event(action Action, entityType string, workspaceID, actorID uuid.UUID) *Record {
	wsID := workspaceID
	aID := actorID
	rec := &Record{
		Action:     action,
		EntityType: entityType,
	}
	if wsID != uuid.Nil {
		rec.WorkspaceID = &wsID
	}
	if aID != uuid.Nil {
		rec.ActorID = &aID
	}
	return rec
}

// WithEntity sets the entity id on the record.
func (r *Record) WithEntity(id uuid.UUID) *Record {
	r.EntityID = id.String()
	return r
}

// WithDetail attaches a key/value pair to the record's detail payload.
func (r *Record) WithDetail(key string, value interface{}) *Record {
	if r.Detail == nil {
		r.Detail = make(map[string]interface{})
	}
	r.Detail[key] = value
	return r
}
