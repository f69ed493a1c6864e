// Package audit records security-relevant events: workspace lifecycle,
// membership changes, invite rotation and joins, scoped resource mutations,
// and authorization denials.
//
// # Overview
//
// Services construct a Record with the Event builder and hand it to a
// Logger. The canonical implementation is Store, which persists records in
// the audit_log table; NopLogger discards records and MultiLogger fans out
// to several sinks.
//
// Recording is best-effort: services log a failed Record call and carry on,
// so an audit outage never blocks a user-facing operation.
//
// # Usage Example
//
//	rec := audit.Event(audit.ActionMemberRoleChanged, audit.EntityMembership, workspaceID, actorID).
//		WithEntity(membershipID).
//		WithDetail("from", "member").
//		WithDetail("to", "admin")
//	if err := logger.Record(ctx, rec); err != nil {
//		log.WithError(err).Warn("failed to write audit record")
//	}
//
// Retention is enforced by Store.Cleanup, scheduled from the server's cron
// runner.
package audit
