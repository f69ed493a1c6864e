// Package memberships owns the user-to-workspace relation at the heart of
// the permission model.
//
// PostgresStore provides the raw persistence operations, including the
// compare-and-set SetRole used to serialize concurrent role changes.
// Service layers the safety rules on top:
//
//   - role changes require the actor to strictly outrank both the target's
//     current role and the role being assigned
//   - the owner's membership is immutable and irremovable
//   - removing yourself is rejected; leaving is a separate operation that
//     the owner can never perform
//
// Mutations invalidate the authorization guard's membership cache and write
// an audit record.
package memberships
