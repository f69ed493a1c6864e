// Package authz is the single authorization decision point for all scoped
// operations.
//
// Guard.Authorize resolves the caller's membership and applies a fixed
// outcome order: a missing workspace is NotFound, a missing membership is
// Unauthorized, and an insufficient rank is Forbidden. RequireProject and
// RequireTask extend the check down the resource hierarchy, reporting a
// child under a different parent as NotFound so guessed IDs never reveal
// where they really live.
//
// Lookups can be served from a two-level cache (in-process LRU plus shared
// Redis) with short TTLs. Membership mutations call InvalidateMembership or
// InvalidateWorkspace, so cached entries never outlive a revocation beyond
// the TTL and correctness does not depend on the cache at all.
package authz
