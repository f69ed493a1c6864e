// Package middleware provides the HTTP middleware chain: request IDs,
// structured request logging, panic recovery, bearer-token
// authentication, and rate limiting.
//
// # Middleware Components
//
// AuthMiddleware: bearer-token authentication
//
//	mw := middleware.NewAuthMiddleware(authStore, false)
//	router.Use(mw.Handler)
//	// Validates the token and attaches *auth.Identity to the context.
//	// Workspace roles are never resolved here; the authorization guard
//	// owns those per request.
//
// RequestID / Logging / Recovery: ambient plumbing
//
//	router.Use(middleware.RequestID)
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.Logging(logger))
//
// RateLimitMiddleware: in-memory rate limiting
//
//	router.Use(middleware.NewRateLimitMiddleware().Handler)
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting for
// multi-replica deployments.
//
// Limit: per-route limiter, used to throttle invite-code joins.
//
// # Rate Limiting
//
// Anonymous: 100 req/min, 10 burst
// Per-User: 1000 req/min, 50 burst
// Invite joins: 10 req/min, 5 burst
//
// # Related Packages
//
//   - pkg/auth: token validation
//   - pkg/authz: per-workspace role checks
package middleware
