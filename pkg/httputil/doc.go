// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// and parameter parsing shared by all API handlers.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteNoContent(w)
//
// Error responses map the error kinds from pkg/errs onto HTTP status codes:
//
//	httputil.WriteErr(w, err) // 400/401/403/404/409/503/500 by kind
//
// Authentication and permission failures are written with fixed bodies so
// responses never reveal whether the target resource exists.
//
// # Request Parsing
//
// JSON parsing:
//
//	var req CreateProjectRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	id, err := httputil.ParsePathUUID(r, "projectID")
//	slug, err := httputil.ParsePathString(r, "slug")
//
// Query parameters:
//
//	limit, offset, err := httputil.ParsePagination(r)
//	archived, err := httputil.ParseQueryBool(r, "archived", false)
//
// # Related Packages
//
//   - pkg/errs: Error kind taxonomy
//   - pkg/middleware: Authentication and request-scoped middleware
package httputil
