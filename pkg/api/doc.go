// Package api implements the REST surface of the server.
//
// Handlers are grouped per resource (auth, workspaces, members,
// projects, tasks, audit) and registered on a shared gorilla/mux
// router under /v1. Each handler extracts the caller's identity and
// path parameters, decodes the body, and delegates to the matching
// service; per-workspace authorization happens inside the services,
// never here.
//
// Error bodies come from httputil.WriteErr, which maps error kinds to
// HTTP statuses:
//
//	Invalid      400
//	Unauthorized 401
//	Forbidden    403
//	NotFound     404
//	Conflict     409
//	Unavailable  503
//	Internal     500
package api
