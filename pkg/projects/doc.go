// Package projects implements workspace-scoped project CRUD. Every access
// decision is delegated to the authorization guard; reads require
// membership, mutations require Moderator or above. Project names are
// unique per workspace and deleting a project cascades to its tasks.
package projects
