// Package access holds the ports through which the session engine consults
// identity/authorization and the project registry, plus config-backed
// implementations of both.
package access

import (
	"context"
	"strings"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/config"
)

// Permission is an override permission held by elevated roles.
type Permission string

const (
	PermRead   Permission = "time_sessions.read"
	PermUpdate Permission = "time_sessions.update"
	PermDelete Permission = "time_sessions.delete"
)

// Authorizer answers whether a user holds an override permission.
// Ownership is decided by the caller; this only covers elevated access.
type Authorizer interface {
	Can(ctx context.Context, userID string, perm Permission) (bool, error)
}

// Project is the registry's view of a project.
type Project struct {
	ID     string
	Name   string
	Active bool
}

// ProjectRegistry validates project ids.
type ProjectRegistry interface {
	Lookup(ctx context.Context, projectID string) (*Project, error)
}

// StaticAuthorizer grants permissions from a fixed table.
type StaticAuthorizer struct {
	grants map[string]map[Permission]bool
}

// NewStaticAuthorizer builds an authorizer from config grants.
func NewStaticAuthorizer(grants []config.Grant) *StaticAuthorizer {
	a := &StaticAuthorizer{grants: make(map[string]map[Permission]bool, len(grants))}
	for _, g := range grants {
		perms := a.grants[g.User]
		if perms == nil {
			perms = make(map[Permission]bool)
			a.grants[g.User] = perms
		}
		for _, p := range g.Permissions {
			perms[Permission(strings.TrimSpace(p))] = true
		}
	}
	return a
}

func (a *StaticAuthorizer) Can(_ context.Context, userID string, perm Permission) (bool, error) {
	return a.grants[userID][perm], nil
}

// StaticProjectRegistry resolves projects from a fixed list.
type StaticProjectRegistry struct {
	projects map[string]Project
}

// NewProjectRegistry returns a StaticProjectRegistry for the configured
// projects, or an OpenProjectRegistry when none are configured.
func NewProjectRegistry(projects []config.Project) ProjectRegistry {
	if len(projects) == 0 {
		return OpenProjectRegistry{}
	}
	r := &StaticProjectRegistry{projects: make(map[string]Project, len(projects))}
	for _, p := range projects {
		r.projects[p.ID] = Project{
			ID:     p.ID,
			Name:   p.Name,
			Active: !p.Archived,
		}
	}
	return r
}

func (r *StaticProjectRegistry) Lookup(_ context.Context, projectID string) (*Project, error) {
	p, ok := r.projects[projectID]
	if !ok {
		return nil, apperr.WithMetadata(apperr.CodeNotFound, "project "+projectID+" not found",
			map[string]string{"project_id": projectID})
	}
	return &p, nil
}

// OpenProjectRegistry accepts every non-empty project id as active.
type OpenProjectRegistry struct{}

func (OpenProjectRegistry) Lookup(_ context.Context, projectID string) (*Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, apperr.WithMetadata(apperr.CodeValidation, "project id is required",
			map[string]string{"field": "project_id"})
	}
	return &Project{ID: projectID, Name: projectID, Active: true}, nil
}

// RequireActiveProject looks up projectID and rejects archived projects.
func RequireActiveProject(ctx context.Context, r ProjectRegistry, projectID string) (*Project, error) {
	p, err := r.Lookup(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperr.WithMetadata(apperr.CodeValidation, "project "+projectID+" is not active",
			map[string]string{"field": "project_id", "project_id": projectID})
	}
	return p, nil
}
