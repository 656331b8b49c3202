package project

import (
	"context"
	"fmt"
	"slices"
)

// Role is an actor's role inside an organization.
type Role string

const (
	RoleMember    Role = "member"
	RoleDeveloper Role = "developer"
	RoleManager   Role = "manager"
	RoleAdmin     Role = "admin"
	RoleOwner     Role = "owner"
)

// canManage reports whether the role may create and delete projects.
func (r Role) canManage() bool {
	return r == RoleManager || r == RoleAdmin || r == RoleOwner
}

// needsTeamMembership reports whether the role must belong to one of the
// project's teams to update or delete it.
func (r Role) needsTeamMembership() bool {
	return r == RoleDeveloper || r == RoleManager
}

// Operation names a request-level operation.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpDelete Operation = "delete"
)

// Actor is the identity behind a request, taken verbatim from the claims provider.
type Actor struct {
	UserID        string
	Organizations []string
	Role          Role
	SourceIP      string
}

// MemberOf reports whether the actor belongs to the organization.
func (a Actor) MemberOf(organizationID string) bool {
	return organizationID != "" && slices.Contains(a.Organizations, organizationID)
}

// ResourceState is what the authorizer knows about the target of a request.
type ResourceState struct {
	// Project is the stored project row (update, delete).
	Project *Project

	// TeamIDs are the teams currently associated with Project.
	TeamIDs []string

	// Public is true when the payload asks for public visibility.
	Public bool

	// Active is the requested active value, nil when the payload omits it.
	// An explicit null arrives as false.
	Active *bool
}

// Directory answers the read-only lookups authorization needs.
type Directory interface {
	// IsTeamMember reports whether a membership row exists. A missing row is
	// (false, nil); only store failures return an error.
	IsTeamMember(ctx context.Context, organizationID, teamID, userID string) (bool, error)

	// PublicProjectsEnabled returns the organization's public_projects flag.
	PublicProjectsEnabled(ctx context.Context, organizationID string) (bool, error)
}

// Authorizer evaluates role-based access rules for project operations.
type Authorizer struct {
	dir Directory
}

// NewAuthorizer creates an Authorizer backed by dir.
func NewAuthorizer(dir Directory) *Authorizer {
	return &Authorizer{dir: dir}
}

// Precheck evaluates the rules that need no lookups: organization membership
// and role. Callers run it before reading anything so unauthorized actors
// learn nothing about stored rows.
func (a *Authorizer) Precheck(organizationID string, actor Actor, op Operation) error {
	if !actor.MemberOf(organizationID) {
		return ErrNotAuthorized
	}

	switch op {
	case OpCreate, OpDelete:
		if !actor.Role.canManage() {
			return ErrNotAuthorized
		}
	case OpUpdate:
		if actor.Role == RoleMember {
			return ErrNotAuthorized
		}
	case OpGet, OpList:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOperation, op)
	}
	return nil
}

// Authorize returns nil when the operation is allowed. A denial is
// ErrNotAuthorized or a *PolicyError; any other error is a failed lookup.
func (a *Authorizer) Authorize(ctx context.Context, organizationID string, actor Actor, op Operation, state ResourceState) error {
	if err := a.Precheck(organizationID, actor, op); err != nil {
		return err
	}

	if (op == OpUpdate || op == OpDelete) && actor.Role.needsTeamMembership() {
		ok, err := a.memberOfAnyTeam(ctx, organizationID, actor.UserID, state.TeamIDs)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAuthorized
		}
	}

	if (op == OpCreate || op == OpUpdate) && state.Public {
		enabled, err := a.dir.PublicProjectsEnabled(ctx, organizationID)
		if err != nil {
			return err
		}
		if !enabled {
			return ErrPublicProjectsDisabled
		}
	}

	if op == OpUpdate && state.Project != nil && !state.Project.Active &&
		state.Active != nil && !*state.Active {
		return ErrProjectInactive
	}

	return nil
}

// memberOfAnyTeam reads one membership row per team and stops at the first hit.
func (a *Authorizer) memberOfAnyTeam(ctx context.Context, organizationID, userID string, teamIDs []string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	for _, teamID := range teamIDs {
		ok, err := a.dir.IsTeamMember(ctx, organizationID, teamID, userID)
		if err != nil {
			return false, fmt.Errorf("team membership %s: %w", teamID, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
