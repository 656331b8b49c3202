// Package keys derives single-table primary keys and index keys from semantic identifiers.
//
// Every row belonging to an organization lives in that organization's partition
// (item_id). The sort key encodes the entity type first, so rows of different
// types never collide inside one partition:
//
//	project:{project_id}                      project row
//	project:{project_id}:team:{team_id}       project-team relationship
//	team:{team_id}                            team row
//	team:{team_id}:member:{user_id}           team membership
//	organization                              organization row
//	event:{event_id}                          audit event
package keys

import (
	"strings"
)

const (
	sep = ":"

	typeProject      = "project"
	typeTeam         = "team"
	typeMember       = "member"
	typeEvent        = "event"
	typeOrganization = "organization"
)

// Key is a composite primary key: tenant partition plus sort key.
type Key struct {
	ItemID  string
	SortKey string
}

// String renders the key as "item_id/sort_key" for logs and error messages.
func (k Key) String() string {
	return k.ItemID + "/" + k.SortKey
}

// Project returns the key of a project row.
func Project(organizationID, projectID string) Key {
	return Key{ItemID: organizationID, SortKey: ProjectObjectID(projectID)}
}

// Relationship returns the key of the adjacency row linking a project to a team.
func Relationship(organizationID, projectID, teamID string) Key {
	return Key{ItemID: organizationID, SortKey: ProjectTeamsPrefix(projectID) + teamID}
}

// Membership returns the key read to decide whether a user belongs to a team.
func Membership(organizationID, teamID, userID string) Key {
	return Key{ItemID: organizationID, SortKey: TeamObjectID(teamID) + sep + typeMember + sep + userID}
}

// Team returns the key of a team row.
func Team(organizationID, teamID string) Key {
	return Key{ItemID: organizationID, SortKey: TeamObjectID(teamID)}
}

// Organization returns the key of the organization row.
func Organization(organizationID string) Key {
	return Key{ItemID: organizationID, SortKey: typeOrganization}
}

// Event returns the key of an audit event row.
func Event(organizationID, eventID string) Key {
	return Key{ItemID: organizationID, SortKey: EventObjectID(eventID)}
}

// ProjectObjectID is the object_id (and sort key) of a project row.
func ProjectObjectID(projectID string) string {
	return typeProject + sep + projectID
}

// TeamObjectID is the object_id (and sort key) of a team row.
func TeamObjectID(teamID string) string {
	return typeTeam + sep + teamID
}

// EventObjectID is the object_id of an audit event row.
func EventObjectID(eventID string) string {
	return typeEvent + sep + eventID
}

// RelationshipObjectID is the inverted object_id of a relationship row, which
// lets the object index answer "which projects does this team belong to".
func RelationshipObjectID(projectID, teamID string) string {
	return TeamObjectID(teamID) + sep + ProjectObjectID(projectID)
}

// ProjectTeamsPrefix is the sort key prefix shared by all relationship rows of a project.
func ProjectTeamsPrefix(projectID string) string {
	return ProjectObjectID(projectID) + sep + typeTeam + sep
}

// ProjectRowsPrefix is the sort key prefix shared by a project row and all of
// its relationship rows. Callers must still match project ids exactly, since a
// plain prefix also matches longer ids.
func ProjectRowsPrefix(projectID string) string {
	return ProjectObjectID(projectID)
}

// ProjectObjectPrefix selects project rows on the object index.
func ProjectObjectPrefix() string {
	return typeProject + sep
}

// ParseRelationship extracts the project and team ids from a relationship sort key.
func ParseRelationship(sortKey string) (projectID, teamID string, ok bool) {
	rest, found := strings.CutPrefix(sortKey, typeProject+sep)
	if !found {
		return "", "", false
	}
	projectID, teamID, found = strings.Cut(rest, sep+typeTeam+sep)
	if !found || projectID == "" || teamID == "" {
		return "", "", false
	}
	return projectID, teamID, true
}

// ParseProject extracts the project id from a project row sort key.
func ParseProject(sortKey string) (projectID string, ok bool) {
	projectID, found := strings.CutPrefix(sortKey, typeProject+sep)
	if !found || projectID == "" || strings.Contains(projectID, sep) {
		return "", false
	}
	return projectID, true
}
