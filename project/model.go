package project

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/projects/internal/keys"
	"github.com/jacentio/projects/store"
)

// Object types stored in the table.
const (
	ObjectTypeProject      = "project"
	ObjectTypeRelationship = "relationship"
	ObjectTypeTeam         = "team"
)

// ImmutableAttributes can never be changed by a client-supplied update.
var ImmutableAttributes = []string{
	"item_id", "project_id", "sort_key", "object_type", "object_id", "updated_on", "created_on",
}

// PublicAttributes is the allow-list returned on project read paths.
var PublicAttributes = []string{
	"item_id", "project_id", "object_type", "object_id", "updated_on", "created_on",
	"active", "description", "source_code_url", "website", "tags", "name", "public", "photo",
}

// PublicTeamAttributes is the allow-list returned for expanded teams.
var PublicTeamAttributes = []string{
	"item_id", "team_id", "object_type", "object_id", "updated_on", "created_on", "team_name",
}

// ProjectAttributes are the attributes a Project owns on its row. Other
// attributes found on a stored row are carried over unchanged on update.
var ProjectAttributes = []string{
	"item_id", "project_id", "sort_key", "object_type", "object_id", "name", "description",
	"active", "public", "source_code_url", "website", "tags", "photo", "created_on", "updated_on",
}

// Project is a project row.
type Project struct {
	ItemID        string   `dynamodbav:"item_id" json:"item_id"`
	ProjectID     string   `dynamodbav:"project_id" json:"project_id"`
	SortKey       string   `dynamodbav:"sort_key,omitempty" json:"-"`
	ObjectType    string   `dynamodbav:"object_type" json:"object_type"`
	ObjectID      string   `dynamodbav:"object_id" json:"object_id"`
	Name          string   `dynamodbav:"name" json:"name"`
	Description   string   `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Active        bool     `dynamodbav:"active" json:"active"`
	Public        bool     `dynamodbav:"public" json:"public"`
	SourceCodeURL string   `dynamodbav:"source_code_url,omitempty" json:"source_code_url,omitempty"`
	Website       string   `dynamodbav:"website,omitempty" json:"website,omitempty"`
	Tags          []string `dynamodbav:"tags,stringset,omitempty" json:"tags,omitempty"`
	Photo         string   `dynamodbav:"photo,omitempty" json:"photo,omitempty"`
	CreatedOn     string   `dynamodbav:"created_on" json:"created_on"`
	UpdatedOn     string   `dynamodbav:"updated_on,omitempty" json:"updated_on,omitempty"`
}

// Key returns the project row key.
func (p *Project) Key() store.Key {
	return keys.Project(p.ItemID, p.ProjectID)
}

// Relationship is the adjacency row linking a project to a team.
type Relationship struct {
	ItemID     string `dynamodbav:"item_id"`
	SortKey    string `dynamodbav:"sort_key"`
	ObjectType string `dynamodbav:"object_type"`
	ObjectID   string `dynamodbav:"object_id"`
	ProjectID  string `dynamodbav:"project_id"`
	TeamID     string `dynamodbav:"team_id"`
}

// NewRelationship builds the relationship row for a (project, team) pair.
func NewRelationship(organizationID, projectID, teamID string) *Relationship {
	return &Relationship{
		ItemID:     organizationID,
		SortKey:    keys.Relationship(organizationID, projectID, teamID).SortKey,
		ObjectType: ObjectTypeRelationship,
		ObjectID:   keys.RelationshipObjectID(projectID, teamID),
		ProjectID:  projectID,
		TeamID:     teamID,
	}
}

// Key returns the relationship row key.
func (r *Relationship) Key() store.Key {
	return store.Key{ItemID: r.ItemID, SortKey: r.SortKey}
}

// Team returns the linked team id, falling back to the sort key when the
// team_id attribute is missing.
func (r *Relationship) Team() string {
	if r.TeamID != "" {
		return r.TeamID
	}
	_, teamID, _ := keys.ParseRelationship(r.SortKey)
	return teamID
}

// Item renders the relationship as a DynamoDB item.
func (r *Relationship) Item() store.Item {
	return store.Item{
		"item_id":     &types.AttributeValueMemberS{Value: r.ItemID},
		"sort_key":    &types.AttributeValueMemberS{Value: r.SortKey},
		"object_type": &types.AttributeValueMemberS{Value: r.ObjectType},
		"object_id":   &types.AttributeValueMemberS{Value: r.ObjectID},
		"project_id":  &types.AttributeValueMemberS{Value: r.ProjectID},
		"team_id":     &types.AttributeValueMemberS{Value: r.TeamID},
	}
}

// Team is the public view of a team row. Teams are owned elsewhere.
type Team struct {
	ItemID     string `dynamodbav:"item_id" json:"item_id"`
	TeamID     string `dynamodbav:"team_id" json:"team_id"`
	ObjectType string `dynamodbav:"object_type" json:"object_type"`
	ObjectID   string `dynamodbav:"object_id" json:"object_id"`
	TeamName   string `dynamodbav:"team_name" json:"team_name"`
	CreatedOn  string `dynamodbav:"created_on,omitempty" json:"created_on,omitempty"`
	UpdatedOn  string `dynamodbav:"updated_on,omitempty" json:"updated_on,omitempty"`
}

// Organization carries the one organization flag this service reads.
type Organization struct {
	ItemID         string `dynamodbav:"item_id"`
	PublicProjects bool   `dynamodbav:"public_projects"`
}

// Patch holds the mutable project attributes a client may send. A nil field
// leaves the stored value unchanged. Immutable attributes have no field here,
// so they are dropped when a payload is decoded.
type Patch struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Active        *bool    `json:"active,omitempty"`
	Public        *bool    `json:"public,omitempty"`
	SourceCodeURL *string  `json:"source_code_url,omitempty"`
	Website       *string  `json:"website,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Photo         *string  `json:"photo,omitempty"`
}

// Apply merges the patch into p.
func (pt Patch) Apply(p *Project) {
	if pt.Name != nil {
		p.Name = *pt.Name
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Active != nil {
		p.Active = *pt.Active
	}
	if pt.Public != nil {
		p.Public = *pt.Public
	}
	if pt.SourceCodeURL != nil {
		p.SourceCodeURL = *pt.SourceCodeURL
	}
	if pt.Website != nil {
		p.Website = *pt.Website
	}
	if pt.Tags != nil {
		p.Tags = dedupe(pt.Tags)
	}
	if pt.Photo != nil {
		p.Photo = *pt.Photo
	}
}

// wantsPublic reports whether the patch asks for public visibility.
func (pt Patch) wantsPublic() bool {
	return pt.Public != nil && *pt.Public
}

// Input is a create or update payload.
type Input struct {
	Patch

	// Teams is the desired set of associated team ids. On update, nil leaves
	// associations unchanged and an empty slice removes them all.
	Teams []string `json:"teams"`

	// fields holds the top-level attribute names of the decoded payload, sorted.
	fields []string
}

// UnmarshalJSON decodes the payload and remembers which attributes it named.
func (in *Input) UnmarshalJSON(data []byte) error {
	type payload Input
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = Input(p)
	in.fields = slices.Sorted(maps.Keys(raw))
	return nil
}

// Fields returns the attribute names present in the decoded payload.
func (in Input) Fields() []string {
	return in.fields
}

// requestedActive returns the active value the payload asks for. An explicit
// null counts as a request for a non-active project.
func (in Input) requestedActive() *bool {
	if in.Active != nil {
		return in.Active
	}
	if slices.Contains(in.fields, "active") {
		inactive := false
		return &inactive
	}
	return nil
}

// View is a project as returned on read paths.
type View struct {
	*Project

	// Teams is set when team expansion was requested.
	Teams []*Team `json:"teams,omitempty"`

	// PhotoURL is a time-limited signed URL for Photo.
	PhotoURL string `json:"photo_url,omitempty"`
}

// NewRegistry returns the schema registry for every row type this service decodes.
func NewRegistry() *store.Registry {
	r := store.NewRegistry()
	r.Register(store.Schema{
		ObjectType: ObjectTypeProject,
		Public:     PublicAttributes,
		Immutable:  ImmutableAttributes,
		New:        func() any { return &Project{} },
	})
	r.Register(store.Schema{
		ObjectType: ObjectTypeRelationship,
		Public:     []string{"item_id", "sort_key", "project_id", "team_id", "object_type", "object_id"},
		Immutable:  []string{"item_id", "sort_key", "object_type", "object_id", "project_id", "team_id"},
		New:        func() any { return &Relationship{} },
	})
	r.Register(store.Schema{
		ObjectType: ObjectTypeTeam,
		Public:     PublicTeamAttributes,
		New:        func() any { return &Team{} },
	})
	return r
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
