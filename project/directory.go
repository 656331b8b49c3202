package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/projects/internal/keys"
	"github.com/jacentio/projects/store"
)

// TableDirectory answers authorization lookups from the shared table.
type TableDirectory struct {
	table Table
}

// NewTableDirectory creates a Directory reading membership and organization rows from table.
func NewTableDirectory(table Table) *TableDirectory {
	return &TableDirectory{table: table}
}

// IsTeamMember reads the team:{team}:member:{user} row.
func (d *TableDirectory) IsTeamMember(ctx context.Context, organizationID, teamID, userID string) (bool, error) {
	_, err := d.table.Get(ctx, keys.Membership(organizationID, teamID, userID), store.AttrItemID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PublicProjectsEnabled reads the organization's public_projects flag.
func (d *TableDirectory) PublicProjectsEnabled(ctx context.Context, organizationID string) (bool, error) {
	item, err := d.table.Get(ctx, keys.Organization(organizationID), "public_projects")
	if errors.Is(err, store.ErrNotFound) {
		return false, ErrOrganizationNotFound
	}
	if err != nil {
		return false, fmt.Errorf("organization %s: %w", organizationID, err)
	}

	var org Organization
	if err := attributevalue.UnmarshalMap(item, &org); err != nil {
		return false, fmt.Errorf("decode organization: %w", err)
	}
	return org.PublicProjects, nil
}
