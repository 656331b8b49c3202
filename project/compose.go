package project

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jacentio/projects/internal/keys"
	"github.com/jacentio/projects/store"
)

// photoPrefix is where project photos live in the photo bucket.
const photoPrefix = "private/"

// ListOptions controls a list request.
type ListOptions struct {
	// Limit is the page size. Zero selects the default; larger values are capped.
	Limit int

	// Teams expands associated teams into every view.
	Teams bool

	// PaginationKey resumes a previous list.
	PaginationKey string
}

// ListResponse is one page of projects.
type ListResponse struct {
	Data          []*View `json:"data"`
	HasMore       bool    `json:"has_more"`
	PaginationKey string  `json:"pagination_key,omitempty"`
}

// List returns a page of the organization's projects from the object index.
func (s *Service) List(ctx context.Context, req Request, opts ListOptions) (*ListResponse, error) {
	org := req.OrganizationID
	if err := s.authz.Precheck(org, req.Actor, OpList); err != nil {
		return nil, err
	}

	if opts.PaginationKey != "" {
		start, err := store.DecodeToken(opts.PaginationKey)
		if err != nil {
			return nil, err
		}
		if store.StringAttr(start, store.AttrItemID) != org {
			return nil, fmt.Errorf("%w: token belongs to another organization", store.ErrInvalidToken)
		}
	}

	page, err := s.table.Query(ctx, store.QueryInput{
		Partition:  org,
		Prefix:     keys.ProjectObjectPrefix(),
		IndexName:  s.config.ObjectIndex,
		Projection: s.registry.Projection(ObjectTypeProject),
		Limit:      s.pageSize(opts.Limit),
		StartToken: opts.PaginationKey,
	})
	if err != nil {
		return nil, err
	}

	resp := &ListResponse{
		Data:          make([]*View, 0, len(page.Items)),
		HasMore:       page.HasMore(),
		PaginationKey: page.NextToken,
	}
	for _, item := range page.Items {
		p, err := s.decodeProject(item)
		if err != nil {
			s.logger.Warn("skipping undecodable project row",
				zap.String("organizationID", org),
				zap.String("objectID", store.StringAttr(item, store.AttrObjectID)),
				zap.Error(err),
			)
			continue
		}
		view, err := s.enrich(ctx, org, p, opts.Teams)
		if err != nil {
			return nil, err
		}
		resp.Data = append(resp.Data, view)
	}
	return resp, nil
}

// pageSize clamps a requested limit into [1, MaxPageSize].
func (s *Service) pageSize(limit int) int32 {
	switch {
	case limit <= 0:
		return s.config.DefaultPageSize
	case limit > int(s.config.MaxPageSize):
		return s.config.MaxPageSize
	default:
		return int32(limit)
	}
}

// enrich builds the read view of a project: optional team expansion and a
// signed photo URL.
func (s *Service) enrich(ctx context.Context, org string, p *Project, withTeams bool) (*View, error) {
	view := &View{Project: p}

	if withTeams {
		teams, err := s.teams(ctx, org, p.ProjectID)
		if err != nil {
			return nil, err
		}
		view.Teams = teams
	}

	if p.Photo != "" && s.signer != nil {
		url, err := s.signer.SignedURL(ctx, s.config.PhotoBucket, photoPrefix+p.Photo, s.config.PhotoTTL)
		if err != nil {
			s.logger.Warn("failed to sign photo url",
				zap.String("projectID", p.ProjectID),
				zap.String("photo", p.Photo),
				zap.Error(err),
			)
		} else {
			view.PhotoURL = url
		}
	}
	return view, nil
}

// teams loads the public rows of every team linked to a project. Links to
// team rows that no longer exist are skipped.
func (s *Service) teams(ctx context.Context, org, projectID string) ([]*Team, error) {
	ids, err := s.teamIDs(ctx, org, projectID)
	if err != nil {
		return nil, err
	}

	teams := make([]*Team, 0, len(ids))
	for _, id := range ids {
		item, err := s.table.Get(ctx, keys.Team(org, id), s.registry.Projection(ObjectTypeTeam)...)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("dangling team relationship",
				zap.String("organizationID", org),
				zap.String("projectID", projectID),
				zap.String("teamID", id),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		row, err := s.registry.Decode(item)
		if err != nil {
			return nil, fmt.Errorf("decode team %s: %w", id, err)
		}
		team, ok := row.(*Team)
		if !ok {
			return nil, fmt.Errorf("decode team %s: %w", id, store.ErrUnknownObjectType)
		}
		teams = append(teams, team)
	}
	return teams, nil
}
