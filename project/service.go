package project

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jacentio/projects/audit"
	"github.com/jacentio/projects/internal/keys"
	"github.com/jacentio/projects/store"
)

// Table is the subset of *store.Store the service uses.
type Table interface {
	Get(ctx context.Context, key store.Key, projection ...string) (store.Item, error)
	Query(ctx context.Context, input store.QueryInput) (*store.Page, error)
	Put(ctx context.Context, item store.Item) error
	BatchWrite(ctx context.Context, puts []store.Item, deletes []store.Key) error
}

// URLSigner produces time-limited download URLs for stored objects.
type URLSigner interface {
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Auditor records mutation events. Implementations must not fail the caller.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

// Config holds service settings.
type Config struct {
	// ObjectIndex is the GSI keyed by (item_id, object_id).
	ObjectIndex string

	// PhotoBucket holds project photos under the "private/" prefix.
	PhotoBucket string

	// PhotoTTL is the lifetime of signed photo URLs.
	PhotoTTL time.Duration

	// DefaultPageSize applies when a list request carries no limit.
	DefaultPageSize int32

	// MaxPageSize caps the list limit.
	MaxPageSize int32
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		ObjectIndex:     "Object-Id-Index",
		PhotoBucket:     "developer-bucket",
		PhotoTTL:        time.Hour,
		DefaultPageSize: 50,
		MaxPageSize:     100,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides project id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithSigner enables photo_url enrichment.
func WithSigner(signer URLSigner) Option {
	return func(s *Service) { s.signer = signer }
}

// WithAuditor sets the audit event recorder.
func WithAuditor(auditor Auditor) Option {
	return func(s *Service) { s.auditor = auditor }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDirectory replaces the table-backed authorization lookups.
func WithDirectory(dir Directory) Option {
	return func(s *Service) { s.dir = dir }
}

// Service implements the project operations on top of the shared table.
type Service struct {
	table    Table
	config   Config
	registry *store.Registry
	dir      Directory
	authz    *Authorizer
	signer   URLSigner
	auditor  Auditor
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewService creates a Service.
func NewService(table Table, config Config, opts ...Option) *Service {
	defaults := DefaultConfig()
	if config.ObjectIndex == "" {
		config.ObjectIndex = defaults.ObjectIndex
	}
	if config.PhotoTTL <= 0 {
		config.PhotoTTL = defaults.PhotoTTL
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = defaults.MaxPageSize
	}
	if config.DefaultPageSize <= 0 || config.DefaultPageSize > config.MaxPageSize {
		config.DefaultPageSize = min(defaults.DefaultPageSize, config.MaxPageSize)
	}

	s := &Service{
		table:    table,
		config:   config,
		registry: NewRegistry(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.dir == nil {
		s.dir = NewTableDirectory(table)
	}
	s.authz = NewAuthorizer(s.dir)
	return s
}

// Request identifies who is acting on which organization.
type Request struct {
	OrganizationID string
	Actor          Actor

	// EventID identifies the audit event of a mutation. A new id is
	// generated when empty.
	EventID string
}

// MutationResult reports the outcome of a create, update or delete. The
// project write itself succeeded whenever a result is returned; relationship
// writes that could not be applied are listed in Failed.
type MutationResult struct {
	Project *Project

	// Added and Removed are the team ids the reconciliation tried to link and unlink.
	Added   []string
	Removed []string

	// Failed holds the relationship keys that were not written.
	Failed []store.Key

	// Warning is the batch failure behind Failed.
	Warning error
}

// Complete reports whether every relationship write was applied.
func (r *MutationResult) Complete() bool {
	return len(r.Failed) == 0
}

// Create stores a new active project and links it to the requested teams.
func (s *Service) Create(ctx context.Context, req Request, in Input) (*MutationResult, error) {
	org := req.OrganizationID
	if err := s.authz.Precheck(org, req.Actor, OpCreate); err != nil {
		return nil, err
	}
	if in.Name == nil || *in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := s.authz.Authorize(ctx, org, req.Actor, OpCreate, ResourceState{Public: in.wantsPublic()}); err != nil {
		return nil, err
	}
	s.warnImmutable(org, "", in)

	projectID := s.newID()
	key := keys.Project(org, projectID)
	p := &Project{
		ItemID:     org,
		ProjectID:  projectID,
		SortKey:    key.SortKey,
		ObjectType: ObjectTypeProject,
		ObjectID:   keys.ProjectObjectID(projectID),
		CreatedOn:  s.timestamp(),
	}
	in.Patch.Apply(p)
	p.Active = true

	if err := s.putProject(ctx, p, nil); err != nil {
		return nil, err
	}

	result := s.applyDiff(ctx, org, projectID, Reconcile(in.Teams, nil))
	result.Project = p

	s.logger.Info("project created",
		zap.String("organizationID", org),
		zap.String("projectID", projectID),
		zap.Int("teams", len(result.Added)),
	)
	s.record(ctx, req, audit.TypeCreate, "Created", p)
	return result, nil
}

// Update merges the mutable attributes of in into a stored project and, when
// in.Teams is set, reconciles its team associations.
func (s *Service) Update(ctx context.Context, req Request, projectID string, in Input) (*MutationResult, error) {
	org := req.OrganizationID
	if err := s.authz.Precheck(org, req.Actor, OpUpdate); err != nil {
		return nil, err
	}
	if in.Name != nil && *in.Name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}

	p, stored, err := s.loadProject(ctx, org, projectID)
	if errors.Is(err, ErrNotFound) && req.Actor.Role.needsTeamMembership() {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}
	current, err := s.teamIDs(ctx, org, projectID)
	if err != nil {
		return nil, err
	}

	state := ResourceState{
		Project: p,
		TeamIDs: current,
		Public:  in.wantsPublic(),
		Active:  in.requestedActive(),
	}
	if err := s.authz.Authorize(ctx, org, req.Actor, OpUpdate, state); err != nil {
		return nil, err
	}
	s.warnImmutable(org, projectID, in)

	in.Patch.Apply(p)
	p.UpdatedOn = s.timestamp()
	if err := s.putProject(ctx, p, stored); err != nil {
		return nil, err
	}

	result := &MutationResult{}
	if in.Teams != nil {
		result = s.applyDiff(ctx, org, projectID, Reconcile(in.Teams, current))
	}
	result.Project = p

	s.logger.Info("project updated",
		zap.String("organizationID", org),
		zap.String("projectID", projectID),
		zap.Strings("added", result.Added),
		zap.Strings("removed", result.Removed),
	)
	s.record(ctx, req, audit.TypeUpdate, "Updated", p)
	return result, nil
}

// GetOptions controls read enrichment.
type GetOptions struct {
	// Teams expands associated teams into the view.
	Teams bool
}

// Get returns the public view of one project.
func (s *Service) Get(ctx context.Context, req Request, projectID string, opts GetOptions) (*View, error) {
	org := req.OrganizationID
	if err := s.authz.Precheck(org, req.Actor, OpGet); err != nil {
		return nil, err
	}

	item, err := s.table.Get(ctx, keys.Project(org, projectID), s.registry.Projection(ObjectTypeProject)...)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p, err := s.decodeProject(item)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, org, p, opts.Teams)
}

// Delete removes a project row and every relationship row of the project.
func (s *Service) Delete(ctx context.Context, req Request, projectID string) (*MutationResult, error) {
	org := req.OrganizationID
	if err := s.authz.Precheck(org, req.Actor, OpDelete); err != nil {
		return nil, err
	}

	page, err := s.table.Query(ctx, store.QueryInput{
		Partition: org,
		Prefix:    keys.ProjectRowsPrefix(projectID),
	})
	if err != nil {
		return nil, err
	}

	projectKey := keys.Project(org, projectID)
	var (
		p       *Project
		teamIDs []string
		doomed  []store.Key
	)
	for _, item := range page.Items {
		key, ok := store.KeyOf(item)
		if !ok {
			continue
		}
		if key == projectKey {
			if p, err = s.decodeProject(item); err != nil {
				return nil, err
			}
			doomed = append(doomed, key)
			continue
		}
		// The prefix also matches longer project ids; keep exact matches only.
		if pid, teamID, ok := keys.ParseRelationship(key.SortKey); ok && pid == projectID {
			teamIDs = append(teamIDs, teamID)
			doomed = append(doomed, key)
		}
	}
	if p == nil {
		if req.Actor.Role.needsTeamMembership() {
			return nil, ErrNotAuthorized
		}
		return nil, ErrNotFound
	}

	state := ResourceState{Project: p, TeamIDs: teamIDs}
	if err := s.authz.Authorize(ctx, org, req.Actor, OpDelete, state); err != nil {
		return nil, err
	}

	result := &MutationResult{Project: p, Removed: teamIDs}
	if err := s.table.BatchWrite(ctx, nil, doomed); err != nil {
		var batchErr *store.BatchError
		if !errors.As(err, &batchErr) || batchErr.Contains(projectKey) {
			return nil, fmt.Errorf("delete project %s: %w", projectID, err)
		}
		result.Failed = batchErr.Failed
		result.Warning = err
		s.logger.Warn("project relationships left behind",
			zap.String("organizationID", org),
			zap.String("projectID", projectID),
			zap.Int("failed", len(batchErr.Failed)),
			zap.Error(err),
		)
	}

	s.logger.Info("project deleted",
		zap.String("organizationID", org),
		zap.String("projectID", projectID),
		zap.Int("relationships", len(teamIDs)),
	)
	s.record(ctx, req, audit.TypeDelete, "Deleted", p)
	return result, nil
}

// applyDiff writes and deletes relationship rows. Failures are reported on
// the result; the project write they follow is never undone.
func (s *Service) applyDiff(ctx context.Context, org, projectID string, diff Diff) *MutationResult {
	result := &MutationResult{Added: diff.Add, Removed: diff.Remove}
	if diff.Empty() {
		return result
	}

	puts := make([]store.Item, 0, len(diff.Add))
	for _, teamID := range diff.Add {
		puts = append(puts, NewRelationship(org, projectID, teamID).Item())
	}
	deletes := make([]store.Key, 0, len(diff.Remove))
	for _, teamID := range diff.Remove {
		deletes = append(deletes, keys.Relationship(org, projectID, teamID))
	}

	err := s.table.BatchWrite(ctx, puts, deletes)
	if err == nil {
		return result
	}

	var batchErr *store.BatchError
	if errors.As(err, &batchErr) {
		result.Failed = batchErr.Failed
	} else {
		for _, item := range puts {
			if key, ok := store.KeyOf(item); ok {
				result.Failed = append(result.Failed, key)
			}
		}
		result.Failed = append(result.Failed, deletes...)
	}
	result.Warning = err

	s.logger.Warn("relationship reconciliation incomplete",
		zap.String("organizationID", org),
		zap.String("projectID", projectID),
		zap.Int("failed", len(result.Failed)),
		zap.Error(err),
	)
	return result
}

// loadProject reads a project row and returns it decoded and raw.
func (s *Service) loadProject(ctx context.Context, org, projectID string) (*Project, store.Item, error) {
	item, err := s.table.Get(ctx, keys.Project(org, projectID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	p, err := s.decodeProject(item)
	if err != nil {
		return nil, nil, err
	}
	return p, item, nil
}

func (s *Service) decodeProject(item store.Item) (*Project, error) {
	row, err := s.registry.Decode(item)
	if err != nil {
		return nil, err
	}
	p, ok := row.(*Project)
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// putProject writes p over base. Attributes of base that Project does not own
// are kept; owned attributes come from p only.
func (s *Service) putProject(ctx context.Context, p *Project, base store.Item) error {
	p.SortKey = p.Key().SortKey
	row, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	item := make(store.Item, len(base)+len(row))
	for name, v := range base {
		if !slices.Contains(ProjectAttributes, name) {
			item[name] = v
		}
	}
	maps.Copy(item, row)
	return s.table.Put(ctx, item)
}

// warnImmutable logs payload attributes the project schema marks immutable.
// They have no Patch field, so they are never applied.
func (s *Service) warnImmutable(org, projectID string, in Input) {
	schema, ok := s.registry.Lookup(ObjectTypeProject)
	if !ok {
		return
	}
	var ignored []string
	for _, name := range in.Fields() {
		if schema.IsImmutable(name) {
			ignored = append(ignored, name)
		}
	}
	if len(ignored) == 0 {
		return
	}
	s.logger.Warn("ignoring immutable attributes",
		zap.String("organizationID", org),
		zap.String("projectID", projectID),
		zap.Strings("attributes", ignored),
	)
}

// teamIDs returns the ids of the teams currently linked to a project, in sort key order.
func (s *Service) teamIDs(ctx context.Context, org, projectID string) ([]string, error) {
	page, err := s.table.Query(ctx, store.QueryInput{
		Partition:  org,
		Prefix:     keys.ProjectTeamsPrefix(projectID),
		Projection: s.registry.Projection(ObjectTypeRelationship),
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		row, err := s.registry.Decode(item)
		if err != nil {
			s.logger.Warn("skipping undecodable relationship",
				zap.String("organizationID", org),
				zap.String("projectID", projectID),
				zap.Error(err),
			)
			continue
		}
		rel, ok := row.(*Relationship)
		if !ok {
			continue
		}
		if id := rel.Team(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Service) record(ctx context.Context, req Request, eventType, verb string, p *Project) {
	if s.auditor == nil {
		return
	}
	eventID := req.EventID
	if eventID == "" {
		eventID = s.newID()
	}
	s.auditor.Record(ctx, audit.Event{
		OrganizationID: req.OrganizationID,
		EventID:        eventID,
		Description:    fmt.Sprintf("%s project %s", verb, p.Name),
		Actor:          req.Actor.UserID,
		Type:           eventType,
		SourceIP:       req.Actor.SourceIP,
		Snapshot:       p,
	})
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
