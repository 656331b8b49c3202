package project

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/projects/internal/keys"
	"github.com/jacentio/projects/store"
)

// memTable is an in-memory Table with the query semantics of the real table
// and its object index.
type memTable struct {
	rows map[store.Key]store.Item

	// getErr, when set, can fail individual Get calls.
	getErr func(key store.Key) error

	// batchErr, when set, can fail a BatchWrite. Keys listed in a returned
	// *store.BatchError are left unwritten; any other error writes nothing.
	batchErr func(puts []store.Item, deletes []store.Key) error

	lastPuts    []store.Key
	lastDeletes []store.Key
	batches     int
}

func newMemTable() *memTable {
	return &memTable{rows: make(map[store.Key]store.Item)}
}

func (m *memTable) Get(_ context.Context, key store.Key, projection ...string) (store.Item, error) {
	if m.getErr != nil {
		if err := m.getErr(key); err != nil {
			return nil, err
		}
	}
	item, ok := m.rows[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, store.ErrNotFound)
	}
	if len(projection) == 0 {
		return copyItem(item), nil
	}
	return projectAttrs(item, append([]string{store.AttrItemID, store.AttrSortKey}, projection...)), nil
}

func (m *memTable) Query(_ context.Context, in store.QueryInput) (*store.Page, error) {
	rangeAttr := store.AttrSortKey
	if in.IndexName != "" {
		rangeAttr = store.AttrObjectID
	}

	var matched []store.Item
	for _, item := range m.rows {
		if store.StringAttr(item, store.AttrItemID) != in.Partition {
			continue
		}
		value := store.StringAttr(item, rangeAttr)
		if value == "" || !strings.HasPrefix(value, in.Prefix) {
			continue
		}
		matched = append(matched, item)
	}
	order := func(item store.Item) string {
		return store.StringAttr(item, rangeAttr) + "\x00" + store.StringAttr(item, store.AttrSortKey)
	}
	slices.SortFunc(matched, func(a, b store.Item) int { return cmp.Compare(order(a), order(b)) })

	if in.StartToken != "" {
		start, err := store.DecodeToken(in.StartToken)
		if err != nil {
			return nil, err
		}
		after := order(start)
		matched = slices.DeleteFunc(matched, func(item store.Item) bool { return order(item) <= after })
	}

	page := &store.Page{}
	if in.Limit > 0 && len(matched) > int(in.Limit) {
		matched = matched[:in.Limit]
		last := matched[len(matched)-1]
		token, err := store.EncodeToken(projectAttrs(last, []string{store.AttrItemID, store.AttrSortKey, rangeAttr}))
		if err != nil {
			return nil, err
		}
		page.NextToken = token
	}
	for _, item := range matched {
		if len(in.Projection) > 0 {
			page.Items = append(page.Items, projectAttrs(item, in.Projection))
		} else {
			page.Items = append(page.Items, copyItem(item))
		}
	}
	return page, nil
}

func (m *memTable) Put(_ context.Context, item store.Item) error {
	key, ok := store.KeyOf(item)
	if !ok {
		return errors.New("memtable: item without key")
	}
	m.rows[key] = copyItem(item)
	return nil
}

func (m *memTable) BatchWrite(_ context.Context, puts []store.Item, deletes []store.Key) error {
	m.batches++
	m.lastPuts = m.lastPuts[:0]
	for _, item := range puts {
		key, _ := store.KeyOf(item)
		m.lastPuts = append(m.lastPuts, key)
	}
	m.lastDeletes = slices.Clone(deletes)

	var err error
	if m.batchErr != nil {
		err = m.batchErr(puts, deletes)
	}
	var batchErr *store.BatchError
	if err != nil && !errors.As(err, &batchErr) {
		return err
	}

	for _, item := range puts {
		key, _ := store.KeyOf(item)
		if batchErr != nil && batchErr.Contains(key) {
			continue
		}
		m.rows[key] = copyItem(item)
	}
	for _, key := range deletes {
		if batchErr != nil && batchErr.Contains(key) {
			continue
		}
		delete(m.rows, key)
	}
	return err
}

func (m *memTable) has(key store.Key) bool {
	_, ok := m.rows[key]
	return ok
}

// sortKeysWithPrefix lists the organization's sort keys starting with prefix.
func (m *memTable) sortKeysWithPrefix(org, prefix string) []string {
	var out []string
	for key := range m.rows {
		if key.ItemID == org && strings.HasPrefix(key.SortKey, prefix) {
			out = append(out, key.SortKey)
		}
	}
	slices.Sort(out)
	return out
}

func (m *memTable) seedOrganization(t *testing.T, org string, publicProjects bool) {
	t.Helper()
	item := store.KeyAttributes(keys.Organization(org))
	item[store.AttrObjectType] = &types.AttributeValueMemberS{Value: "organization"}
	item["public_projects"] = &types.AttributeValueMemberBOOL{Value: publicProjects}
	require.NoError(t, m.Put(context.Background(), item))
}

func (m *memTable) seedTeam(t *testing.T, org, teamID, name string) {
	t.Helper()
	item, err := attributevalue.MarshalMap(Team{
		ItemID:     org,
		TeamID:     teamID,
		ObjectType: ObjectTypeTeam,
		ObjectID:   keys.TeamObjectID(teamID),
		TeamName:   name,
	})
	require.NoError(t, err)
	item[store.AttrSortKey] = &types.AttributeValueMemberS{Value: keys.Team(org, teamID).SortKey}
	require.NoError(t, m.Put(context.Background(), item))
}

func (m *memTable) seedMember(t *testing.T, org, teamID, userID string) {
	t.Helper()
	require.NoError(t, m.Put(context.Background(), store.KeyAttributes(keys.Membership(org, teamID, userID))))
}

func copyItem(item store.Item) store.Item {
	out := make(store.Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func projectAttrs(item store.Item, attrs []string) store.Item {
	out := make(store.Item, len(attrs))
	for _, attr := range attrs {
		if v, ok := item[attr]; ok {
			out[attr] = v
		}
	}
	return out
}
