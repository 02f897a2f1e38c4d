package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var _ Store = (*Memory)(nil)

// Memory implements Store in process memory. It mirrors the Dynamo
// implementation's semantics (managed version attribute, id keying,
// push/pull list handling) and is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	config Config
	tables map[string]map[string]Item
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	config := DefaultConfig()
	return &Memory{
		config: config,
		tables: make(map[string]map[string]Item),
	}
}

func (m *Memory) table(name string) map[string]Item {
	t, ok := m.tables[name]
	if !ok {
		t = make(map[string]Item)
		m.tables[name] = t
	}
	return t
}

// Insert stores a new item with version 1, failing if the id exists.
func (m *Memory) Insert(ctx context.Context, table string, item Item) error {
	id := ItemID(item)
	if id == "" {
		return fmt.Errorf("store: insert into %s: missing id attribute", table)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(table)
	if _, exists := t[id]; exists {
		return ErrAlreadyExists
	}
	stored := copyItem(item)
	stored["version"] = N(1)
	t[id] = stored
	return nil
}

// Get retrieves an item by id, returning ErrNotFound if missing.
func (m *Memory) Get(ctx context.Context, table, id string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.table(table)[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(item), nil
}

// Find returns the first item whose field equals value.
func (m *Memory) Find(ctx context.Context, table, field string, value types.AttributeValue) (Item, error) {
	if _, ok := m.config.Indexes[field]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoIndex, field)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.table(table) {
		if attrEqual(item[field], value) {
			return copyItem(item), nil
		}
	}
	return nil, ErrNotFound
}

// Scan returns every item in the table.
func (m *Memory) Scan(ctx context.Context, table string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(table)
	items := make([]Item, 0, len(t))
	for _, item := range t {
		items = append(items, copyItem(item))
	}
	return items, nil
}

// Update sets fields on an existing item and bumps its version.
func (m *Memory) Update(ctx context.Context, table, id string, set map[string]types.AttributeValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.table(table)[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range set {
		item[k] = copyAttr(v)
	}
	bumpVersion(item)
	return nil
}

// Unset removes fields from an existing item and bumps its version.
func (m *Memory) Unset(ctx context.Context, table, id string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.table(table)[id]
	if !ok {
		return ErrNotFound
	}
	for _, f := range fields {
		delete(item, f)
	}
	bumpVersion(item)
	return nil
}

// Push appends values to a list field, creating the list if absent.
func (m *Memory) Push(ctx context.Context, table, id, field string, values ...string) error {
	if len(values) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.table(table)[id]
	if !ok {
		return ErrNotFound
	}
	list, _ := item[field].(*types.AttributeValueMemberL)
	if list == nil {
		list = &types.AttributeValueMemberL{}
	}
	members := append([]types.AttributeValue{}, list.Value...)
	for _, v := range values {
		members = append(members, S(v))
	}
	item[field] = &types.AttributeValueMemberL{Value: members}
	bumpVersion(item)
	return nil
}

// Pull removes every occurrence of the given values from a list field.
func (m *Memory) Pull(ctx context.Context, table, id, field string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(values))
	for _, v := range values {
		drop[v] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.table(table)[id]
	if !ok {
		return ErrNotFound
	}
	list, _ := item[field].(*types.AttributeValueMemberL)
	if list == nil {
		return nil
	}
	kept := make([]types.AttributeValue, 0, len(list.Value))
	for _, member := range list.Value {
		if s, ok := member.(*types.AttributeValueMemberS); ok && drop[s.Value] {
			continue
		}
		kept = append(kept, member)
	}
	if len(kept) == len(list.Value) {
		return nil
	}
	item[field] = &types.AttributeValueMemberL{Value: kept}
	bumpVersion(item)
	return nil
}

// Add atomically adds delta to a numeric field.
func (m *Memory) Add(ctx context.Context, table, id, field string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.table(table)[id]
	if !ok {
		return ErrNotFound
	}
	var current int64
	if n, ok := item[field].(*types.AttributeValueMemberN); ok {
		current, _ = strconv.ParseInt(n.Value, 10, 64)
	}
	item[field] = N(current + delta)
	bumpVersion(item)
	return nil
}

// Delete removes an item. Deleting a missing item succeeds.
func (m *Memory) Delete(ctx context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.table(table), id)
	return nil
}

// DeleteMany removes a batch of items by id.
func (m *Memory) DeleteMany(ctx context.Context, table string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(table)
	for _, id := range ids {
		delete(t, id)
	}
	return nil
}

// Increment atomically increments the named counter and returns the
// new value, creating the counter at 1 if absent.
func (m *Memory) Increment(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(m.config.CounterTable)
	item, ok := t[name]
	if !ok {
		item = Item{"id": S(name), "seq": N(0)}
		t[name] = item
	}
	var seq int64
	if n, ok := item["seq"].(*types.AttributeValueMemberN); ok {
		seq, _ = strconv.ParseInt(n.Value, 10, 64)
	}
	seq++
	item["seq"] = N(seq)
	return seq, nil
}

func bumpVersion(item Item) {
	item["version"] = N(itemVersion(item) + 1)
}

// attrEqual compares the scalar attribute types the store indexes on.
func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

// copyItem deep-copies an item so callers never alias stored state.
func copyItem(item Item) Item {
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = copyAttr(v)
	}
	return out
}

func copyAttr(v types.AttributeValue) types.AttributeValue {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: av.Value}
	case *types.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: av.Value}
	case *types.AttributeValueMemberBOOL:
		return &types.AttributeValueMemberBOOL{Value: av.Value}
	case *types.AttributeValueMemberNULL:
		return &types.AttributeValueMemberNULL{Value: av.Value}
	case *types.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: append([]byte{}, av.Value...)}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: append([]string{}, av.Value...)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: append([]string{}, av.Value...)}
	case *types.AttributeValueMemberL:
		members := make([]types.AttributeValue, len(av.Value))
		for i, member := range av.Value {
			members[i] = copyAttr(member)
		}
		return &types.AttributeValueMemberL{Value: members}
	case *types.AttributeValueMemberM:
		members := make(map[string]types.AttributeValue, len(av.Value))
		for k, member := range av.Value {
			members[k] = copyAttr(member)
		}
		return &types.AttributeValueMemberM{Value: members}
	}
	return v
}
