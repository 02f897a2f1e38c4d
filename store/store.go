package store

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a raw document: a DynamoDB attribute map.
type Item = map[string]types.AttributeValue

// Store is the document-store contract the forum domain is built on.
// Every table keys on an "id" string attribute. Implementations manage
// a "version" attribute on each item and bump it on every write; Pull
// relies on it for optimistic locking.
type Store interface {
	// Insert stores a new item, failing with ErrAlreadyExists if an
	// item with the same id is already present.
	Insert(ctx context.Context, table string, item Item) error

	// Get returns the item with the given id, or ErrNotFound.
	Get(ctx context.Context, table, id string) (Item, error)

	// Find returns the first item whose field equals value, or
	// ErrNotFound. The field must be indexed (see Config.Indexes).
	Find(ctx context.Context, table, field string, value types.AttributeValue) (Item, error)

	// Scan returns every item in the table.
	Scan(ctx context.Context, table string) ([]Item, error)

	// Update sets the given fields on an existing item.
	// Returns ErrNotFound if the item does not exist.
	Update(ctx context.Context, table, id string, set map[string]types.AttributeValue) error

	// Unset removes the given fields from an existing item.
	Unset(ctx context.Context, table, id string, fields ...string) error

	// Push appends string values to a list field, creating the list
	// if absent.
	Push(ctx context.Context, table, id, field string, values ...string) error

	// Pull removes every occurrence of the given string values from a
	// list field. Removing values that are not present is a no-op.
	Pull(ctx context.Context, table, id, field string, values ...string) error

	// Add atomically adds delta to a numeric field.
	Add(ctx context.Context, table, id, field string, delta int64) error

	// Delete removes an item. Deleting a missing item is a no-op.
	Delete(ctx context.Context, table, id string) error

	// DeleteMany removes a batch of items by id.
	DeleteMany(ctx context.Context, table string, ids []string) error

	// Increment atomically increments the named counter and returns
	// the new value, creating the counter at 1 if absent. Safe under
	// concurrent callers for the same name.
	Increment(ctx context.Context, name string) (int64, error)
}

// S wraps a string as an attribute value.
func S(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

// N wraps an int64 as an attribute value.
func N(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

// StringList wraps strings as a list attribute value.
func StringList(values ...string) types.AttributeValue {
	members := make([]types.AttributeValue, len(values))
	for i, v := range values {
		members[i] = S(v)
	}
	return &types.AttributeValueMemberL{Value: members}
}

// ItemID extracts the id attribute from an item.
func ItemID(item Item) string {
	if v, ok := item["id"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
