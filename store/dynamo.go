package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// batchWriteMax is the DynamoDB BatchWriteItem request limit.
const batchWriteMax = 25

var _ Store = (*Dynamo)(nil)

// Dynamo implements Store on Amazon DynamoDB.
type Dynamo struct {
	client *dynamodb.Client
	config Config
}

// NewDynamo creates a DynamoDB-backed store.
func NewDynamo(client *dynamodb.Client, config Config) *Dynamo {
	config.validate()
	return &Dynamo{
		client: client,
		config: config,
	}
}

// Insert stores a new item with version 1, failing if the id exists.
func (d *Dynamo) Insert(ctx context.Context, table string, item Item) error {
	put := make(Item, len(item)+1)
	for k, v := range item {
		put[k] = v
	}
	put["version"] = N(1)

	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(table),
		Item:                put,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrAlreadyExists
	}
	return err
}

// Get retrieves an item by id, returning ErrNotFound if missing.
func (d *Dynamo) Get(ctx context.Context, table, id string) (Item, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       Item{"id": S(id)},
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return result.Item, nil
}

// Find queries the GSI configured for field and returns the first match.
func (d *Dynamo) Find(ctx context.Context, table, field string, value types.AttributeValue) (Item, error) {
	index, ok := d.config.Indexes[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoIndex, field)
	}

	result, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(table),
		IndexName:                aws.String(index),
		KeyConditionExpression:   aws.String("#f = :v"),
		ExpressionAttributeNames: map[string]string{"#f": field},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": value,
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}
	return result.Items[0], nil
}

// Scan returns every item in the table.
func (d *Dynamo) Scan(ctx context.Context, table string) ([]Item, error) {
	var items []Item
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName: aws.String(table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			items = append(items, raw)
		}
	}
	return items, nil
}

// Update sets fields on an existing item and bumps its version.
func (d *Dynamo) Update(ctx context.Context, table, id string, set map[string]types.AttributeValue) error {
	exprNames := map[string]string{"#version": "version"}
	exprValues := map[string]types.AttributeValue{":one": N(1)}

	expr := "SET #version = #version + :one"
	i := 0
	for k, v := range set {
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		exprNames[nameKey] = k
		exprValues[valueKey] = v
		expr += fmt.Sprintf(", %s = %s", nameKey, valueKey)
		i++
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       Item{"id": S(id)},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})
	return mapMissing(err)
}

// Unset removes fields from an existing item and bumps its version.
func (d *Dynamo) Unset(ctx context.Context, table, id string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	exprNames := map[string]string{"#version": "version"}
	expr := "SET #version = #version + :one REMOVE "
	for i, f := range fields {
		nameKey := fmt.Sprintf("#rm%d", i)
		exprNames[nameKey] = f
		if i > 0 {
			expr += ", "
		}
		expr += nameKey
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(table),
		Key:                      Item{"id": S(id)},
		UpdateExpression:         aws.String(expr),
		ConditionExpression:      aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: exprNames,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": N(1),
		},
	})
	return mapMissing(err)
}

// Push appends values to a list field via list_append, a single atomic
// write on the item.
func (d *Dynamo) Push(ctx context.Context, table, id, field string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(table),
		Key:                 Item{"id": S(id)},
		UpdateExpression:    aws.String("SET #f = list_append(if_not_exists(#f, :empty), :vals), #version = #version + :one"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#f":       field,
			"#version": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":vals":  StringList(values...),
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":one":   N(1),
		},
	})
	return mapMissing(err)
}

// Pull removes values from a list field. DynamoDB has no atomic
// remove-by-value, so this is a read, filter, and version-conditioned
// write, retried a bounded number of times.
func (d *Dynamo) Pull(ctx context.Context, table, id, field string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(values))
	for _, v := range values {
		drop[v] = true
	}

	for attempt := 0; attempt < d.config.PullAttempts; attempt++ {
		item, err := d.Get(ctx, table, id)
		if err != nil {
			return err
		}
		version := itemVersion(item)

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

		_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(table),
			Key:                 Item{"id": S(id)},
			UpdateExpression:    aws.String("SET #f = :list, #version = #version + :one"),
			ConditionExpression: aws.String("#version = :expected"),
			ExpressionAttributeNames: map[string]string{
				"#f":       field,
				"#version": "version",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":list":     &types.AttributeValueMemberL{Value: kept},
				":expected": N(version),
				":one":      N(1),
			},
		})
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			continue // lost the race, re-read and retry
		}
		return err
	}
	return ErrConcurrentModification
}

// Add atomically adds delta to a numeric field.
func (d *Dynamo) Add(ctx context.Context, table, id, field string, delta int64) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(table),
		Key:                 Item{"id": S(id)},
		UpdateExpression:    aws.String("SET #version = #version + :one ADD #f :d"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#f":       field,
			"#version": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d":   N(delta),
			":one": N(1),
		},
	})
	return mapMissing(err)
}

// Delete removes an item. Deleting a missing item succeeds.
func (d *Dynamo) Delete(ctx context.Context, table, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       Item{"id": S(id)},
	})
	return err
}

// DeleteMany removes items in BatchWriteItem chunks, resubmitting
// unprocessed keys.
func (d *Dynamo) DeleteMany(ctx context.Context, table string, ids []string) error {
	for start := 0; start < len(ids); start += batchWriteMax {
		end := start + batchWriteMax
		if end > len(ids) {
			end = len(ids)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, id := range ids[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: Item{"id": S(id)},
				},
			})
		}

		pending := map[string][]types.WriteRequest{table: requests}
		for len(pending[table]) > 0 {
			out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

// Increment atomically increments the named counter, creating it at 1
// if absent, and returns the new value. The read-modify-write is a
// single UpdateItem with an ADD action.
func (d *Dynamo) Increment(ctx context.Context, name string) (int64, error) {
	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(d.config.CounterTable),
		Key:                      Item{"id": S(name)},
		UpdateExpression:         aws.String("ADD #seq :one"),
		ExpressionAttributeNames: map[string]string{"#seq": "seq"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": N(1),
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}
	seq, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("counter %q: missing seq attribute", name)
	}
	return strconv.ParseInt(seq.Value, 10, 64)
}

// mapMissing maps a conditional failure on attribute_exists(id) to
// ErrNotFound.
func mapMissing(err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrNotFound
	}
	return err
}

// itemVersion reads the managed version attribute, defaulting to 0.
func itemVersion(item Item) int64 {
	if v, ok := item["version"].(*types.AttributeValueMemberN); ok {
		n, _ := strconv.ParseInt(v.Value, 10, 64)
		return n
	}
	return 0
}
