//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/arbor/forum"
	"github.com/jacentio/arbor/store"
)

// Test configuration
const (
	awsProfile = "jacent-alpha-cp"

	// Table names - unique per test run to avoid conflicts
	tablePrefix = "arbor-e2e-test"
)

var (
	testID       string
	tables       forum.Tables
	counterTable string

	ddbClient *dynamodb.Client
	service   *forum.Service
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	// Generate unique test ID
	testID = uuid.New().String()[:8]
	tables = forum.Tables{
		Categories: fmt.Sprintf("%s-%s-categories", tablePrefix, testID),
		Forums:     fmt.Sprintf("%s-%s-forums", tablePrefix, testID),
		Topics:     fmt.Sprintf("%s-%s-topics", tablePrefix, testID),
		Posts:      fmt.Sprintf("%s-%s-posts", tablePrefix, testID),
		Users:      fmt.Sprintf("%s-%s-users", tablePrefix, testID),
	}
	counterTable = fmt.Sprintf("%s-%s-counters", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(awsProfile),
	)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	ddbClient = dynamodb.NewFromConfig(cfg)

	if err := createTables(ctx); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		os.Exit(1)
	}

	storeCfg := store.DefaultConfig()
	storeCfg.CounterTable = counterTable
	service = forum.NewService(store.NewDynamo(ddbClient, storeCfg), tables, nil)

	code := m.Run()

	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}

	os.Exit(code)
}

func createTables(ctx context.Context) error {
	fmt.Println("Creating test tables...")

	displayIDIndex := types.GlobalSecondaryIndex{
		IndexName: aws.String("by_display_id"),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("display_id"), KeyType: types.KeyTypeHash},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
	nameIndex := types.GlobalSecondaryIndex{
		IndexName: aws.String("by_name"),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("name"), KeyType: types.KeyTypeHash},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
	emailIndex := types.GlobalSecondaryIndex{
		IndexName: aws.String("by_email"),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("email"), KeyType: types.KeyTypeHash},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}

	baseAttrs := []types.AttributeDefinition{
		{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("display_id"), AttributeType: types.ScalarAttributeTypeN},
		{AttributeName: aws.String("name"), AttributeType: types.ScalarAttributeTypeS},
	}

	for _, tableName := range []string{tables.Categories, tables.Forums, tables.Topics, tables.Posts} {
		_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(tableName),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions:   baseAttrs,
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{displayIDIndex, nameIndex},
			BillingMode:            types.BillingModePayPerRequest,
		})
		if err != nil {
			return fmt.Errorf("create table %s: %w", tableName, err)
		}
	}

	// Users additionally index email for login lookups.
	userAttrs := append([]types.AttributeDefinition{}, baseAttrs...)
	userAttrs = append(userAttrs, types.AttributeDefinition{
		AttributeName: aws.String("email"), AttributeType: types.ScalarAttributeTypeS,
	})
	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tables.Users),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions:   userAttrs,
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{displayIDIndex, nameIndex, emailIndex},
		BillingMode:            types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	// Counter table: one row per sequence name.
	_, err = ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(counterTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create counter table: %w", err)
	}

	allTables := []string{tables.Categories, tables.Forums, tables.Topics, tables.Posts, tables.Users, counterTable}
	for _, tableName := range allTables {
		waiter := dynamodb.NewTableExistsWaiter(ddbClient)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", tableName, err)
		}
	}

	fmt.Println("All tables created and active")
	return nil
}

func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")

	allTables := []string{tables.Categories, tables.Forums, tables.Topics, tables.Posts, tables.Users, counterTable}
	for _, tableName := range allTables {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", tableName, err)
		}
	}

	fmt.Println("Tables deleted")
	return nil
}

// --- Helpers ---

func signupUser(t *testing.T, name string) *forum.User {
	t.Helper()
	user, err := service.CreateUser(context.Background(), forum.SignupInput{
		Email:        fmt.Sprintf("%s-%s@test.com", name, uuid.New().String()[:8]),
		PasswordHash: "e2e-password-hash",
		Name:         name + "-" + uuid.New().String()[:8],
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func uniqueName(prefix string) string {
	return prefix + " " + uuid.New().String()[:8]
}

// --- Tests ---

func TestHierarchyLifecycle(t *testing.T) {
	ctx := context.Background()
	user := signupUser(t, "alice")

	category, err := service.CreateCategory(ctx, user.ID, forum.CategoryInput{
		Name:        uniqueName("Category"),
		Description: "e2e category",
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if category.DisplayID < 1 {
		t.Errorf("expected positive display id, got %d", category.DisplayID)
	}

	f, err := service.CreateForum(ctx, user.ID, forum.ForumInput{
		CategoryID:  category.DisplayID,
		Name:        uniqueName("Forum"),
		Description: "e2e forum",
	})
	if err != nil {
		t.Fatalf("create forum: %v", err)
	}

	topic, err := service.CreateTopic(ctx, user.ID, forum.TopicInput{
		ForumID:     f.DisplayID,
		Name:        uniqueName("Topic"),
		Description: "e2e topic",
	})
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}

	post, err := service.CreatePost(ctx, user.ID, forum.PostInput{
		TopicID:     topic.DisplayID,
		Name:        uniqueName("Post"),
		Description: "e2e post",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	// Parent child lists and lastPost shortcuts are in place.
	reloadedForum, err := service.ForumByDisplayID(ctx, f.DisplayID)
	if err != nil {
		t.Fatalf("reload forum: %v", err)
	}
	if len(reloadedForum.TopicIDs) != 1 || reloadedForum.TopicIDs[0] != topic.ID {
		t.Errorf("forum topic list not updated: %v", reloadedForum.TopicIDs)
	}
	if reloadedForum.LastPostID != post.ID {
		t.Errorf("expected forum lastPost %s, got %s", post.ID, reloadedForum.LastPostID)
	}

	reloadedUser, err := service.UserByDisplayID(ctx, user.DisplayID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if len(reloadedUser.PostIDs) != 1 {
		t.Errorf("user reverse index not updated: %v", reloadedUser.PostIDs)
	}
}

func TestSequencesAreMonotonic(t *testing.T) {
	ctx := context.Background()
	user := signupUser(t, "seq")

	var prev int64
	for i := 0; i < 3; i++ {
		category, err := service.CreateCategory(ctx, user.ID, forum.CategoryInput{
			Name:        uniqueName("Seq Category"),
			Description: "sequence check",
		})
		if err != nil {
			t.Fatalf("create category: %v", err)
		}
		if category.DisplayID <= prev {
			t.Errorf("display id did not increase: %d after %d", category.DisplayID, prev)
		}
		prev = category.DisplayID
	}
}

func TestCascadeDelete(t *testing.T) {
	ctx := context.Background()
	user := signupUser(t, "cascade")

	category, err := service.CreateCategory(ctx, user.ID, forum.CategoryInput{
		Name:        uniqueName("Doomed Category"),
		Description: "will be removed",
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	f, err := service.CreateForum(ctx, user.ID, forum.ForumInput{
		CategoryID:  category.DisplayID,
		Name:        uniqueName("Doomed Forum"),
		Description: "will be removed",
	})
	if err != nil {
		t.Fatalf("create forum: %v", err)
	}
	topic, err := service.CreateTopic(ctx, user.ID, forum.TopicInput{
		ForumID:     f.DisplayID,
		Name:        uniqueName("Doomed Topic"),
		Description: "will be removed",
	})
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	post, err := service.CreatePost(ctx, user.ID, forum.PostInput{
		TopicID:     topic.DisplayID,
		Name:        uniqueName("Doomed Post"),
		Description: "will be removed",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if err := service.DeleteCategory(ctx, user.ID, category.DisplayID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	checks := []struct {
		kind string
		load func() error
	}{
		{"category", func() error { _, err := service.CategoryByDisplayID(ctx, category.DisplayID); return err }},
		{"forum", func() error { _, err := service.ForumByDisplayID(ctx, f.DisplayID); return err }},
		{"topic", func() error { _, err := service.TopicByDisplayID(ctx, topic.DisplayID); return err }},
		{"post", func() error { _, err := service.PostByDisplayID(ctx, post.DisplayID); return err }},
	}
	for _, check := range checks {
		if err := check.load(); !errors.Is(err, forum.ErrNotFound) {
			t.Errorf("expected %s to be gone, got %v", check.kind, err)
		}
	}

	reloadedUser, err := service.UserByDisplayID(ctx, user.DisplayID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if len(reloadedUser.CategoryIDs) != 0 || len(reloadedUser.PostIDs) != 0 {
		t.Errorf("reverse index not repaired: categories=%v posts=%v",
			reloadedUser.CategoryIDs, reloadedUser.PostIDs)
	}
}

func TestLastPostFallsBack(t *testing.T) {
	ctx := context.Background()
	user := signupUser(t, "lastpost")

	category, err := service.CreateCategory(ctx, user.ID, forum.CategoryInput{
		Name:        uniqueName("LastPost Category"),
		Description: "shortcut repair",
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	f, err := service.CreateForum(ctx, user.ID, forum.ForumInput{
		CategoryID:  category.DisplayID,
		Name:        uniqueName("LastPost Forum"),
		Description: "shortcut repair",
	})
	if err != nil {
		t.Fatalf("create forum: %v", err)
	}
	topic, err := service.CreateTopic(ctx, user.ID, forum.TopicInput{
		ForumID:     f.DisplayID,
		Name:        uniqueName("LastPost Topic"),
		Description: "shortcut repair",
	})
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}

	first, err := service.CreatePost(ctx, user.ID, forum.PostInput{
		TopicID: topic.DisplayID, Name: uniqueName("First"), Description: "older post",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	second, err := service.CreatePost(ctx, user.ID, forum.PostInput{
		TopicID: topic.DisplayID, Name: uniqueName("Second"), Description: "newer post",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if err := service.DeletePost(ctx, user.ID, second.DisplayID); err != nil {
		t.Fatalf("delete post: %v", err)
	}

	reloadedTopic, err := service.TopicByDisplayID(ctx, topic.DisplayID)
	if err != nil {
		t.Fatalf("reload topic: %v", err)
	}
	if reloadedTopic.LastPostID != first.ID {
		t.Errorf("expected topic lastPost %s, got %s", first.ID, reloadedTopic.LastPostID)
	}

	reloadedForum, err := service.ForumByDisplayID(ctx, f.DisplayID)
	if err != nil {
		t.Fatalf("reload forum: %v", err)
	}
	if reloadedForum.LastPostID != first.ID {
		t.Errorf("expected forum lastPost %s, got %s", first.ID, reloadedForum.LastPostID)
	}
}
