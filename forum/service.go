package forum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/arbor/internal/slug"
	"github.com/jacentio/arbor/store"
)

// Service implements the forum operations on top of a document store.
// A single logical operation spans multiple independent atomic writes
// with no surrounding transaction; a failed intermediate write is
// surfaced to the caller even though earlier writes committed.
type Service struct {
	store  store.Store
	tables Tables
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(s store.Store, tables Tables, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		tables: tables,
		logger: logger,
	}
}

// --- Input types ---

type CategoryInput struct {
	Name        string
	Description string
}

type ForumInput struct {
	CategoryID  int64
	Name        string
	Description string
}

type TopicInput struct {
	ForumID     int64
	Name        string
	Description string
}

type PostInput struct {
	TopicID     int64
	Name        string
	Description string
}

type SignupInput struct {
	Email        string
	PasswordHash string
	Name         string
}

type UserUpdateInput struct {
	Name     string
	Rank     string
	Location string
}

// --- Creation (denormalization engine) ---

// CreateCategory persists a new category and links it into the
// creator's reverse index.
func (s *Service) CreateCategory(ctx context.Context, creatorID string, in CategoryInput) (*Category, error) {
	creator, err := s.userByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, s.tables.Categories, in.Name); err != nil {
		return nil, err
	}

	seq, err := s.store.Increment(ctx, CounterCategory)
	if err != nil {
		return nil, fmt.Errorf("assign category id: %w", err)
	}
	now := time.Now().UTC()
	category := &Category{
		ID:          uuid.NewString(),
		DisplayID:   seq,
		Name:        in.Name,
		Description: in.Description,
		Slug:        slug.Make(in.Name),
		CreatorID:   creator.ID,
		ForumIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.insert(ctx, s.tables.Categories, category); err != nil {
		return nil, err
	}
	if err := s.store.Push(ctx, s.tables.Users, creator.ID, attrCategoryIDs, category.ID); err != nil {
		return nil, fmt.Errorf("link category to creator: %w", err)
	}
	return category, nil
}

// CreateForum validates the parent category, persists the forum, and
// links it into the category's child list and the creator's reverse
// index. The parent is confirmed before the forum is persisted so no
// orphan record can be created.
func (s *Service) CreateForum(ctx context.Context, creatorID string, in ForumInput) (*Forum, error) {
	category, err := s.CategoryByDisplayID(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	creator, err := s.userByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, s.tables.Forums, in.Name); err != nil {
		return nil, err
	}

	seq, err := s.store.Increment(ctx, CounterForum)
	if err != nil {
		return nil, fmt.Errorf("assign forum id: %w", err)
	}
	now := time.Now().UTC()
	forum := &Forum{
		ID:          uuid.NewString(),
		DisplayID:   seq,
		Name:        in.Name,
		Description: in.Description,
		Slug:        slug.Make(in.Name),
		CreatorID:   creator.ID,
		CategoryID:  category.ID,
		TopicIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.insert(ctx, s.tables.Forums, forum); err != nil {
		return nil, err
	}
	if err := s.store.Push(ctx, s.tables.Categories, category.ID, attrForumIDs, forum.ID); err != nil {
		return nil, fmt.Errorf("link forum to category: %w", err)
	}
	if err := s.store.Push(ctx, s.tables.Users, creator.ID, attrForumIDs, forum.ID); err != nil {
		return nil, fmt.Errorf("link forum to creator: %w", err)
	}
	return forum, nil
}

// CreateTopic validates the parent forum, persists the topic, and
// links it into the forum's child list and the creator's reverse
// index.
func (s *Service) CreateTopic(ctx context.Context, creatorID string, in TopicInput) (*Topic, error) {
	forum, err := s.ForumByDisplayID(ctx, in.ForumID)
	if err != nil {
		return nil, err
	}
	creator, err := s.userByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, s.tables.Topics, in.Name); err != nil {
		return nil, err
	}

	seq, err := s.store.Increment(ctx, CounterTopic)
	if err != nil {
		return nil, fmt.Errorf("assign topic id: %w", err)
	}
	now := time.Now().UTC()
	topic := &Topic{
		ID:          uuid.NewString(),
		DisplayID:   seq,
		Name:        in.Name,
		Description: in.Description,
		Slug:        slug.Make(in.Name),
		CreatorID:   creator.ID,
		ForumID:     forum.ID,
		PostIDs:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.insert(ctx, s.tables.Topics, topic); err != nil {
		return nil, err
	}
	if err := s.store.Push(ctx, s.tables.Forums, forum.ID, attrTopicIDs, topic.ID); err != nil {
		return nil, fmt.Errorf("link topic to forum: %w", err)
	}
	if err := s.store.Push(ctx, s.tables.Users, creator.ID, attrTopicIDs, topic.ID); err != nil {
		return nil, fmt.Errorf("link topic to creator: %w", err)
	}
	return topic, nil
}

// CreatePost validates the parent topic, persists the post, links it
// everywhere, and overwrites the lastPost shortcut on both the topic
// and the owning forum. The newest post always wins, unconditionally.
func (s *Service) CreatePost(ctx context.Context, creatorID string, in PostInput) (*Post, error) {
	topic, err := s.TopicByDisplayID(ctx, in.TopicID)
	if err != nil {
		return nil, err
	}
	forum, err := s.forumByID(ctx, topic.ForumID)
	if err != nil {
		return nil, err
	}
	creator, err := s.userByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	seq, err := s.store.Increment(ctx, CounterPost)
	if err != nil {
		return nil, fmt.Errorf("assign post id: %w", err)
	}
	now := time.Now().UTC()
	post := &Post{
		ID:          uuid.NewString(),
		DisplayID:   seq,
		Name:        in.Name,
		Description: in.Description,
		Slug:        slug.Make(in.Name),
		CreatorID:   creator.ID,
		TopicID:     topic.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.insert(ctx, s.tables.Posts, post); err != nil {
		return nil, err
	}
	if err := s.store.Push(ctx, s.tables.Users, creator.ID, attrPostIDs, post.ID); err != nil {
		return nil, fmt.Errorf("link post to creator: %w", err)
	}
	if err := s.store.Push(ctx, s.tables.Topics, topic.ID, attrPostIDs, post.ID); err != nil {
		return nil, fmt.Errorf("link post to topic: %w", err)
	}
	if err := s.store.Update(ctx, s.tables.Topics, topic.ID, map[string]types.AttributeValue{
		attrLastPostID: store.S(post.ID),
	}); err != nil {
		return nil, fmt.Errorf("set topic last post: %w", err)
	}
	if err := s.store.Update(ctx, s.tables.Forums, forum.ID, map[string]types.AttributeValue{
		attrLastPostID: store.S(post.ID),
	}); err != nil {
		return nil, fmt.Errorf("set forum last post: %w", err)
	}
	return post, nil
}

// CreateUser persists a new user after checking email uniqueness.
// PasswordHash must already be hashed; the service never sees
// plaintext credentials.
func (s *Service) CreateUser(ctx context.Context, in SignupInput) (*User, error) {
	_, err := s.store.Find(ctx, s.tables.Users, "email", store.S(in.Email))
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	seq, err := s.store.Increment(ctx, CounterUser)
	if err != nil {
		return nil, fmt.Errorf("assign user id: %w", err)
	}
	now := time.Now().UTC()
	user := &User{
		ID:          uuid.NewString(),
		DisplayID:   seq,
		Email:       in.Email,
		Password:    in.PasswordHash,
		Name:        in.Name,
		Role:        "user",
		Rank:        "new user",
		CategoryIDs: []string{},
		ForumIDs:    []string{},
		TopicIDs:    []string{},
		PostIDs:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.insert(ctx, s.tables.Users, user); err != nil {
		return nil, err
	}
	return user, nil
}

// --- Single-entity reads ---

func (s *Service) CategoryByDisplayID(ctx context.Context, displayID int64) (*Category, error) {
	var category Category
	if err := s.findByDisplayID(ctx, s.tables.Categories, displayID, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Service) ForumByDisplayID(ctx context.Context, displayID int64) (*Forum, error) {
	var forum Forum
	if err := s.findByDisplayID(ctx, s.tables.Forums, displayID, &forum); err != nil {
		return nil, err
	}
	return &forum, nil
}

func (s *Service) TopicByDisplayID(ctx context.Context, displayID int64) (*Topic, error) {
	var topic Topic
	if err := s.findByDisplayID(ctx, s.tables.Topics, displayID, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

func (s *Service) PostByDisplayID(ctx context.Context, displayID int64) (*Post, error) {
	var post Post
	if err := s.findByDisplayID(ctx, s.tables.Posts, displayID, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Service) UserByDisplayID(ctx context.Context, displayID int64) (*User, error) {
	var user User
	if err := s.findByDisplayID(ctx, s.tables.Users, displayID, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByEmail looks a user up for login.
func (s *Service) UserByEmail(ctx context.Context, email string) (*User, error) {
	item, err := s.store.Find(ctx, s.tables.Users, "email", store.S(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var user User
	if err := attributevalue.UnmarshalMap(item, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ReadPost returns a post by display ID and counts the view.
func (s *Service) ReadPost(ctx context.Context, displayID int64) (*Post, error) {
	post, err := s.PostByDisplayID(ctx, displayID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Add(ctx, s.tables.Posts, post.ID, "views", 1); err != nil {
		return nil, fmt.Errorf("count post view: %w", err)
	}
	post.Views++
	return post, nil
}

// --- Edits (name/description only) ---

// UpdateCategory edits a category's name and description. Only the
// creator may edit. The slug follows the name.
func (s *Service) UpdateCategory(ctx context.Context, requesterID string, displayID int64, in CategoryInput) (*Category, error) {
	category, err := s.CategoryByDisplayID(ctx, displayID)
	if err != nil {
		return nil, err
	}
	if category.CreatorID != requesterID {
		return nil, ErrForbidden
	}
	if in.Name != category.Name {
		if err := s.ensureNameFree(ctx, s.tables.Categories, in.Name); err != nil {
			return nil, err
		}
	}
	category.Name = in.Name
	category.Description = in.Description
	category.Slug = slug.Make(in.Name)
	category.UpdatedAt = time.Now().UTC()
	if err := s.updateNamed(ctx, s.tables.Categories, category.ID, in.Name, in.Description, category.Slug, category.UpdatedAt); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateForum edits a forum's name and description.
func (s *Service) UpdateForum(ctx context.Context, requesterID string, displayID int64, in ForumInput) (*Forum, error) {
	forum, err := s.ForumByDisplayID(ctx, displayID)
	if err != nil {
		return nil, err
	}
	if forum.CreatorID != requesterID {
		return nil, ErrForbidden
	}
	if in.Name != forum.Name {
		if err := s.ensureNameFree(ctx, s.tables.Forums, in.Name); err != nil {
			return nil, err
		}
	}
	forum.Name = in.Name
	forum.Description = in.Description
	forum.Slug = slug.Make(in.Name)
	forum.UpdatedAt = time.Now().UTC()
	if err := s.updateNamed(ctx, s.tables.Forums, forum.ID, in.Name, in.Description, forum.Slug, forum.UpdatedAt); err != nil {
		return nil, err
	}
	return forum, nil
}

// UpdateTopic edits a topic's name and description.
func (s *Service) UpdateTopic(ctx context.Context, requesterID string, displayID int64, in TopicInput) (*Topic, error) {
	topic, err := s.TopicByDisplayID(ctx, displayID)
	if err != nil {
		return nil, err
	}
	if topic.CreatorID != requesterID {
		return nil, ErrForbidden
	}
	if in.Name != topic.Name {
		if err := s.ensureNameFree(ctx, s.tables.Topics, in.Name); err != nil {
			return nil, err
		}
	}
	topic.Name = in.Name
	topic.Description = in.Description
	topic.Slug = slug.Make(in.Name)
	topic.UpdatedAt = time.Now().UTC()
	if err := s.updateNamed(ctx, s.tables.Topics, topic.ID, in.Name, in.Description, topic.Slug, topic.UpdatedAt); err != nil {
		return nil, err
	}
	return topic, nil
}

// UpdatePost edits a post's name and description. Post names are not
// unique, so no name check applies.
func (s *Service) UpdatePost(ctx context.Context, requesterID string, displayID int64, in PostInput) (*Post, error) {
	post, err := s.PostByDisplayID(ctx, displayID)
	if err != nil {
		return nil, err
	}
	if post.CreatorID != requesterID {
		return nil, ErrForbidden
	}
	post.Name = in.Name
	post.Description = in.Description
	post.Slug = slug.Make(in.Name)
	post.UpdatedAt = time.Now().UTC()
	if err := s.updateNamed(ctx, s.tables.Posts, post.ID, in.Name, in.Description, post.Slug, post.UpdatedAt); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdateUser edits a user's profile. Users may only edit themselves.
func (s *Service) UpdateUser(ctx context.Context, requesterID string, displayID int64, in UserUpdateInput) (*User, error) {
	user, err := s.UserByDisplayID(ctx, displayID)
	if err != nil {
		return nil, err
	}
	if user.ID != requesterID {
		return nil, ErrForbidden
	}
	user.Name = in.Name
	user.Rank = in.Rank
	user.Location = in.Location
	user.UpdatedAt = time.Now().UTC()
	set := map[string]types.AttributeValue{
		"name":       store.S(in.Name),
		"rank":       store.S(in.Rank),
		"location":   store.S(in.Location),
		"updated_at": avTime(user.UpdatedAt),
	}
	if err := s.store.Update(ctx, s.tables.Users, user.ID, set); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user record. Content the user created stays in
// place; only the account itself is removed.
func (s *Service) DeleteUser(ctx context.Context, requesterID string, displayID int64) error {
	user, err := s.UserByDisplayID(ctx, displayID)
	if err != nil {
		return err
	}
	if user.ID != requesterID {
		return ErrForbidden
	}
	return s.store.Delete(ctx, s.tables.Users, user.ID)
}

// --- Internal helpers ---

func (s *Service) insert(ctx context.Context, table string, entity any) error {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}
	return s.store.Insert(ctx, table, item)
}

func (s *Service) findByDisplayID(ctx context.Context, table string, displayID int64, out any) error {
	item, err := s.store.Find(ctx, table, "display_id", store.N(displayID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return attributevalue.UnmarshalMap(item, out)
}

func (s *Service) userByID(ctx context.Context, id string) (*User, error) {
	item, err := s.store.Get(ctx, s.tables.Users, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var user User
	if err := attributevalue.UnmarshalMap(item, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) forumByID(ctx context.Context, id string) (*Forum, error) {
	item, err := s.store.Get(ctx, s.tables.Forums, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var forum Forum
	if err := attributevalue.UnmarshalMap(item, &forum); err != nil {
		return nil, err
	}
	return &forum, nil
}

func (s *Service) topicByID(ctx context.Context, id string) (*Topic, error) {
	item, err := s.store.Get(ctx, s.tables.Topics, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var topic Topic
	if err := attributevalue.UnmarshalMap(item, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// ensureNameFree enforces per-type name uniqueness (case-sensitive).
func (s *Service) ensureNameFree(ctx context.Context, table, name string) error {
	_, err := s.store.Find(ctx, table, "name", store.S(name))
	switch {
	case err == nil:
		return ErrDuplicateName
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *Service) updateNamed(ctx context.Context, table, id, name, description, slugValue string, updatedAt time.Time) error {
	return s.store.Update(ctx, table, id, map[string]types.AttributeValue{
		"name":        store.S(name),
		"description": store.S(description),
		"slug":        store.S(slugValue),
		"updated_at":  avTime(updatedAt),
	})
}

func avTime(t time.Time) types.AttributeValue {
	v, _ := attributevalue.Marshal(t)
	return v
}

func avSet(field, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{field: store.S(value)}
}
