package forum

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// The listing engine reconstructs the read views the original
// aggregation pipeline produced, as explicit in-process joins: fetch
// the parents, fetch the referenced children and creators by id, and
// compute the aggregates in memory.

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// recentPostCount is the size of the global latest-posts feed on
	// the category listing.
	recentPostCount = 10
)

// clampPerPage resolves a requested page size. Sizes clamp into
// [1, maxPageSize]; limit < 0 asks for everything and is honored only
// while the collection total stays under maxPageSize.
func clampPerPage(limit, total int) int {
	switch {
	case limit >= 1 && limit <= maxPageSize:
		return limit
	case limit > maxPageSize:
		return maxPageSize
	case limit < 0 && total < maxPageSize:
		return total
	default:
		return defaultPageSize
	}
}

// pageBounds returns the half-open slice bounds for a page.
func pageBounds(total, page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return start, end
}

// --- View types ---

// UserRef is the creator projection: id, name, and (where the original
// projected it) email.
type UserRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// TopicRef is the owning-topic summary attached to resolved posts.
type TopicRef struct {
	ID          string `json:"_id"`
	DisplayID   int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Slug        string `json:"slug,omitempty"`
}

// PostView is a post with its creator (and optionally its owning
// topic) resolved.
type PostView struct {
	Post
	Creator *UserRef  `json:"creator,omitempty"`
	Topic   *TopicRef `json:"topic,omitempty"`
}

// ForumView is a forum with creator, lastPost, and aggregate totals
// resolved. TotalPosts sums the post-list sizes of the forum's topics;
// TotalTopics is the child-list cardinality.
type ForumView struct {
	Forum
	Creator     *UserRef  `json:"creator,omitempty"`
	LastPost    *PostView `json:"lastPost,omitempty"`
	TotalTopics int       `json:"totalTopics"`
	TotalPosts  int       `json:"totalPosts"`
}

// CategoryView is a category with creator and (paginated) forums
// resolved two levels deep.
type CategoryView struct {
	Category
	Creator *UserRef    `json:"creator,omitempty"`
	Forums  []ForumView `json:"forums"`
}

// CategoriesPage is the category listing: one page of categories plus
// the global feed of most recent posts.
type CategoriesPage struct {
	Categories []CategoryView `json:"categories"`
	TotalItems int            `json:"totalItems"`
	LastPosts  []PostView     `json:"lastPosts"`
}

// ForumsPage is one page of resolved forums.
type ForumsPage struct {
	Forums     []ForumView `json:"forums"`
	TotalItems int         `json:"totalItems"`
}

// TopicPostsPage is one page of a topic's posts plus the topic itself.
type TopicPostsPage struct {
	Posts      []PostView `json:"posts"`
	TotalItems int        `json:"totalItems"`
	Topic      *Topic     `json:"topic"`
}

// PostsPage is one page of resolved posts from the global listing.
type PostsPage struct {
	Posts      []PostView `json:"posts"`
	TotalItems int        `json:"totalItems"`
}

// UsersPage is one page of users. Password hashes never serialize.
type UsersPage struct {
	Users      []User `json:"users"`
	TotalItems int    `json:"totalItems"`
}

// ListQuery carries the common listing parameters. Sort is
// "field_direction" (for example "createdAt_desc"); unknown fields
// fall back to creation time.
type ListQuery struct {
	Page     int
	Limit    int
	Keywords string
	Sort     string
}

// --- joined lookup tables ---

type joined struct {
	users  map[string]*User
	forums map[string]*Forum
	topics map[string]*Topic
	posts  map[string]*Post
}

func (s *Service) loadJoined(ctx context.Context, withForums, withTopics, withPosts bool) (*joined, error) {
	j := &joined{
		users:  map[string]*User{},
		forums: map[string]*Forum{},
		topics: map[string]*Topic{},
		posts:  map[string]*Post{},
	}
	if err := scanInto(ctx, s, s.tables.Users, j.users, func(u *User) string { return u.ID }); err != nil {
		return nil, err
	}
	if withForums {
		if err := scanInto(ctx, s, s.tables.Forums, j.forums, func(f *Forum) string { return f.ID }); err != nil {
			return nil, err
		}
	}
	if withTopics {
		if err := scanInto(ctx, s, s.tables.Topics, j.topics, func(t *Topic) string { return t.ID }); err != nil {
			return nil, err
		}
	}
	if withPosts {
		if err := scanInto(ctx, s, s.tables.Posts, j.posts, func(p *Post) string { return p.ID }); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func scanInto[T any](ctx context.Context, s *Service, table string, into map[string]*T, key func(*T) string) error {
	items, err := s.store.Scan(ctx, table)
	if err != nil {
		return fmt.Errorf("scan %s: %w", table, err)
	}
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return err
		}
		into[key(&v)] = &v
	}
	return nil
}

func (j *joined) creatorRef(id string, withEmail bool) *UserRef {
	user, ok := j.users[id]
	if !ok {
		return nil
	}
	ref := &UserRef{ID: user.ID, Name: user.Name}
	if withEmail {
		ref.Email = user.Email
	}
	return ref
}

func (j *joined) topicRef(id string) *TopicRef {
	topic, ok := j.topics[id]
	if !ok {
		return nil
	}
	return &TopicRef{
		ID:          topic.ID,
		DisplayID:   topic.DisplayID,
		Name:        topic.Name,
		Description: topic.Description,
		Slug:        topic.Slug,
	}
}

// postView resolves a post's creator and owning topic.
func (j *joined) postView(post *Post, withEmail, withTopic bool) PostView {
	view := PostView{Post: *post, Creator: j.creatorRef(post.CreatorID, withEmail)}
	if withTopic {
		view.Topic = j.topicRef(post.TopicID)
	}
	return view
}

// forumView resolves a forum's creator, lastPost, and totals.
func (j *joined) forumView(forum *Forum, withEmail bool) ForumView {
	view := ForumView{
		Forum:       *forum,
		Creator:     j.creatorRef(forum.CreatorID, withEmail),
		TotalTopics: len(forum.TopicIDs),
	}
	for _, topicID := range forum.TopicIDs {
		if topic, ok := j.topics[topicID]; ok {
			view.TotalPosts += len(topic.PostIDs)
		}
	}
	if forum.LastPostID != "" {
		if post, ok := j.posts[forum.LastPostID]; ok {
			pv := j.postView(post, false, true)
			view.LastPost = &pv
		}
	}
	return view
}

// --- Listings ---

// ListCategories builds the category index: a page of categories with
// forums resolved two levels deep (creator projection, totalTopics,
// totalPosts) plus the global feed of the most recent posts.
func (s *Service) ListCategories(ctx context.Context, q ListQuery) (*CategoriesPage, error) {
	var categories []*Category
	if err := s.scanSorted(ctx, s.tables.Categories, &categories); err != nil {
		return nil, err
	}
	j, err := s.loadJoined(ctx, true, true, true)
	if err != nil {
		return nil, err
	}

	total := len(categories)
	perPage := clampPerPage(q.Limit, total)
	start, end := pageBounds(total, q.Page, perPage)

	page := &CategoriesPage{
		Categories: make([]CategoryView, 0, end-start),
		TotalItems: total,
		LastPosts:  j.recentPosts(recentPostCount),
	}
	for _, category := range categories[start:end] {
		view := CategoryView{
			Category: *category,
			Creator:  j.creatorRef(category.CreatorID, true),
			Forums:   make([]ForumView, 0, len(category.ForumIDs)),
		}
		for _, forumID := range category.ForumIDs {
			forum, ok := j.forums[forumID]
			if !ok {
				continue
			}
			view.Forums = append(view.Forums, j.forumView(forum, true))
		}
		page.Categories = append(page.Categories, view)
	}
	return page, nil
}

// GetCategory returns a single category with one page of its forums
// resolved.
func (s *Service) GetCategory(ctx context.Context, displayID int64, q ListQuery) (*CategoryView, error) {
	category, err := s.CategoryByDisplayID(ctx, displayID)
	if err != nil {
		return nil, err
	}
	j, err := s.loadJoined(ctx, true, true, true)
	if err != nil {
		return nil, err
	}

	total := len(category.ForumIDs)
	perPage := clampPerPage(q.Limit, total)
	start, end := pageBounds(total, q.Page, perPage)

	view := &CategoryView{
		Category: *category,
		Creator:  j.creatorRef(category.CreatorID, false),
		Forums:   make([]ForumView, 0, end-start),
	}
	for _, forumID := range category.ForumIDs[start:end] {
		forum, ok := j.forums[forumID]
		if !ok {
			continue
		}
		view.Forums = append(view.Forums, j.forumView(forum, false))
	}
	return view, nil
}

// ListForums returns one page of all forums with creators, totals, and
// lastPost resolved.
func (s *Service) ListForums(ctx context.Context, q ListQuery) (*ForumsPage, error) {
	var forums []*Forum
	if err := s.scanSorted(ctx, s.tables.Forums, &forums); err != nil {
		return nil, err
	}
	j, err := s.loadJoined(ctx, false, true, true)
	if err != nil {
		return nil, err
	}

	total := len(forums)
	perPage := clampPerPage(q.Limit, total)
	start, end := pageBounds(total, q.Page, perPage)

	page := &ForumsPage{Forums: make([]ForumView, 0, end-start), TotalItems: total}
	for _, forum := range forums[start:end] {
		page.Forums = append(page.Forums, j.forumView(forum, false))
	}
	return page, nil
}

// ListTopicPosts returns one page of a topic's posts, in child-list
// order, with creators resolved.
func (s *Service) ListTopicPosts(ctx context.Context, topicDisplayID int64, q ListQuery) (*TopicPostsPage, error) {
	topic, err := s.TopicByDisplayID(ctx, topicDisplayID)
	if err != nil {
		return nil, err
	}
	j, err := s.loadJoined(ctx, false, false, true)
	if err != nil {
		return nil, err
	}

	total := len(topic.PostIDs)
	perPage := clampPerPage(q.Limit, total)
	start, end := pageBounds(total, q.Page, perPage)

	page := &TopicPostsPage{
		Posts:      make([]PostView, 0, end-start),
		TotalItems: total,
		Topic:      topic,
	}
	for _, postID := range topic.PostIDs[start:end] {
		post, ok := j.posts[postID]
		if !ok {
			continue
		}
		page.Posts = append(page.Posts, j.postView(post, false, false))
	}
	return page, nil
}

// ListPosts returns one page of all posts, filtered by a description
// keyword, sorted per the query, with creator and topic resolved.
func (s *Service) ListPosts(ctx context.Context, q ListQuery) (*PostsPage, error) {
	j, err := s.loadJoined(ctx, false, true, true)
	if err != nil {
		return nil, err
	}

	posts := make([]*Post, 0, len(j.posts))
	for _, post := range j.posts {
		if q.Keywords != "" && !strings.Contains(post.Description, q.Keywords) {
			continue
		}
		posts = append(posts, post)
	}
	sortPosts(posts, q.Sort)

	total := len(posts)
	perPage := clampPerPage(q.Limit, total)
	start, end := pageBounds(total, q.Page, perPage)

	page := &PostsPage{Posts: make([]PostView, 0, end-start), TotalItems: total}
	for _, post := range posts[start:end] {
		page.Posts = append(page.Posts, j.postView(post, false, true))
	}
	return page, nil
}

// ListUsers returns one page of users, filtered by a name keyword.
func (s *Service) ListUsers(ctx context.Context, q ListQuery) (*UsersPage, error) {
	items, err := s.store.Scan(ctx, s.tables.Users)
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}

	users := make([]User, 0, len(items))
	for _, item := range items {
		var user User
		if err := attributevalue.UnmarshalMap(item, &user); err != nil {
			return nil, err
		}
		if q.Keywords != "" && !strings.Contains(user.Name, q.Keywords) {
			continue
		}
		users = append(users, user)
	}
	sortUsers(users, q.Sort)

	total := len(users)
	perPage := clampPerPage(q.Limit, total)
	start, end := pageBounds(total, q.Page, perPage)

	return &UsersPage{Users: users[start:end], TotalItems: total}, nil
}

// recentPosts returns the n most recently created posts system-wide,
// with creator and topic resolved.
func (j *joined) recentPosts(n int) []PostView {
	posts := make([]*Post, 0, len(j.posts))
	for _, post := range j.posts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(a, b int) bool {
		if !posts[a].CreatedAt.Equal(posts[b].CreatedAt) {
			return posts[a].CreatedAt.After(posts[b].CreatedAt)
		}
		return posts[a].DisplayID > posts[b].DisplayID
	})
	if len(posts) > n {
		posts = posts[:n]
	}
	views := make([]PostView, 0, len(posts))
	for _, post := range posts {
		views = append(views, j.postView(post, true, true))
	}
	return views
}

// scanSorted loads a whole table sorted by display ID ascending.
func (s *Service) scanSorted(ctx context.Context, table string, out any) error {
	switch v := out.(type) {
	case *[]*Category:
		if err := scanAll(ctx, s, table, v); err != nil {
			return err
		}
		sort.Slice(*v, func(a, b int) bool { return (*v)[a].DisplayID < (*v)[b].DisplayID })
	case *[]*Forum:
		if err := scanAll(ctx, s, table, v); err != nil {
			return err
		}
		sort.Slice(*v, func(a, b int) bool { return (*v)[a].DisplayID < (*v)[b].DisplayID })
	default:
		return fmt.Errorf("scanSorted: unsupported type %T", out)
	}
	return nil
}

func scanAll[T any](ctx context.Context, s *Service, table string, out *[]*T) error {
	items, err := s.store.Scan(ctx, table)
	if err != nil {
		return fmt.Errorf("scan %s: %w", table, err)
	}
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return err
		}
		*out = append(*out, &v)
	}
	return nil
}

// sortPosts orders posts per a "field_direction" sort key, defaulting
// to newest first.
func sortPosts(posts []*Post, sortKey string) {
	field, desc := parseSort(sortKey)
	sort.Slice(posts, func(a, b int) bool {
		pa, pb := posts[a], posts[b]
		if desc {
			pa, pb = pb, pa
		}
		switch field {
		case "name":
			if pa.Name != pb.Name {
				return pa.Name < pb.Name
			}
		case "views":
			if pa.Views != pb.Views {
				return pa.Views < pb.Views
			}
		case "id":
			return pa.DisplayID < pb.DisplayID
		default: // createdAt
			if !pa.CreatedAt.Equal(pb.CreatedAt) {
				return pa.CreatedAt.Before(pb.CreatedAt)
			}
		}
		return pa.DisplayID < pb.DisplayID
	})
}

func sortUsers(users []User, sortKey string) {
	field, desc := parseSort(sortKey)
	sort.Slice(users, func(a, b int) bool {
		ua, ub := users[a], users[b]
		if desc {
			ua, ub = ub, ua
		}
		switch field {
		case "name":
			if ua.Name != ub.Name {
				return ua.Name < ub.Name
			}
		case "id":
			return ua.DisplayID < ub.DisplayID
		default: // createdAt
			if !ua.CreatedAt.Equal(ub.CreatedAt) {
				return ua.CreatedAt.Before(ub.CreatedAt)
			}
		}
		return ua.DisplayID < ub.DisplayID
	})
}

// parseSort splits "field_direction". Empty and malformed values sort
// by creation time descending.
func parseSort(sortKey string) (field string, desc bool) {
	if sortKey == "" {
		return "createdAt", true
	}
	field, direction, found := strings.Cut(sortKey, "_")
	if !found {
		return field, true
	}
	return field, direction != "asc"
}
