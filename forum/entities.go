// Package forum implements the arbor domain core: the denormalized
// Category > Forum > Topic > Post hierarchy, the cascade-deletion and
// reference-repair logic, and the listing/aggregation views.
package forum

import "time"

// Counter names for the per-entity-type display ID sequences.
const (
	CounterCategory = "categoryID"
	CounterForum    = "forumID"
	CounterTopic    = "topicID"
	CounterPost     = "postID"
	CounterUser     = "userID"
)

// Attribute names for reference lists and shortcut pointers.
const (
	attrCategoryIDs = "category_ids"
	attrForumIDs    = "forum_ids"
	attrTopicIDs    = "topic_ids"
	attrPostIDs     = "post_ids"
	attrLastPostID  = "last_post_id"
)

// Tables holds the collection names for each entity type.
type Tables struct {
	Categories string
	Forums     string
	Topics     string
	Posts      string
	Users      string
}

// DefaultTables returns the default collection names.
func DefaultTables() Tables {
	return Tables{
		Categories: "categories",
		Forums:     "forums",
		Topics:     "topics",
		Posts:      "posts",
		Users:      "users",
	}
}

// Category is the top of the hierarchy. ForumIDs holds the internal
// ids of exactly the forums whose CategoryID points back at it.
type Category struct {
	ID          string    `dynamodbav:"id" json:"_id"`
	DisplayID   int64     `dynamodbav:"display_id" json:"id"`
	Name        string    `dynamodbav:"name" json:"name"`
	Description string    `dynamodbav:"description" json:"description"`
	Slug        string    `dynamodbav:"slug" json:"slug"`
	CreatorID   string    `dynamodbav:"creator_id" json:"creator"`
	ForumIDs    []string  `dynamodbav:"forum_ids" json:"forums"`
	Views       int64     `dynamodbav:"views" json:"views"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// Forum groups topics under a category. LastPostID caches the most
// recently created post anywhere beneath it; absent while the subtree
// holds no posts.
type Forum struct {
	ID          string    `dynamodbav:"id" json:"_id"`
	DisplayID   int64     `dynamodbav:"display_id" json:"id"`
	Name        string    `dynamodbav:"name" json:"name"`
	Description string    `dynamodbav:"description" json:"description"`
	Slug        string    `dynamodbav:"slug" json:"slug"`
	CreatorID   string    `dynamodbav:"creator_id" json:"creator"`
	CategoryID  string    `dynamodbav:"category_id" json:"category"`
	TopicIDs    []string  `dynamodbav:"topic_ids" json:"topics"`
	Views       int64     `dynamodbav:"views" json:"views"`
	LastPostID  string    `dynamodbav:"last_post_id,omitempty" json:"lastPost,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// Topic groups posts under a forum.
type Topic struct {
	ID          string    `dynamodbav:"id" json:"_id"`
	DisplayID   int64     `dynamodbav:"display_id" json:"id"`
	Name        string    `dynamodbav:"name" json:"name"`
	Description string    `dynamodbav:"description" json:"description"`
	Slug        string    `dynamodbav:"slug" json:"slug"`
	CreatorID   string    `dynamodbav:"creator_id" json:"creator"`
	ForumID     string    `dynamodbav:"forum_id" json:"forum"`
	PostIDs     []string  `dynamodbav:"post_ids" json:"posts"`
	Views       int64     `dynamodbav:"views" json:"views"`
	LastPostID  string    `dynamodbav:"last_post_id,omitempty" json:"lastPost,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// Post is the leaf entity.
type Post struct {
	ID          string    `dynamodbav:"id" json:"_id"`
	DisplayID   int64     `dynamodbav:"display_id" json:"id"`
	Name        string    `dynamodbav:"name" json:"name"`
	Description string    `dynamodbav:"description" json:"description"`
	Slug        string    `dynamodbav:"slug" json:"slug"`
	CreatorID   string    `dynamodbav:"creator_id" json:"creator"`
	TopicID     string    `dynamodbav:"topic_id" json:"topic"`
	Replies     int64     `dynamodbav:"replies" json:"replies"`
	Views       int64     `dynamodbav:"views" json:"views"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// User carries the reverse index: per-type lists of the ids of every
// entity this user created.
type User struct {
	ID          string    `dynamodbav:"id" json:"_id"`
	DisplayID   int64     `dynamodbav:"display_id" json:"id"`
	Email       string    `dynamodbav:"email" json:"email"`
	Password    string    `dynamodbav:"password" json:"-"`
	Name        string    `dynamodbav:"name" json:"name"`
	Role        string    `dynamodbav:"role" json:"role"`
	Rank        string    `dynamodbav:"rank" json:"rank"`
	Location    string    `dynamodbav:"location,omitempty" json:"location,omitempty"`
	CategoryIDs []string  `dynamodbav:"category_ids" json:"categories"`
	ForumIDs    []string  `dynamodbav:"forum_ids" json:"forums"`
	TopicIDs    []string  `dynamodbav:"topic_ids" json:"topics"`
	PostIDs     []string  `dynamodbav:"post_ids" json:"posts"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}
