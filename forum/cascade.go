package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/arbor/store"
)

// The cascade engine removes an entity and every descendant, then
// repairs every reference left dangling: parent child lists, user
// reverse-index lists, and the lastPost shortcut pointers.
//
// Descendant ids are collected as one snapshot before anything is
// deleted, so a create racing the delete is either fully in or fully
// out of the cascade. Deletion then proceeds deepest-first: posts,
// topics, forums, and finally the target itself.

// DeletePost removes a post and repairs the topic's and forum's
// lastPost shortcuts if they pointed at it.
func (s *Service) DeletePost(ctx context.Context, requesterID string, displayID int64) error {
	post, err := s.PostByDisplayID(ctx, displayID)
	if err != nil {
		return err
	}
	if post.CreatorID != requesterID {
		return ErrForbidden
	}

	if err := s.store.Delete(ctx, s.tables.Posts, post.ID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := s.store.Pull(ctx, s.tables.Users, post.CreatorID, attrPostIDs, post.ID); err != nil {
		return fmt.Errorf("unlink post from creator: %w", err)
	}

	topic, err := s.topicByID(ctx, post.TopicID)
	if err != nil {
		return fmt.Errorf("load owning topic: %w", err)
	}
	if err := s.store.Pull(ctx, s.tables.Topics, topic.ID, attrPostIDs, post.ID); err != nil {
		return fmt.Errorf("unlink post from topic: %w", err)
	}

	if topic.LastPostID == post.ID {
		siblings := without(topic.PostIDs, post.ID)
		if err := s.resetTopicLastPost(ctx, topic.ID, siblings); err != nil {
			return err
		}
	}

	forum, err := s.forumByID(ctx, topic.ForumID)
	if err != nil {
		return fmt.Errorf("load owning forum: %w", err)
	}
	if forum.LastPostID == post.ID {
		if err := s.recomputeForumLastPost(ctx, forum.ID, setOf(post.ID)); err != nil {
			return err
		}
	}

	s.logger.Info("post deleted", "post", post.ID, "displayId", post.DisplayID)
	return nil
}

// DeleteTopic removes a topic and all its posts, then repairs the
// forum's child list, every user's reverse index, and the forum's
// lastPost if it pointed into the deleted subtree.
func (s *Service) DeleteTopic(ctx context.Context, requesterID string, displayID int64) error {
	topic, err := s.TopicByDisplayID(ctx, displayID)
	if err != nil {
		return err
	}
	if topic.CreatorID != requesterID {
		return ErrForbidden
	}

	// Snapshot the descendants before any deletion.
	postIDs := append([]string{}, topic.PostIDs...)

	if err := s.store.DeleteMany(ctx, s.tables.Posts, postIDs); err != nil {
		return fmt.Errorf("delete topic posts: %w", err)
	}
	if err := s.store.Delete(ctx, s.tables.Topics, topic.ID); err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}

	if err := s.store.Pull(ctx, s.tables.Forums, topic.ForumID, attrTopicIDs, topic.ID); err != nil {
		return fmt.Errorf("unlink topic from forum: %w", err)
	}
	if err := s.store.Pull(ctx, s.tables.Users, topic.CreatorID, attrTopicIDs, topic.ID); err != nil {
		return fmt.Errorf("unlink topic from creator: %w", err)
	}
	if err := s.pullFromAllUsers(ctx, attrPostIDs, postIDs); err != nil {
		return err
	}

	deleted := setOf(postIDs...)
	forum, err := s.forumByID(ctx, topic.ForumID)
	if err != nil {
		return fmt.Errorf("load owning forum: %w", err)
	}
	if deleted[forum.LastPostID] {
		if err := s.recomputeForumLastPost(ctx, forum.ID, deleted); err != nil {
			return err
		}
	}

	s.logger.Info("topic deleted", "topic", topic.ID, "displayId", topic.DisplayID, "posts", len(postIDs))
	return nil
}

// DeleteForum removes a forum and, transitively, all its topics and
// their posts.
func (s *Service) DeleteForum(ctx context.Context, requesterID string, displayID int64) error {
	forum, err := s.ForumByDisplayID(ctx, displayID)
	if err != nil {
		return err
	}
	if forum.CreatorID != requesterID {
		return ErrForbidden
	}

	topicIDs, postIDs, err := s.collectForumDescendants(ctx, forum)
	if err != nil {
		return err
	}

	// Deepest first: posts, then topics, then the forum itself.
	if err := s.store.DeleteMany(ctx, s.tables.Posts, postIDs); err != nil {
		return fmt.Errorf("delete forum posts: %w", err)
	}
	if err := s.store.DeleteMany(ctx, s.tables.Topics, topicIDs); err != nil {
		return fmt.Errorf("delete forum topics: %w", err)
	}
	if err := s.store.Delete(ctx, s.tables.Forums, forum.ID); err != nil {
		return fmt.Errorf("delete forum: %w", err)
	}

	if err := s.store.Pull(ctx, s.tables.Categories, forum.CategoryID, attrForumIDs, forum.ID); err != nil {
		return fmt.Errorf("unlink forum from category: %w", err)
	}
	if err := s.store.Pull(ctx, s.tables.Users, forum.CreatorID, attrForumIDs, forum.ID); err != nil {
		return fmt.Errorf("unlink forum from creator: %w", err)
	}
	if err := s.pullFromAllUsers(ctx, attrTopicIDs, topicIDs); err != nil {
		return err
	}
	if err := s.pullFromAllUsers(ctx, attrPostIDs, postIDs); err != nil {
		return err
	}

	s.logger.Info("forum deleted", "forum", forum.ID, "displayId", forum.DisplayID,
		"topics", len(topicIDs), "posts", len(postIDs))
	return nil
}

// DeleteCategory removes a category and everything beneath it.
func (s *Service) DeleteCategory(ctx context.Context, requesterID string, displayID int64) error {
	category, err := s.CategoryByDisplayID(ctx, displayID)
	if err != nil {
		return err
	}
	if category.CreatorID != requesterID {
		return ErrForbidden
	}

	forumIDs := append([]string{}, category.ForumIDs...)
	var topicIDs, postIDs []string
	for _, forumID := range forumIDs {
		forum, err := s.forumByID(ctx, forumID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // dangling reference, nothing to cascade into
			}
			return err
		}
		ts, ps, err := s.collectForumDescendants(ctx, forum)
		if err != nil {
			return err
		}
		topicIDs = append(topicIDs, ts...)
		postIDs = append(postIDs, ps...)
	}

	if err := s.store.DeleteMany(ctx, s.tables.Posts, postIDs); err != nil {
		return fmt.Errorf("delete category posts: %w", err)
	}
	if err := s.store.DeleteMany(ctx, s.tables.Topics, topicIDs); err != nil {
		return fmt.Errorf("delete category topics: %w", err)
	}
	if err := s.store.DeleteMany(ctx, s.tables.Forums, forumIDs); err != nil {
		return fmt.Errorf("delete category forums: %w", err)
	}
	if err := s.store.Delete(ctx, s.tables.Categories, category.ID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	if err := s.store.Pull(ctx, s.tables.Users, category.CreatorID, attrCategoryIDs, category.ID); err != nil {
		return fmt.Errorf("unlink category from creator: %w", err)
	}
	if err := s.pullFromAllUsers(ctx, attrForumIDs, forumIDs); err != nil {
		return err
	}
	if err := s.pullFromAllUsers(ctx, attrTopicIDs, topicIDs); err != nil {
		return err
	}
	if err := s.pullFromAllUsers(ctx, attrPostIDs, postIDs); err != nil {
		return err
	}

	s.logger.Info("category deleted", "category", category.ID, "displayId", category.DisplayID,
		"forums", len(forumIDs), "topics", len(topicIDs), "posts", len(postIDs))
	return nil
}

// collectForumDescendants snapshots the ids of every topic in the
// forum and every post in those topics.
func (s *Service) collectForumDescendants(ctx context.Context, forum *Forum) (topicIDs, postIDs []string, err error) {
	for _, topicID := range forum.TopicIDs {
		topic, err := s.topicByID(ctx, topicID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		topicIDs = append(topicIDs, topic.ID)
		postIDs = append(postIDs, topic.PostIDs...)
	}
	return topicIDs, postIDs, nil
}

// pullFromAllUsers removes the given ids from the named reverse-index
// list on every user that references any of them.
func (s *Service) pullFromAllUsers(ctx context.Context, field string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	deleted := setOf(ids...)

	items, err := s.store.Scan(ctx, s.tables.Users)
	if err != nil {
		return fmt.Errorf("scan users: %w", err)
	}
	for _, item := range items {
		var user User
		if err := attributevalue.UnmarshalMap(item, &user); err != nil {
			return err
		}
		var owned []string
		for _, id := range user.listFor(field) {
			if deleted[id] {
				owned = append(owned, id)
			}
		}
		if len(owned) == 0 {
			continue
		}
		if err := s.store.Pull(ctx, s.tables.Users, user.ID, field, owned...); err != nil {
			return fmt.Errorf("repair user %s: %w", user.ID, err)
		}
	}
	return nil
}

// resetTopicLastPost recomputes a topic's lastPost from its remaining
// posts: the maximum by creation time, or absent when none remain.
func (s *Service) resetTopicLastPost(ctx context.Context, topicID string, postIDs []string) error {
	newest, err := s.newestPost(ctx, postIDs, nil)
	if err != nil {
		return err
	}
	if newest == nil {
		if err := s.store.Unset(ctx, s.tables.Topics, topicID, attrLastPostID); err != nil {
			return fmt.Errorf("clear topic last post: %w", err)
		}
		return nil
	}
	if err := s.store.Update(ctx, s.tables.Topics, topicID, avSet(attrLastPostID, newest.ID)); err != nil {
		return fmt.Errorf("reset topic last post: %w", err)
	}
	return nil
}

// recomputeForumLastPost scans every remaining topic in the forum and
// installs the newest surviving post, or clears the pointer when the
// forum holds no posts at all.
func (s *Service) recomputeForumLastPost(ctx context.Context, forumID string, excluded map[string]bool) error {
	forum, err := s.forumByID(ctx, forumID)
	if err != nil {
		return fmt.Errorf("load forum for last-post repair: %w", err)
	}

	var candidates []string
	for _, topicID := range forum.TopicIDs {
		topic, err := s.topicByID(ctx, topicID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		candidates = append(candidates, topic.PostIDs...)
	}

	newest, err := s.newestPost(ctx, candidates, excluded)
	if err != nil {
		return err
	}
	if newest == nil {
		if err := s.store.Unset(ctx, s.tables.Forums, forum.ID, attrLastPostID); err != nil {
			return fmt.Errorf("clear forum last post: %w", err)
		}
		return nil
	}
	if err := s.store.Update(ctx, s.tables.Forums, forum.ID, avSet(attrLastPostID, newest.ID)); err != nil {
		return fmt.Errorf("reset forum last post: %w", err)
	}
	return nil
}

// newestPost loads the given posts and returns the maximum by creation
// time, display ID breaking ties. Missing posts and excluded ids are
// skipped; nil means no candidate survived.
func (s *Service) newestPost(ctx context.Context, postIDs []string, excluded map[string]bool) (*Post, error) {
	var newest *Post
	for _, postID := range postIDs {
		if excluded[postID] {
			continue
		}
		item, err := s.store.Get(ctx, s.tables.Posts, postID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		var post Post
		if err := attributevalue.UnmarshalMap(item, &post); err != nil {
			return nil, err
		}
		if newest == nil || post.CreatedAt.After(newest.CreatedAt) ||
			(post.CreatedAt.Equal(newest.CreatedAt) && post.DisplayID > newest.DisplayID) {
			p := post
			newest = &p
		}
	}
	return newest, nil
}

// listFor returns the reverse-index list for a field name.
func (u *User) listFor(field string) []string {
	switch field {
	case attrCategoryIDs:
		return u.CategoryIDs
	case attrForumIDs:
		return u.ForumIDs
	case attrTopicIDs:
		return u.TopicIDs
	case attrPostIDs:
		return u.PostIDs
	}
	return nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func setOf(ids ...string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
