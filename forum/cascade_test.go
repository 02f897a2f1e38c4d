package forum

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeletePostRepairsTopicLastPost(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	user := mustUser(t, s, "alice")
	category := mustCategory(t, s, user.ID, "General")
	forum := mustForum(t, s, user.ID, category.DisplayID, "Chat")
	topic := mustTopic(t, s, user.ID, forum.DisplayID, "Introductions")
	first := mustPost(t, s, user.ID, topic.DisplayID, "First")
	second := mustPost(t, s, user.ID, topic.DisplayID, "Second")

	require.NoError(t, s.DeletePost(ctx, user.ID, second.DisplayID))

	reloadedTopic, err := s.TopicByDisplayID(ctx, topic.DisplayID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, reloadedTopic.PostIDs)
	assert.Equal(t, first.ID, reloadedTopic.LastPostID)

	reloadedForum, err := s.ForumByDisplayID(ctx, forum.DisplayID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, reloadedForum.LastPostID)

	// Creator's reverse index is repaired too.
	alice, err := s.UserByDisplayID(ctx, user.DisplayID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, alice.PostIDs)
}

func TestDeleteLastRemainingPostClearsPointer(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	user := mustUser(t, s, "alice")
	category := mustCategory(t, s, user.ID, "General")
	forum := mustForum(t, s, user.ID, category.DisplayID, "Chat")
	topic := mustTopic(t, s, user.ID, forum.DisplayID, "Introductions")
	post := mustPost(t, s, user.ID, topic.DisplayID, "Only one")

	require.NoError(t, s.DeletePost(ctx, user.ID, post.DisplayID))

	reloadedTopic, err := s.TopicByDisplayID(ctx, topic.DisplayID)
	require.NoError(t, err)
	assert.Empty(t, reloadedTopic.LastPostID)

	reloadedForum, err := s.ForumByDisplayID(ctx, forum.DisplayID)
	require.NoError(t, err)
	assert.Empty(t, reloadedForum.LastPostID)
}

func TestDeletePostForumLastPostFallsBackAcrossTopics(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	user := mustUser(t, s, "alice")
	category := mustCategory(t, s, user.ID, "General")
	forum := mustForum(t, s, user.ID, category.DisplayID, "Chat")
	topicA := mustTopic(t, s, user.ID, forum.DisplayID, "Topic A")
	topicB := mustTopic(t, s, user.ID, forum.DisplayID, "Topic B")
	older := mustPost(t, s, user.ID, topicA.DisplayID, "Older")
	newest := mustPost(t, s, user.ID, topicB.DisplayID, "Newest")

	require.NoError(t, s.DeletePost(ctx, user.ID, newest.DisplayID))

	// The forum pointer falls back to the surviving post in the other
	// topic.
	reloadedForum, err := s.ForumByDisplayID(ctx, forum.DisplayID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, reloadedForum.LastPostID)
}

func TestDeleteTopicCascades(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	category := mustCategory(t, s, alice.ID, "General")
	forum := mustForum(t, s, alice.ID, category.DisplayID, "Chat")
	topic := mustTopic(t, s, alice.ID, forum.DisplayID, "Doomed")
	keeper := mustTopic(t, s, alice.ID, forum.DisplayID, "Keeper")

	mustPost(t, s, alice.ID, topic.DisplayID, "By alice")
	bobPost := mustPost(t, s, bob.ID, topic.DisplayID, "By bob")
	surviving := mustPost(t, s, alice.ID, keeper.DisplayID, "Survivor")
	doomed := mustPost(t, s, bob.ID, topic.DisplayID, "Latest doomed")

	require.NoError(t, s.DeleteTopic(ctx, alice.ID, topic.DisplayID))

	_, err := s.TopicByDisplayID(ctx, topic.DisplayID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.PostByDisplayID(ctx, bobPost.DisplayID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.PostByDisplayID(ctx, doomed.DisplayID)
	assert.ErrorIs(t, err, ErrNotFound)

	reloadedForum, err := s.ForumByDisplayID(ctx, forum.DisplayID)
	require.NoError(t, err)
	assert.Equal(t, []string{keeper.ID}, reloadedForum.TopicIDs)

	// The forum's lastPost pointed into the deleted subtree and falls
	// back to the surviving topic's post.
	assert.Equal(t, surviving.ID, reloadedForum.LastPostID)

	// Every affected user's reverse index is repaired, not just the
	// topic creator's.
	reloadedBob, err := s.UserByDisplayID(ctx, bob.DisplayID)
	require.NoError(t, err)
	assert.Empty(t, reloadedBob.PostIDs)

	reloadedAlice, err := s.UserByDisplayID(ctx, alice.DisplayID)
	require.NoError(t, err)
	assert.Equal(t, []string{surviving.ID}, reloadedAlice.PostIDs)
	assert.Equal(t, []string{keeper.ID}, reloadedAlice.TopicIDs)
}

func TestDeleteForumCascades(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	category := mustCategory(t, s, alice.ID, "General")
	forum := mustForum(t, s, alice.ID, category.DisplayID, "Doomed Forum")
	topic := mustTopic(t, s, bob.ID, forum.DisplayID, "Bob's topic")
	post := mustPost(t, s, bob.ID, topic.DisplayID, "Bob's post")

	require.NoError(t, s.DeleteForum(ctx, alice.ID, forum.DisplayID))

	_, err := s.ForumByDisplayID(ctx, forum.DisplayID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.TopicByDisplayID(ctx, topic.DisplayID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.PostByDisplayID(ctx, post.DisplayID)
	assert.ErrorIs(t, err, ErrNotFound)

	reloadedCategory, err := s.CategoryByDisplayID(ctx, category.DisplayID)
	require.NoError(t, err)
	assert.Empty(t, reloadedCategory.ForumIDs)

	reloadedBob, err := s.UserByDisplayID(ctx, bob.DisplayID)
	require.NoError(t, err)
	assert.Empty(t, reloadedBob.TopicIDs)
	assert.Empty(t, reloadedBob.PostIDs)
}

func TestDeleteCategoryCascades(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	category := mustCategory(t, s, alice.ID, "Doomed")
	other := mustCategory(t, s, alice.ID, "Untouched")

	forumA := mustForum(t, s, alice.ID, category.DisplayID, "Forum A")
	forumB := mustForum(t, s, bob.ID, category.DisplayID, "Forum B")
	safeForum := mustForum(t, s, alice.ID, other.DisplayID, "Safe Forum")

	topicA := mustTopic(t, s, bob.ID, forumA.DisplayID, "Topic A")
	topicB := mustTopic(t, s, alice.ID, forumB.DisplayID, "Topic B")
	safeTopic := mustTopic(t, s, bob.ID, safeForum.DisplayID, "Safe Topic")

	postA := mustPost(t, s, alice.ID, topicA.DisplayID, "Post A")
	postB := mustPost(t, s, bob.ID, topicB.DisplayID, "Post B")
	safePost := mustPost(t, s, bob.ID, safeTopic.DisplayID, "Safe Post")

	require.NoError(t, s.DeleteCategory(ctx, alice.ID, category.DisplayID))

	for _, displayID := range []int64{postA.DisplayID, postB.DisplayID} {
		_, err := s.PostByDisplayID(ctx, displayID)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	for _, displayID := range []int64{topicA.DisplayID, topicB.DisplayID} {
		_, err := s.TopicByDisplayID(ctx, displayID)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	for _, displayID := range []int64{forumA.DisplayID, forumB.DisplayID} {
		_, err := s.ForumByDisplayID(ctx, displayID)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	_, err := s.CategoryByDisplayID(ctx, category.DisplayID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The sibling subtree is untouched.
	_, err = s.PostByDisplayID(ctx, safePost.DisplayID)
	assert.NoError(t, err)

	// Reverse indexes keep only the surviving subtree.
	reloadedAlice, err := s.UserByDisplayID(ctx, alice.DisplayID)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, reloadedAlice.CategoryIDs)
	assert.Equal(t, []string{safeForum.ID}, reloadedAlice.ForumIDs)
	assert.Empty(t, reloadedAlice.TopicIDs)
	assert.Empty(t, reloadedAlice.PostIDs)

	reloadedBob, err := s.UserByDisplayID(ctx, bob.DisplayID)
	require.NoError(t, err)
	assert.Empty(t, reloadedBob.ForumIDs)
	assert.Equal(t, []string{safeTopic.ID}, reloadedBob.TopicIDs)
	assert.Equal(t, []string{safePost.ID}, reloadedBob.PostIDs)

	// A repeated delete finds nothing.
	err = s.DeleteCategory(ctx, alice.ID, category.DisplayID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteForbidden(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	category := mustCategory(t, s, alice.ID, "General")
	forum := mustForum(t, s, alice.ID, category.DisplayID, "Chat")
	topic := mustTopic(t, s, alice.ID, forum.DisplayID, "Thread")
	post := mustPost(t, s, alice.ID, topic.DisplayID, "Post")

	assert.ErrorIs(t, s.DeleteCategory(ctx, bob.ID, category.DisplayID), ErrForbidden)
	assert.ErrorIs(t, s.DeleteForum(ctx, bob.ID, forum.DisplayID), ErrForbidden)
	assert.ErrorIs(t, s.DeleteTopic(ctx, bob.ID, topic.DisplayID), ErrForbidden)
	assert.ErrorIs(t, s.DeletePost(ctx, bob.ID, post.DisplayID), ErrForbidden)

	// Nothing was removed.
	_, err := s.PostByDisplayID(ctx, post.DisplayID)
	assert.NoError(t, err)
}
