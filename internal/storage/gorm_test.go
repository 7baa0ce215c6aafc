package storage_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/storyfeed/internal/models"
	"github.com/piwi3910/storyfeed/internal/storage"
)

// newTestStore opens a per-test in-memory sqlite database.
func newTestStore(t *testing.T) *storage.GormStore {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	store, err := storage.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func seedUser(t *testing.T, store *storage.GormStore, username string, admin bool) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsAdmin:      admin,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func seedStory(t *testing.T, store *storage.GormStore, author *models.User, title string) *models.Story {
	t.Helper()

	story := &models.Story{
		Title:    title,
		Text:     "some text for " + title,
		AuthorID: &author.ID,
	}
	require.NoError(t, store.CreateStory(context.Background(), story))
	return story
}

func TestCreateUserDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedUser(t, store, "alice", false)

	err := store.CreateUser(ctx, &models.User{
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "x",
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	err = store.CreateUser(ctx, &models.User{
		Username:     "alice2",
		Email:        "alice@example.com",
		PasswordHash: "x",
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestGetUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", false)

	got, err := store.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	got, err = store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = store.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListStoriesOrderingAndPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice", false)

	// Insert with increasing creation times so ordering is deterministic.
	base := time.Now().Add(-time.Hour)
	titles := []string{"first foo", "second", "third foo", "fourth"}
	for i, title := range titles {
		story := &models.Story{
			Title:     title,
			Text:      "text text",
			AuthorID:  &alice.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.CreateStory(ctx, story))
	}

	t.Run("newest first with limit", func(t *testing.T) {
		stories, err := store.ListStories(ctx, storage.StoryPage{Offset: 0, Limit: 2})
		require.NoError(t, err)
		require.Len(t, stories, 2)
		assert.Equal(t, "fourth", stories[0].Title)
		assert.Equal(t, "third foo", stories[1].Title)
	})

	t.Run("offset skips newest", func(t *testing.T) {
		stories, err := store.ListStories(ctx, storage.StoryPage{Offset: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, stories, 2)
		assert.Equal(t, "second", stories[0].Title)
		assert.Equal(t, "first foo", stories[1].Title)
	})

	t.Run("title filter", func(t *testing.T) {
		stories, err := store.ListStories(ctx, storage.StoryPage{Filter: "foo"})
		require.NoError(t, err)
		require.Len(t, stories, 2)
		assert.Equal(t, "third foo", stories[0].Title)
		assert.Equal(t, "first foo", stories[1].Title)
	})

	t.Run("filter is case-insensitive", func(t *testing.T) {
		stories, err := store.ListStories(ctx, storage.StoryPage{Filter: "FOO"})
		require.NoError(t, err)
		assert.Len(t, stories, 2)
	})
}

func TestListStoriesFilterMatchesWildcardsLiterally(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", false)
	seedStory(t, store, alice, "100% effort")
	seedStory(t, store, alice, "100 reasons")
	seedStory(t, store, alice, "a_b testing")
	seedStory(t, store, alice, "aXb testing")

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{name: "percent is literal", filter: "100%", want: []string{"100% effort"}},
		{name: "underscore is literal", filter: "a_b", want: []string{"a_b testing"}},
		{name: "backslash is literal", filter: `\`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stories, err := store.ListStories(ctx, storage.StoryPage{Filter: tt.filter})
			require.NoError(t, err)
			require.Len(t, stories, len(tt.want))
			for i, title := range tt.want {
				assert.Equal(t, title, stories[i].Title)
			}
		})
	}
}

func TestStoryForOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", false)
	bob := seedUser(t, store, "bob", false)
	admin := seedUser(t, store, "root", true)
	story := seedStory(t, store, alice, "alice's story")

	t.Run("owner can fetch", func(t *testing.T) {
		got, err := store.StoryForOwner(ctx, story.ID, alice.ID, false)
		require.NoError(t, err)
		assert.Equal(t, story.ID, got.ID)
	})

	t.Run("non-owner miss looks like not found", func(t *testing.T) {
		_, err := store.StoryForOwner(ctx, story.ID, bob.ID, false)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("missing id is the same error", func(t *testing.T) {
		_, err := store.StoryForOwner(ctx, 9999, bob.ID, false)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("admin bypasses ownership", func(t *testing.T) {
		got, err := store.StoryForOwner(ctx, story.ID, admin.ID, true)
		require.NoError(t, err)
		assert.Equal(t, story.ID, got.ID)
	})
}

func TestUpdateStory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", false)
	story := seedStory(t, store, alice, "before")

	story.Title = "after"
	story.Text = "updated text"
	require.NoError(t, store.UpdateStory(ctx, story))

	got, err := store.GetStoryByID(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, "updated text", got.Text)

	missing := &models.Story{ID: 9999, Title: "x", Text: "y"}
	assert.ErrorIs(t, store.UpdateStory(ctx, missing), storage.ErrNotFound)
}

func TestDeleteStoryCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", false)
	story := seedStory(t, store, alice, "doomed")

	require.NoError(t, store.CreateComment(ctx, &models.Comment{
		Text: "a comment", AuthorID: alice.ID, StoryID: story.ID,
	}))
	require.NoError(t, store.CreateLike(ctx, &models.Like{
		AuthorID: alice.ID, StoryID: story.ID,
	}))

	require.NoError(t, store.DeleteStory(ctx, story.ID))

	_, err := store.GetStoryByID(ctx, story.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	comments, err := store.ListCommentsByStory(ctx, story.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	likes, err := store.ListLikesByStory(ctx, story.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)

	assert.ErrorIs(t, store.DeleteStory(ctx, story.ID), storage.ErrNotFound)
}

func TestCommentRequiresStory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice", false)

	err := store.CreateComment(ctx, &models.Comment{
		Text: "into the void", AuthorID: alice.ID, StoryID: 9999,
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLikeUniqueness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", false)
	bob := seedUser(t, store, "bob", false)
	story := seedStory(t, store, alice, "likable")

	require.NoError(t, store.CreateLike(ctx, &models.Like{AuthorID: bob.ID, StoryID: story.ID}))

	has, err := store.HasLike(ctx, story.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, has)

	// Second like from the same user hits the unique index.
	err = store.CreateLike(ctx, &models.Like{AuthorID: bob.ID, StoryID: story.ID})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	// A different user may still like the story.
	require.NoError(t, store.CreateLike(ctx, &models.Like{AuthorID: alice.ID, StoryID: story.ID}))

	likes, err := store.ListLikesByStory(ctx, story.ID)
	require.NoError(t, err)
	assert.Len(t, likes, 2)

	// Liking a missing story is not found, not a constraint error.
	err = store.CreateLike(ctx, &models.Like{AuthorID: bob.ID, StoryID: 9999})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", false)
	bob := seedUser(t, store, "bob", false)
	aliceStory := seedStory(t, store, alice, "alice's")
	bobStory := seedStory(t, store, bob, "bob's")

	// Bob interacts with alice's story and his own.
	require.NoError(t, store.CreateComment(ctx, &models.Comment{
		Text: "nice one", AuthorID: bob.ID, StoryID: aliceStory.ID,
	}))
	require.NoError(t, store.CreateLike(ctx, &models.Like{AuthorID: bob.ID, StoryID: aliceStory.ID}))
	require.NoError(t, store.CreateComment(ctx, &models.Comment{
		Text: "self reply", AuthorID: alice.ID, StoryID: aliceStory.ID,
	}))

	deleted, err := store.DeleteUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", deleted.Username)

	_, err = store.GetUserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Alice's story and everything attached to it is gone.
	_, err = store.GetStoryByID(ctx, aliceStory.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	comments, err := store.ListCommentsByStory(ctx, aliceStory.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	// Bob's own story is untouched.
	_, err = store.GetStoryByID(ctx, bobStory.ID)
	assert.NoError(t, err)

	_, err = store.DeleteUser(ctx, alice.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCommentForOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, store, "alice", false)
	bob := seedUser(t, store, "bob", false)
	story := seedStory(t, store, alice, "commented")

	comment := &models.Comment{Text: "mine", AuthorID: alice.ID, StoryID: story.ID}
	require.NoError(t, store.CreateComment(ctx, comment))

	_, err := store.CommentForOwner(ctx, comment.ID, bob.ID, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := store.CommentForOwner(ctx, comment.ID, alice.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Text)

	got, err = store.CommentForOwner(ctx, comment.ID, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, comment.ID, got.ID)
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
