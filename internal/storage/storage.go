// Package storage provides the relational persistence layer for the
// stories API. The Store interface is the narrow surface resolvers talk
// to; the single implementation is GORM over sqlite.
package storage

import (
	"context"
	"errors"

	"github.com/piwi3910/storyfeed/internal/models"
)

// Common sentinel errors for store operations.
var (
	// ErrNotFound is returned when a record does not exist, or when an
	// ownership-scoped lookup misses. Callers must not be able to tell
	// the two cases apart.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated
	// (duplicate username/email on registration, duplicate like).
	ErrDuplicate = errors.New("record already exists")
)

// StoryPage describes the feed query parameters. Offset/Limit of zero
// mean "from the start" and "no limit" respectively; Filter is a
// substring match against story titles (case-insensitive under the
// sqlite default collation).
type StoryPage struct {
	Filter string
	Offset int
	Limit  int
}

// Store defines the persistence operations used by the resolvers.
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateUser inserts a new user.
	// Returns ErrDuplicate if the username or email is already taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by primary key.
	// Returns ErrNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id uint) (*models.User, error)

	// GetUserByUsername retrieves a user by unique username.
	// Returns ErrNotFound if the user does not exist.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// ListUsers retrieves all users ordered by id.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// DeleteUser removes a user together with their stories, comments
	// and likes in one transaction.
	// Returns ErrNotFound if the user does not exist.
	DeleteUser(ctx context.Context, id uint) (*models.User, error)

	// CreateStory inserts a new story.
	CreateStory(ctx context.Context, story *models.Story) error

	// GetStoryByID retrieves a story by primary key.
	// Returns ErrNotFound if the story does not exist.
	GetStoryByID(ctx context.Context, id uint) (*models.Story, error)

	// StoryForOwner retrieves a story for a mutating operation. Admins
	// look up by id alone; everyone else by (id AND author) so that a
	// foreign or missing story produces the same ErrNotFound.
	StoryForOwner(ctx context.Context, id, authorID uint, isAdmin bool) (*models.Story, error)

	// UpdateStory persists title/text changes to an existing story.
	UpdateStory(ctx context.Context, story *models.Story) error

	// DeleteStory removes a story together with its comments and likes.
	DeleteStory(ctx context.Context, id uint) error

	// ListStories returns stories newest-first, filtered and paginated
	// per page.
	ListStories(ctx context.Context, page StoryPage) ([]*models.Story, error)

	// ListStoriesByAuthor returns the stories owned by a user,
	// newest-first.
	ListStoriesByAuthor(ctx context.Context, authorID uint) ([]*models.Story, error)

	// CreateComment inserts a comment against an existing story.
	// Returns ErrNotFound if the story does not exist.
	CreateComment(ctx context.Context, comment *models.Comment) error

	// CommentForOwner retrieves a comment for deletion, with the same
	// ownership scoping as StoryForOwner.
	CommentForOwner(ctx context.Context, id, authorID uint, isAdmin bool) (*models.Comment, error)

	// DeleteComment removes a comment.
	DeleteComment(ctx context.Context, id uint) error

	// ListCommentsByStory returns a story's comments oldest-first.
	ListCommentsByStory(ctx context.Context, storyID uint) ([]*models.Comment, error)

	// ListCommentsByAuthor returns a user's comments oldest-first.
	ListCommentsByAuthor(ctx context.Context, authorID uint) ([]*models.Comment, error)

	// CreateLike inserts a like.
	// Returns ErrNotFound if the story does not exist and ErrDuplicate
	// if this user already liked this story.
	CreateLike(ctx context.Context, like *models.Like) error

	// HasLike reports whether a like exists for (storyID, authorID).
	HasLike(ctx context.Context, storyID, authorID uint) (bool, error)

	// ListLikesByStory returns a story's likes.
	ListLikesByStory(ctx context.Context, storyID uint) ([]*models.Like, error)

	// Ping checks if the database is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying connection pool.
	Close() error
}
