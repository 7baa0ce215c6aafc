package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/piwi3910/storyfeed/internal/models"
)

// GormStore implements Store on top of GORM with the sqlite driver.
type GormStore struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite database at dsn, runs schema
// migration and returns a ready store.
//
// Example:
//
//	store, err := storage.Open("data/storyfeed.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite does not enforce foreign keys unless asked.
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Story{},
		&models.Comment{},
		&models.Like{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &GormStore{db: db}, nil
}

// NewGormStore wraps an already-opened GORM handle. Used by tests.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// mapError converts GORM sentinels into the package's own.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// CreateUser inserts a new user.
func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return mapError(s.db.WithContext(ctx).Create(user).Error)
}

// GetUserByID retrieves a user by primary key.
func (s *GormStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by unique username.
func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// ListUsers retrieves all users ordered by id.
func (s *GormStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// DeleteUser removes a user and everything they own in one transaction.
func (s *GormStore) DeleteUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		var storyIDs []uint
		if err := tx.Model(&models.Story{}).Where("author_id = ?", id).Pluck("id", &storyIDs).Error; err != nil {
			return err
		}
		if len(storyIDs) > 0 {
			if err := tx.Where("story_id IN ?", storyIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("story_id IN ?", storyIDs).Delete(&models.Like{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", storyIDs).Delete(&models.Story{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("author_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// CreateStory inserts a new story.
func (s *GormStore) CreateStory(ctx context.Context, story *models.Story) error {
	return mapError(s.db.WithContext(ctx).Create(story).Error)
}

// GetStoryByID retrieves a story by primary key.
func (s *GormStore) GetStoryByID(ctx context.Context, id uint) (*models.Story, error) {
	var story models.Story
	if err := s.db.WithContext(ctx).First(&story, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &story, nil
}

// StoryForOwner retrieves a story scoped by ownership. A miss on the
// composite (id, author) lookup is reported exactly like a missing id so
// non-owners cannot probe for other users' records.
func (s *GormStore) StoryForOwner(ctx context.Context, id, authorID uint, isAdmin bool) (*models.Story, error) {
	q := s.db.WithContext(ctx)
	if !isAdmin {
		q = q.Where("author_id = ?", authorID)
	}
	var story models.Story
	if err := q.First(&story, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &story, nil
}

// UpdateStory persists title/text changes to an existing story.
func (s *GormStore) UpdateStory(ctx context.Context, story *models.Story) error {
	res := s.db.WithContext(ctx).Model(&models.Story{}).
		Where("id = ?", story.ID).
		Updates(map[string]interface{}{"title": story.Title, "text": story.Text})
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStory removes a story with its comments and likes.
func (s *GormStore) DeleteStory(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("story_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("story_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Story{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return mapError(err)
}

// likeEscaper neutralizes LIKE metacharacters in user-supplied filters
// so they match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListStories returns stories newest-first, filtered and paginated.
func (s *GormStore) ListStories(ctx context.Context, page StoryPage) ([]*models.Story, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if page.Filter != "" {
		q = q.Where(`title LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(page.Filter)+"%")
	}
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	var stories []*models.Story
	if err := q.Find(&stories).Error; err != nil {
		return nil, mapError(err)
	}
	return stories, nil
}

// ListStoriesByAuthor returns a user's stories newest-first.
func (s *GormStore) ListStoriesByAuthor(ctx context.Context, authorID uint) ([]*models.Story, error) {
	var stories []*models.Story
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&stories).Error
	if err != nil {
		return nil, mapError(err)
	}
	return stories, nil
}

// CreateComment inserts a comment after checking the story exists.
func (s *GormStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Story{}).Where("id = ?", comment.StoryID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(comment).Error
	})
	return mapError(err)
}

// CommentForOwner retrieves a comment scoped by ownership.
func (s *GormStore) CommentForOwner(ctx context.Context, id, authorID uint, isAdmin bool) (*models.Comment, error) {
	q := s.db.WithContext(ctx)
	if !isAdmin {
		q = q.Where("author_id = ?", authorID)
	}
	var comment models.Comment
	if err := q.First(&comment, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &comment, nil
}

// DeleteComment removes a comment.
func (s *GormStore) DeleteComment(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCommentsByStory returns a story's comments oldest-first.
func (s *GormStore) ListCommentsByStory(ctx context.Context, storyID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := s.db.WithContext(ctx).
		Where("story_id = ?", storyID).
		Order("created_at, id").
		Find(&comments).Error
	if err != nil {
		return nil, mapError(err)
	}
	return comments, nil
}

// ListCommentsByAuthor returns a user's comments oldest-first.
func (s *GormStore) ListCommentsByAuthor(ctx context.Context, authorID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at, id").
		Find(&comments).Error
	if err != nil {
		return nil, mapError(err)
	}
	return comments, nil
}

// CreateLike inserts a like; the composite unique index turns a race
// between two identical likes into ErrDuplicate.
func (s *GormStore) CreateLike(ctx context.Context, like *models.Like) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Story{}).Where("id = ?", like.StoryID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(like).Error
	})
	return mapError(err)
}

// HasLike reports whether a like exists for (storyID, authorID).
func (s *GormStore) HasLike(ctx context.Context, storyID, authorID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("story_id = ? AND author_id = ?", storyID, authorID).
		Count(&count).Error
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}

// ListLikesByStory returns a story's likes.
func (s *GormStore) ListLikesByStory(ctx context.Context, storyID uint) ([]*models.Like, error) {
	var likes []*models.Like
	err := s.db.WithContext(ctx).
		Where("story_id = ?", storyID).
		Order("created_at, id").
		Find(&likes).Error
	if err != nil {
		return nil, mapError(err)
	}
	return likes, nil
}

// Ping checks if the database is reachable.
func (s *GormStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
