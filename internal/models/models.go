// Package models contains the persisted domain entities of the stories API.
// The structs double as GORM schema definitions and as the records handed
// to resolvers; the GraphQL shapes are derived from them in
// internal/graphql.
package models

import (
	"time"
)

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`

	Stories  []Story   `gorm:"foreignKey:AuthorID" json:"-"`
	Comments []Comment `gorm:"foreignKey:AuthorID" json:"-"`
	Likes    []Like    `gorm:"foreignKey:AuthorID" json:"-"`
}

// Story is a short post. AuthorID is nullable at the schema level so
// records from the anonymous-posting era stay readable; the API always
// sets it on create.
type Story struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Text      string    `gorm:"not null" json:"text"`
	AuthorID  *uint     `gorm:"index" json:"authorId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	Comments []Comment `gorm:"foreignKey:StoryID" json:"-"`
	Likes    []Like    `gorm:"foreignKey:StoryID" json:"-"`
}

// Comment belongs to a story and an author.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"not null" json:"text"`
	AuthorID  uint      `gorm:"index;not null" json:"authorId"`
	StoryID   uint      `gorm:"index;not null" json:"storyId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Like records one user liking one story. The composite unique index is
// the authoritative guard for the at-most-once invariant; application
// checks only improve the error message.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_likes_story_author" json:"authorId"`
	StoryID   uint      `gorm:"not null;uniqueIndex:idx_likes_story_author" json:"storyId"`
	CreatedAt time.Time `json:"createdAt"`
}
