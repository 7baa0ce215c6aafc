package graphql

import (
	"context"
	"errors"

	graphqlgo "github.com/graph-gophers/graphql-go"

	"github.com/piwi3910/storyfeed/internal/models"
	"github.com/piwi3910/storyfeed/internal/storage"
)

// The type resolvers wrap one record each and load relationships on
// demand, one store read per field. The read-per-field cost is accepted
// for this API's query depth.

type authPayloadResolver struct {
	r     *Resolver
	token string
	user  *models.User
}

func (p *authPayloadResolver) Token() string {
	return p.token
}

func (p *authPayloadResolver) User() *userResolver {
	return &userResolver{r: p.r, u: p.user}
}

type userResolver struct {
	r *Resolver
	u *models.User
}

func (u *userResolver) ID() graphqlgo.ID {
	return toID(u.u.ID)
}

func (u *userResolver) Username() string {
	return u.u.Username
}

func (u *userResolver) Email() string {
	return u.u.Email
}

func (u *userResolver) IsAdmin() bool {
	return u.u.IsAdmin
}

func (u *userResolver) CreatedAt() graphqlgo.Time {
	return graphqlgo.Time{Time: u.u.CreatedAt}
}

func (u *userResolver) Stories(ctx context.Context) ([]*storyResolver, error) {
	stories, err := u.r.store.ListStoriesByAuthor(ctx, u.u.ID)
	if err != nil {
		return nil, u.r.storeError(err, "stories")
	}
	return storyResolvers(u.r, stories), nil
}

func (u *userResolver) Comments(ctx context.Context) ([]*commentResolver, error) {
	comments, err := u.r.store.ListCommentsByAuthor(ctx, u.u.ID)
	if err != nil {
		return nil, u.r.storeError(err, "comments")
	}
	return commentResolvers(u.r, comments), nil
}

type storyResolver struct {
	r *Resolver
	s *models.Story
}

func storyResolvers(r *Resolver, stories []*models.Story) []*storyResolver {
	out := make([]*storyResolver, len(stories))
	for i, s := range stories {
		out[i] = &storyResolver{r: r, s: s}
	}
	return out
}

func (s *storyResolver) ID() graphqlgo.ID {
	return toID(s.s.ID)
}

func (s *storyResolver) Title() string {
	return s.s.Title
}

func (s *storyResolver) Text() string {
	return s.s.Text
}

func (s *storyResolver) CreatedAt() graphqlgo.Time {
	return graphqlgo.Time{Time: s.s.CreatedAt}
}

// Author is null for authorless records.
func (s *storyResolver) Author(ctx context.Context) (*userResolver, error) {
	return loadAuthor(ctx, s.r, s.s.AuthorID)
}

func (s *storyResolver) Comments(ctx context.Context) ([]*commentResolver, error) {
	comments, err := s.r.store.ListCommentsByStory(ctx, s.s.ID)
	if err != nil {
		return nil, s.r.storeError(err, "comments")
	}
	return commentResolvers(s.r, comments), nil
}

func (s *storyResolver) Likes(ctx context.Context) ([]*likeResolver, error) {
	likes, err := s.r.store.ListLikesByStory(ctx, s.s.ID)
	if err != nil {
		return nil, s.r.storeError(err, "likes")
	}
	out := make([]*likeResolver, len(likes))
	for i, l := range likes {
		out[i] = &likeResolver{r: s.r, l: l}
	}
	return out, nil
}

type commentResolver struct {
	r *Resolver
	c *models.Comment
}

func commentResolvers(r *Resolver, comments []*models.Comment) []*commentResolver {
	out := make([]*commentResolver, len(comments))
	for i, c := range comments {
		out[i] = &commentResolver{r: r, c: c}
	}
	return out
}

func (c *commentResolver) ID() graphqlgo.ID {
	return toID(c.c.ID)
}

func (c *commentResolver) Text() string {
	return c.c.Text
}

func (c *commentResolver) CreatedAt() graphqlgo.Time {
	return graphqlgo.Time{Time: c.c.CreatedAt}
}

func (c *commentResolver) Author(ctx context.Context) (*userResolver, error) {
	return loadAuthor(ctx, c.r, &c.c.AuthorID)
}

func (c *commentResolver) Story(ctx context.Context) (*storyResolver, error) {
	story, err := c.r.store.GetStoryByID(ctx, c.c.StoryID)
	if err != nil {
		return nil, c.r.storeError(err, "story")
	}
	return &storyResolver{r: c.r, s: story}, nil
}

type likeResolver struct {
	r *Resolver
	l *models.Like
}

func (l *likeResolver) ID() graphqlgo.ID {
	return toID(l.l.ID)
}

func (l *likeResolver) CreatedAt() graphqlgo.Time {
	return graphqlgo.Time{Time: l.l.CreatedAt}
}

func (l *likeResolver) Author(ctx context.Context) (*userResolver, error) {
	return loadAuthor(ctx, l.r, &l.l.AuthorID)
}

func (l *likeResolver) Story(ctx context.Context) (*storyResolver, error) {
	story, err := l.r.store.GetStoryByID(ctx, l.l.StoryID)
	if err != nil {
		return nil, l.r.storeError(err, "story")
	}
	return &storyResolver{r: l.r, s: story}, nil
}

// loadAuthor resolves a nullable author reference. A nil id and a
// since-deleted user both come back as null.
func loadAuthor(ctx context.Context, r *Resolver, id *uint) (*userResolver, error) {
	if id == nil {
		return nil, nil
	}
	user, err := r.store.GetUserByID(ctx, *id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, r.storeError(err, "user")
	}
	return &userResolver{r: r, u: user}, nil
}
