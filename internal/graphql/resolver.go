package graphql

import (
	"context"
	"errors"
	"strconv"

	graphqlgo "github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"github.com/piwi3910/storyfeed/internal/auth"
	"github.com/piwi3910/storyfeed/internal/models"
	"github.com/piwi3910/storyfeed/internal/pubsub"
	"github.com/piwi3910/storyfeed/internal/storage"
	"github.com/piwi3910/storyfeed/internal/validate"
)

// Resolver is the root resolver for the stories schema. All queries,
// mutations and subscriptions hang off it. Mutations follow one
// pipeline: validate the input, authorize the caller, perform a single
// store operation, publish an event when the schema announces one.
type Resolver struct {
	store  storage.Store
	broker *pubsub.Broker
	issuer *auth.Issuer
	val    *validate.Validator
	logger *zap.Logger
}

// NewResolver wires a resolver root from its dependencies.
// All arguments are required.
func NewResolver(store storage.Store, broker *pubsub.Broker, issuer *auth.Issuer, logger *zap.Logger) *Resolver {
	if store == nil {
		panic("graphql: store is required")
	}
	if broker == nil {
		panic("graphql: broker is required")
	}
	if issuer == nil {
		panic("graphql: issuer is required")
	}
	if logger == nil {
		panic("graphql: logger is required")
	}
	return &Resolver{
		store:  store,
		broker: broker,
		issuer: issuer,
		val:    validate.New(),
		logger: logger,
	}
}

// parseID converts a GraphQL ID argument into a database key. Anything
// that is not a positive integer maps to a not-found error for the
// given resource, matching the lookup that would follow.
func parseID(id graphqlgo.ID, resource string) (uint, error) {
	n, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil || n == 0 {
		return 0, errNotFound(resource)
	}
	return uint(n), nil
}

func toID(id uint) graphqlgo.ID {
	return graphqlgo.ID(strconv.FormatUint(uint64(id), 10))
}

// checkInput runs schema validation and wraps failures for transport.
func (r *Resolver) checkInput(input interface{}) error {
	err := r.val.Struct(input)
	if err == nil {
		return nil
	}
	var verr *validate.Error
	if errors.As(err, &verr) {
		return errValidation(verr)
	}
	r.logger.Error("validator failure", zap.Error(err))
	return errInternal()
}

// storeError maps storage sentinels onto transport errors, logging
// anything unexpected.
func (r *Resolver) storeError(err error, resource string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return errNotFound(resource)
	case errors.Is(err, storage.ErrDuplicate):
		return errConflict(resource + " already exists")
	default:
		r.logger.Error("store operation failed", zap.String("resource", resource), zap.Error(err))
		return errInternal()
	}
}

// gateError maps authorization gate errors onto transport errors.
func gateError(err error) error {
	if errors.Is(err, auth.ErrUnauthorized) {
		return errForbidden()
	}
	return errUnauthenticated()
}

// Info resolves the info query.
func (r *Resolver) Info() string {
	return "storyfeed: a GraphQL API for short stories, comments and likes"
}

// FeedArgs are the arguments of the feed query.
type FeedArgs struct {
	Filter *string
	Offset *int32
	Limit  *int32
}

// Feed resolves the feed query: stories newest-first, optionally
// filtered by a case-insensitive title substring and paginated.
func (r *Resolver) Feed(ctx context.Context, args FeedArgs) ([]*storyResolver, error) {
	defer observeOperation("feed")()

	page := storage.StoryPage{}
	if args.Filter != nil {
		page.Filter = *args.Filter
	}
	if args.Offset != nil && *args.Offset > 0 {
		page.Offset = int(*args.Offset)
	}
	if args.Limit != nil && *args.Limit > 0 {
		page.Limit = int(*args.Limit)
	}

	stories, err := r.store.ListStories(ctx, page)
	if err != nil {
		return nil, r.storeError(err, "feed")
	}
	return storyResolvers(r, stories), nil
}

// Me resolves the me query. Anonymous requests are an unauthenticated
// error, not a null.
func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, gateError(err)
	}
	return &userResolver{r: r, u: user}, nil
}

// Users resolves the users query. Admin only.
func (r *Resolver) Users(ctx context.Context) ([]*userResolver, error) {
	defer observeOperation("users")()

	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, gateError(err)
	}

	users, err := r.store.ListUsers(ctx)
	if err != nil {
		return nil, r.storeError(err, "users")
	}
	out := make([]*userResolver, len(users))
	for i, u := range users {
		out[i] = &userResolver{r: r, u: u}
	}
	return out, nil
}

// RegisterArgs are the arguments of the register mutation.
type RegisterArgs struct {
	Username          string
	Email             string
	Password          string
	ConfirmedPassword string
}

// Register creates an account and returns a signed token for it.
func (r *Resolver) Register(ctx context.Context, args RegisterArgs) (*authPayloadResolver, error) {
	defer observeOperation("register")()

	input := validate.RegisterInput{
		Username:          args.Username,
		Email:             args.Email,
		Password:          args.Password,
		ConfirmedPassword: args.ConfirmedPassword,
	}.Trim()
	if err := r.checkInput(input); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		r.logger.Error("password hash failed", zap.Error(err))
		return nil, errInternal()
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}
	if err := r.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errConflict("username or email already taken")
		}
		return nil, r.storeError(err, "user")
	}

	token, err := r.issuer.Issue(user.ID)
	if err != nil {
		r.logger.Error("token issue failed", zap.Uint("userID", user.ID), zap.Error(err))
		return nil, errInternal()
	}

	r.logger.Info("user registered", zap.Uint("userID", user.ID), zap.String("username", user.Username))
	return &authPayloadResolver{r: r, token: token, user: user}, nil
}

// LoginArgs are the arguments of the login mutation.
type LoginArgs struct {
	Username string
	Password string
}

// Login exchanges credentials for a token. Every credential failure
// surfaces the same generic message; the precise cause goes to the
// debug log only.
func (r *Resolver) Login(ctx context.Context, args LoginArgs) (*authPayloadResolver, error) {
	defer observeOperation("login")()

	input := validate.LoginInput{
		Username: args.Username,
		Password: args.Password,
	}.Trim()
	if err := r.checkInput(input); err != nil {
		return nil, err
	}

	user, err := r.store.GetUserByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			r.logger.Debug("login failed: unknown username", zap.String("username", input.Username))
			return nil, errBadCredentials()
		}
		return nil, r.storeError(err, "user")
	}

	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		r.logger.Debug("login failed: wrong password", zap.Uint("userID", user.ID))
		return nil, errBadCredentials()
	}

	token, err := r.issuer.Issue(user.ID)
	if err != nil {
		r.logger.Error("token issue failed", zap.Uint("userID", user.ID), zap.Error(err))
		return nil, errInternal()
	}

	r.logger.Info("user logged in", zap.Uint("userID", user.ID))
	return &authPayloadResolver{r: r, token: token, user: user}, nil
}

// CreateStoryArgs are the arguments of the createStory mutation.
type CreateStoryArgs struct {
	Title string
	Text  string
}

// CreateStory posts a story as the authenticated user and announces it
// to newStory subscribers before returning.
func (r *Resolver) CreateStory(ctx context.Context, args CreateStoryArgs) (*storyResolver, error) {
	defer observeOperation("createStory")()

	input := validate.StoryInput{Title: args.Title, Text: args.Text}.Trim()
	if err := r.checkInput(input); err != nil {
		return nil, err
	}

	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, gateError(err)
	}

	story := &models.Story{
		Title:    input.Title,
		Text:     input.Text,
		AuthorID: &user.ID,
	}
	if err := r.store.CreateStory(ctx, story); err != nil {
		return nil, r.storeError(err, "story")
	}

	r.broker.Publish(pubsub.TopicNewStory, story)
	r.logger.Info("story created", zap.Uint("storyID", story.ID), zap.Uint("authorID", user.ID))
	return &storyResolver{r: r, s: story}, nil
}

// UpdateStoryArgs are the arguments of the updateStory mutation.
type UpdateStoryArgs struct {
	ID    graphqlgo.ID
	Title string
	Text  string
}

// UpdateStory rewrites an owned story. Admins may update any story; for
// everyone else a foreign story is indistinguishable from a missing one.
func (r *Resolver) UpdateStory(ctx context.Context, args UpdateStoryArgs) (*storyResolver, error) {
	defer observeOperation("updateStory")()

	id, err := parseID(args.ID, "story")
	if err != nil {
		return nil, err
	}
	input := validate.UpdateStoryInput{ID: id, Title: args.Title, Text: args.Text}.Trim()
	if err := r.checkInput(input); err != nil {
		return nil, err
	}

	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, gateError(err)
	}

	story, err := r.store.StoryForOwner(ctx, id, user.ID, user.IsAdmin)
	if err != nil {
		return nil, r.storeError(err, "story")
	}

	story.Title = input.Title
	story.Text = input.Text
	if err := r.store.UpdateStory(ctx, story); err != nil {
		return nil, r.storeError(err, "story")
	}

	r.logger.Info("story updated", zap.Uint("storyID", story.ID), zap.Uint("userID", user.ID))
	return &storyResolver{r: r, s: story}, nil
}

// IDArgs are the arguments of the mutations that only take a target id.
type IDArgs struct {
	ID graphqlgo.ID
}

// DeleteStory removes an owned story together with its comments and
// likes, returning the removed record.
func (r *Resolver) DeleteStory(ctx context.Context, args IDArgs) (*storyResolver, error) {
	defer observeOperation("deleteStory")()

	id, err := parseID(args.ID, "story")
	if err != nil {
		return nil, err
	}

	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, gateError(err)
	}

	story, err := r.store.StoryForOwner(ctx, id, user.ID, user.IsAdmin)
	if err != nil {
		return nil, r.storeError(err, "story")
	}
	if err := r.store.DeleteStory(ctx, story.ID); err != nil {
		return nil, r.storeError(err, "story")
	}

	r.logger.Info("story deleted", zap.Uint("storyID", story.ID), zap.Uint("userID", user.ID))
	return &storyResolver{r: r, s: story}, nil
}

// CommentArgs are the arguments of the comment mutation.
type CommentArgs struct {
	StoryID graphqlgo.ID
	Text    string
}

// Comment posts a comment on an existing story and announces it to
// newComment subscribers.
func (r *Resolver) Comment(ctx context.Context, args CommentArgs) (*commentResolver, error) {
	defer observeOperation("comment")()

	storyID, err := parseID(args.StoryID, "story")
	if err != nil {
		return nil, err
	}
	input := validate.CommentInput{StoryID: storyID, Text: args.Text}.Trim()
	if err := r.checkInput(input); err != nil {
		return nil, err
	}

	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, gateError(err)
	}

	comment := &models.Comment{
		Text:     input.Text,
		AuthorID: user.ID,
		StoryID:  storyID,
	}
	if err := r.store.CreateComment(ctx, comment); err != nil {
		return nil, r.storeError(err, "story")
	}

	r.broker.Publish(pubsub.TopicNewComment, comment)
	r.logger.Info("comment created",
		zap.Uint("commentID", comment.ID),
		zap.Uint("storyID", storyID),
		zap.Uint("authorID", user.ID),
	)
	return &commentResolver{r: r, c: comment}, nil
}

// DeleteComment removes an owned comment, returning the removed record.
func (r *Resolver) DeleteComment(ctx context.Context, args IDArgs) (*commentResolver, error) {
	defer observeOperation("deleteComment")()

	id, err := parseID(args.ID, "comment")
	if err != nil {
		return nil, err
	}

	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, gateError(err)
	}

	comment, err := r.store.CommentForOwner(ctx, id, user.ID, user.IsAdmin)
	if err != nil {
		return nil, r.storeError(err, "comment")
	}
	if err := r.store.DeleteComment(ctx, comment.ID); err != nil {
		return nil, r.storeError(err, "comment")
	}

	r.logger.Info("comment deleted", zap.Uint("commentID", comment.ID), zap.Uint("userID", user.ID))
	return &commentResolver{r: r, c: comment}, nil
}

// LikeArgs are the arguments of the like mutation.
type LikeArgs struct {
	StoryID graphqlgo.ID
}

// Like records the authenticated user liking a story. The pre-check
// gives duplicate likes a descriptive conflict; under concurrent
// requests the unique index makes the final call.
func (r *Resolver) Like(ctx context.Context, args LikeArgs) (*likeResolver, error) {
	defer observeOperation("like")()

	storyID, err := parseID(args.StoryID, "story")
	if err != nil {
		return nil, err
	}

	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, gateError(err)
	}

	liked, err := r.store.HasLike(ctx, storyID, user.ID)
	if err != nil {
		return nil, r.storeError(err, "like")
	}
	if liked {
		return nil, errConflict("story already liked")
	}

	like := &models.Like{
		AuthorID: user.ID,
		StoryID:  storyID,
	}
	if err := r.store.CreateLike(ctx, like); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errConflict("story already liked")
		}
		return nil, r.storeError(err, "story")
	}

	r.broker.Publish(pubsub.TopicNewLike, like)
	r.logger.Info("like created", zap.Uint("storyID", storyID), zap.Uint("authorID", user.ID))
	return &likeResolver{r: r, l: like}, nil
}

// DeleteUser removes an account with everything it authored. Admin only.
func (r *Resolver) DeleteUser(ctx context.Context, args IDArgs) (*userResolver, error) {
	defer observeOperation("deleteUser")()

	id, err := parseID(args.ID, "user")
	if err != nil {
		return nil, err
	}

	admin, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, gateError(err)
	}

	user, err := r.store.DeleteUser(ctx, id)
	if err != nil {
		return nil, r.storeError(err, "user")
	}

	r.logger.Info("user deleted", zap.Uint("userID", user.ID), zap.Uint("adminID", admin.ID))
	return &userResolver{r: r, u: user}, nil
}
