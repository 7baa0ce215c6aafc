package graphql

import (
	"context"

	"github.com/piwi3910/storyfeed/internal/models"
	"github.com/piwi3910/storyfeed/internal/pubsub"
)

// Subscription resolvers bridge broker topics onto resolver channels.
// Each subscriber gets its own goroutine that stops when the broker
// closes the upstream channel or the subscription context ends.

// NewStory resolves the newStory subscription.
func (r *Resolver) NewStory(ctx context.Context) <-chan *storyResolver {
	events := r.broker.Subscribe(ctx, pubsub.TopicNewStory)
	out := make(chan *storyResolver)
	go func() {
		defer close(out)
		for evt := range events {
			story, ok := evt.(*models.Story)
			if !ok {
				continue
			}
			select {
			case out <- &storyResolver{r: r, s: story}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// NewComment resolves the newComment subscription.
func (r *Resolver) NewComment(ctx context.Context) <-chan *commentResolver {
	events := r.broker.Subscribe(ctx, pubsub.TopicNewComment)
	out := make(chan *commentResolver)
	go func() {
		defer close(out)
		for evt := range events {
			comment, ok := evt.(*models.Comment)
			if !ok {
				continue
			}
			select {
			case out <- &commentResolver{r: r, c: comment}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// NewLike resolves the newLike subscription.
func (r *Resolver) NewLike(ctx context.Context) <-chan *likeResolver {
	events := r.broker.Subscribe(ctx, pubsub.TopicNewLike)
	out := make(chan *likeResolver)
	go func() {
		defer close(out)
		for evt := range events {
			like, ok := evt.(*models.Like)
			if !ok {
				continue
			}
			select {
			case out <- &likeResolver{r: r, l: like}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
