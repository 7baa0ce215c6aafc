// Package graphql exposes the stories API as a GraphQL schema. The SDL
// lives in this file; resolvers are hand-written against
// graph-gophers/graphql-go with one store call per field.
package graphql

import (
	graphqlgo "github.com/graph-gophers/graphql-go"
)

// SchemaSDL is the complete schema definition for the stories API.
const SchemaSDL = `
schema {
	query: Query
	mutation: Mutation
	subscription: Subscription
}

scalar Time

type Query {
	# info returns a static description of the API.
	info: String!

	# feed lists stories newest-first. filter is a case-insensitive
	# substring match on titles; offset/limit paginate.
	feed(filter: String, offset: Int, limit: Int): [Story!]!

	# me returns the authenticated user. Anonymous requests get an
	# unauthenticated error.
	me: User

	# users lists all registered accounts. Admin only.
	users: [User!]!
}

type Mutation {
	# register creates an account and signs the user in.
	register(username: String!, email: String!, password: String!, confirmedPassword: String!): AuthPayload!

	# login exchanges credentials for a bearer token.
	login(username: String!, password: String!): AuthPayload!

	# createStory posts a new story as the authenticated user.
	createStory(title: String!, text: String!): Story!

	# updateStory rewrites title and text of an owned story.
	updateStory(id: ID!, title: String!, text: String!): Story!

	# deleteStory removes an owned story with its comments and likes.
	deleteStory(id: ID!): Story!

	# comment posts a comment on an existing story.
	comment(storyId: ID!, text: String!): Comment!

	# deleteComment removes an owned comment.
	deleteComment(id: ID!): Comment!

	# like records the authenticated user liking a story, at most once.
	like(storyId: ID!): Like!

	# deleteUser removes an account with everything it authored. Admin only.
	deleteUser(id: ID!): User!
}

type Subscription {
	# newStory fires for every story created after subscribing.
	newStory: Story!

	# newComment fires for every comment created after subscribing.
	newComment: Comment!

	# newLike fires for every like recorded after subscribing.
	newLike: Like!
}

type AuthPayload {
	token: String!
	user: User!
}

type User {
	id: ID!
	username: String!
	email: String!
	isAdmin: Boolean!
	createdAt: Time!
	stories: [Story!]!
	comments: [Comment!]!
}

type Story {
	id: ID!
	title: String!
	text: String!
	createdAt: Time!
	author: User
	comments: [Comment!]!
	likes: [Like!]!
}

type Comment {
	id: ID!
	text: String!
	createdAt: Time!
	author: User
	story: Story!
}

type Like {
	id: ID!
	createdAt: Time!
	author: User
	story: Story!
}
`

// NewSchema parses the SDL against a resolver root. Panics on SDL or
// resolver mismatch, which only happens on programmer error.
func NewSchema(resolver *Resolver) *graphqlgo.Schema {
	return graphqlgo.MustParseSchema(SchemaSDL, resolver)
}
