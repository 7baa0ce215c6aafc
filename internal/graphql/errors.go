package graphql

import (
	"fmt"

	"github.com/piwi3910/storyfeed/internal/validate"
)

// Machine-readable error codes surfaced in GraphQL error extensions.
const (
	codeValidation      = "VALIDATION_FAILED"
	codeUnauthenticated = "UNAUTHENTICATED"
	codeForbidden       = "FORBIDDEN"
	codeNotFound        = "NOT_FOUND"
	codeConflict        = "CONFLICT"
	codeBadCredentials  = "BAD_CREDENTIALS"
	codeInternal        = "INTERNAL"
)

// resolverError is the error type every resolver returns on failure. It
// carries a stable code and optional details, both exposed to clients
// through the extensions mechanism of graphql-go.
type resolverError struct {
	code    string
	message string
	details map[string]interface{}
}

func (e *resolverError) Error() string {
	return e.message
}

// Extensions implements the graphql-go ResolverError contract.
func (e *resolverError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.code}
	for k, v := range e.details {
		ext[k] = v
	}
	return ext
}

// errValidation wraps an aggregated validation failure, with the
// per-field messages in the extensions.
func errValidation(verr *validate.Error) *resolverError {
	return &resolverError{
		code:    codeValidation,
		message: verr.Error(),
		details: map[string]interface{}{"fields": verr.ByField()},
	}
}

func errUnauthenticated() *resolverError {
	return &resolverError{code: codeUnauthenticated, message: "authentication required"}
}

func errForbidden() *resolverError {
	return &resolverError{code: codeForbidden, message: "not authorized"}
}

// errNotFound covers both a genuinely missing record and an
// ownership-scoped miss; the message must not let callers tell the
// difference.
func errNotFound(resource string) *resolverError {
	return &resolverError{code: codeNotFound, message: fmt.Sprintf("%s not found", resource)}
}

func errConflict(message string) *resolverError {
	return &resolverError{code: codeConflict, message: message}
}

// errBadCredentials is the single external shape for every login
// failure. Unknown username and wrong password stay distinguishable in
// server logs only.
func errBadCredentials() *resolverError {
	return &resolverError{code: codeBadCredentials, message: "invalid username or password"}
}

func errInternal() *resolverError {
	return &resolverError{code: codeInternal, message: "internal error"}
}
