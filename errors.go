package users

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// ErrIdentityNotFound is returned when no user record resolves for a given
// identifier. This is the "username not found" failure kind: the HTTP layer
// maps it to 404, the request filter degrades it to an anonymous pass-through.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrTokenExpired is returned when a token's exp claim is in the past.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers every other verification failure: unparseable
// payload, unexpected signing method, signature mismatch.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned when the account exists but the
// password does not match. Unknown identifiers surface as ErrIdentityNotFound
// instead, keeping the two failure kinds distinguishable to callers.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned when an account exceeded the attempt
// budget inside the cooldown window.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
	WithTextCode("TOO_MANY_LOGIN_ATTEMPTS").
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountInactive is returned when the account exists but was deactivated.
var ErrAccountInactive = goerrors.New("account is inactive", goerrors.CategoryAuth).
	WithTextCode("ACCOUNT_INACTIVE").
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken is returned on registration when the email already exists.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(goerrors.CodeConflict)

// ErrNoEmptyString guards inputs that must carry a value, e.g. passwords
// before hashing and token subjects before signing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithTextCode("EMPTY_VALUE").
	WithCode(goerrors.CodeBadRequest)

// ErrUnableToFindSession is the error when our request has no token
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT claims into a session
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == ErrTokenExpired.TextCode {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == ErrTokenMalformed.TextCode {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsInvalidTokenError reports whether err belongs to the single failure
// category the request filter reacts to: expired, malformed, unparseable,
// or signature-mismatched tokens all land here.
func IsInvalidTokenError(err error) bool {
	return IsTokenExpiredError(err) || IsMalformedError(err)
}

// IsIdentityNotFoundError will check for unresolved identities
func IsIdentityNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == ErrIdentityNotFound.TextCode {
		return true
	}

	// repository misses carry their own category, accept those too
	return goerrors.IsNotFound(err) || repository.IsRecordNotFound(err)
}
