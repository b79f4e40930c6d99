package users

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultTokenExpiration is the validity window, in hours, applied when the
// configuration does not provide one.
const DefaultTokenExpiration = 24

// TokenService produces and consumes signed identity tokens. Issue and Verify
// are inverses: a token returned by Issue verifies successfully against the
// same signing key until its expiration passes.
type TokenService interface {
	TokenValidator
	Issue(subject string, extraClaims map[string]any) (string, error)
	ExtractSubject(tokenString string) (string, error)
	IsValidFor(tokenString, expectedSubject string) bool
	SignClaims(claims *JWTClaims) (string, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpiration
	}
	return &TokenServiceImpl{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
	}
}

// Issue creates a signed token asserting the given subject. The extraClaims
// mapping is carried verbatim in the token's extension payload; no caller is
// required to populate it.
func (ts *TokenServiceImpl) Issue(subject string, extraClaims map[string]any) (string, error) {
	if subject == "" {
		return "", errors.Wrap(ErrNoEmptyString, errors.CategoryValidation, "token subject is required")
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
		Ext: extraClaims,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a token string, returning structured claims.
// Every failure collapses into the invalid-token category: expired tokens
// surface as ErrTokenExpired, anything else as ErrTokenMalformed. Callers
// that need a single bucket can test with IsInvalidTokenError.
func (ts *TokenServiceImpl) Verify(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService verify could not decode or validate claims")
	return nil, ErrTokenMalformed
}

// Validate satisfies the TokenValidator interface.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	return ts.Verify(tokenString)
}

// ExtractSubject returns the subject a token asserts, or an invalid-token
// error when verification fails for any reason.
func (ts *TokenServiceImpl) ExtractSubject(tokenString string) (string, error) {
	claims, err := ts.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject(), nil
}

// IsValidFor reports whether the token verifies and asserts exactly the
// expected subject. This is a boolean boundary: verification failures yield
// false, never an error, so callers can treat a mismatch as a soft outcome.
func (ts *TokenServiceImpl) IsValidFor(tokenString, expectedSubject string) bool {
	claims, err := ts.Verify(tokenString)
	if err != nil {
		return false
	}
	return claims.Subject() == expectedSubject
}
