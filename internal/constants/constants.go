package constants

import "time"

type contextKey string

const (
	// ContextKeyUserID is the gin context and session key holding the authenticated user ID.
	ContextKeyUserID = "user_id"
	// SessionKeyToken stores the issued JWT for cookie based clients.
	SessionKeyToken = "token"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "hierarchy_session"

	// LoggerKey carries the request scoped *logrus.Entry in a context.Context.
	LoggerKey contextKey = "logger"
	// ActorKey carries the authenticated services.Actor in a context.Context.
	ActorKey contextKey = "actor"
)

const (
	MinPasswordLength = 6

	MinPageSize     = 1
	DefaultPageSize = 25
	MaxPageSize     = 100
)

const (
	// ResetTokenBytes is the amount of random bytes in an issued reset token.
	ResetTokenBytes = 20
	// ResetTokenTTL bounds how long a reset token can be redeemed.
	ResetTokenTTL = 10 * time.Minute
)

const (
	// DefaultProductImage is the placeholder image of a product without uploads.
	DefaultProductImage = "no-image.jpg"
	// ProductImagePrefix prefixes stored product image filenames.
	ProductImagePrefix = "IMG"
)
