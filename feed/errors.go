package feed

import (
	stderrors "errors"

	"github.com/jackc/pgconn"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidSource means a URL did not yield a parseable feed at
	// subscription time. Not retried automatically.
	ErrInvalidSource = errors.New("invalid feed source: URL does not yield a parseable feed")

	// ErrNoContent means a generation request's source set and date range
	// matched zero stored articles after refresh. Downstream generation
	// cannot proceed from nothing, so this is a user-facing failure rather
	// than an empty success.
	ErrNoContent = errors.New("no articles found for the selected sources and date range")
)

const pgUniqueViolation = "23505"

// isDuplicateKey reports whether err is a unique-constraint violation from
// the store. Identity-key collisions under concurrent refresh surface this
// way and are a normal merge outcome, never bubbled to the end user.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
