// Package identity resolves the display name recorded on rank entries.
//
// The resolved name is a point-in-time snapshot: renaming an account
// later never rewrites existing rank rows.
package identity

import (
	"context"

	"github.com/okian/triboard/internal/domain/model"
)

// DefaultGuestPrefix matches the label the game client renders for
// anonymous players.
const DefaultGuestPrefix = "游客"

// guestIDLen is how much of the session id goes into a guest label.
const guestIDLen = 6

// AccountLookup is the collaborator capability that returns account
// records by id.
type AccountLookup interface {
	AccountByID(ctx context.Context, id string) (model.Account, error)
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithGuestPrefix overrides the guest label prefix.
func WithGuestPrefix(prefix string) Option {
	return func(r *Resolver) {
		if prefix != "" {
			r.guestPrefix = prefix
		}
	}
}

// Resolver produces the display name to record for a session.
type Resolver struct {
	lookup      AccountLookup
	guestPrefix string
}

// NewResolver creates a resolver backed by the given account lookup.
func NewResolver(lookup AccountLookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:      lookup,
		guestPrefix: DefaultGuestPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the registered username when the session is linked to
// an account with one, and a guest label otherwise. A failed or empty
// account lookup falls back to the guest label rather than failing the
// finalize path.
func (r *Resolver) Resolve(ctx context.Context, accountID, sessionID string) string {
	if accountID != "" && r.lookup != nil {
		if account, err := r.lookup.AccountByID(ctx, accountID); err == nil && account.Username != "" {
			return account.Username
		}
	}
	return r.GuestLabel(sessionID)
}

// GuestLabel forms the synthesized display name for sessions with no
// usable account: a fixed prefix plus the first 6 characters of the
// session id.
func (r *Resolver) GuestLabel(sessionID string) string {
	runes := []rune(sessionID)
	if len(runes) > guestIDLen {
		runes = runes[:guestIDLen]
	}
	return r.guestPrefix + string(runes)
}
