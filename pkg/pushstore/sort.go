package pushstore

import (
	"cmp"
	"slices"

	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

// sortByCreated orders like the Postgres store: created_at, user, endpoint.
func sortByCreated(subs []webpush.Subscription) {
	slices.SortFunc(subs, func(a, b webpush.Subscription) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Or(cmp.Compare(a.UserID, b.UserID), cmp.Compare(a.Endpoint, b.Endpoint))
	})
}
