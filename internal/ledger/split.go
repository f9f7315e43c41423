package ledger

import (
	"fmt"
	"sort"
)

// SuggestEqualSplit divides a bill total evenly among members, in cents.
// Division remainders are spread one cent at a time across members in
// sorted-ID order, so the shares always sum exactly to the total and the
// same inputs always produce the same suggestion.
//
// This is advisory only: clients use it to pre-fill multiple_payers
// transfers, but each transfer remains an independent amount bounded
// only by the bill aggregate guard.
func SuggestEqualSplit(totalCents int64, memberIDs []string) (map[string]int64, error) {
	if totalCents <= 0 {
		return nil, fmt.Errorf("%w: total must be positive", ErrInvalidArgument)
	}
	if len(memberIDs) == 0 {
		return nil, fmt.Errorf("%w: must have at least one member", ErrInvalidArgument)
	}

	ids := make([]string, 0, len(memberIDs))
	seen := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: must have at least one member", ErrInvalidArgument)
	}
	sort.Strings(ids)

	n := int64(len(ids))
	base := totalCents / n
	remainder := totalCents % n

	shares := make(map[string]int64, len(ids))
	for i, id := range ids {
		share := base
		if int64(i) < remainder {
			share++
		}
		shares[id] = share
	}
	return shares, nil
}
