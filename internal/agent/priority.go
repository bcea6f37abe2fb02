package agent

import (
	"sort"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
)

// PrioritizeSenders orders senders for processing: junk senders first, then
// senders with any unsubscribe mechanism, then by message count descending.
// The sort is stable so senders that tie keep their input order, and the
// result is a frozen id list suitable for persisting on the run.
func PrioritizeSenders(senders []*models.Sender) []int64 {
	ordered := make([]*models.Sender, len(senders))
	copy(ordered, senders)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]

		aJunk := a.JunkScore >= JunkThreshold
		bJunk := b.JunkScore >= JunkThreshold
		if aJunk != bJunk {
			return aJunk
		}

		aUnsub := a.UnsubscribeMethod != models.UnsubscribeNone
		bUnsub := b.UnsubscribeMethod != models.UnsubscribeNone
		if aUnsub != bUnsub {
			return aUnsub
		}

		return a.MessageCount > b.MessageCount
	})

	ids := make([]int64, len(ordered))
	for i, s := range ordered {
		ids[i] = s.ID
	}
	return ids
}
