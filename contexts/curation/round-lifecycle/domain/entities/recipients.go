package entities

// PlaceholderUserID is the lower bound of the reserved id range used for
// non-real accounts. Ids at or above it must never receive a message.
const PlaceholderUserID int64 = 4294000000

// Messageable reports whether a creator may appear in a notification
// recipient list. Banned creators still show up in displayed credit text,
// but they are never messaged.
func (u UserSummary) Messageable() bool {
	return !u.Banned && u.ID < PlaceholderUserID
}

// RecipientIDs builds the deduplicated recipient list for a post-round
// announcement: the host and every messageable creator of each passed
// nomination, plus the round's news author. Insertion order is preserved so
// the list is deterministic for a fixed snapshot.
func RecipientIDs(passed []Nomination, newsAuthorID int64) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if id >= PlaceholderUserID {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, nomination := range passed {
		add(nomination.Beatmapset.CreatorID)
		for _, creator := range nomination.Creators {
			if !creator.Messageable() {
				continue
			}
			add(creator.ID)
		}
	}
	add(newsAuthorID)
	return ids
}

// UniqueIDs deduplicates an id list while preserving first-seen order.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
