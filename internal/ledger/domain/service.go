package domain

// Ledger is the in-memory collection ledger, ordered most recent first.
// Callers serialize mutations.
type Ledger interface {
	// Normalize fills defaults and validates c without mutating the ledger.
	Normalize(c Candidate) (CollectionEntry, error)
	// Accepts reports whether Add would succeed for c.
	Accepts(c Candidate) bool
	Add(c Candidate) (CollectionEntry, error)
	Remove(id string) (CollectionEntry, error)
	// RemoveBestMatch deletes the first entry matching q on date, amount
	// within tolerance and domain. Two entries sharing all three cannot be
	// told apart; the most recent one is removed.
	RemoveBestMatch(q MatchQuery) (CollectionEntry, error)
	Get(id string) (CollectionEntry, bool)
	Entries() []CollectionEntry
	// Load replaces the ledger with stored entries, assigning missing ids and
	// kinds, and rebuilds the dedup index.
	Load(entries []CollectionEntry)
	RebuildDedupIndex()
	Len() int
}
