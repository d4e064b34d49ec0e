package metadata

// --- SQLite Keys ---
// These keys are used for the 'key' column in the 'metadata' SQLite table.
const (
	// LastCommittedVoteIDKey stores the ID of the last vote record that was
	// durably committed by the vote processor's batch drain loop.
	LastCommittedVoteIDKey = "last_committed_vote_id"

	// EventResetAtKey stores the timestamp of the last full destructive reset.
	EventResetAtKey = "event_reset_at"
)

// --- Redis Keys ---
// These keys are used for storing metadata in the Redis mirror.
const (
	// RedisLastCommittedVoteIDKey is a Redis String that mirrors the live
	// commit checkpoint of the vote processor.
	RedisLastCommittedVoteIDKey = "meta:last_committed_vote_id"

	// RedisTotalVotesKey is a Redis String (used as a counter) that mirrors
	// the live total number of committed votes.
	RedisTotalVotesKey = "meta:total_votes"
)
