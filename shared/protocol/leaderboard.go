package protocol

// LeaderboardEntry is one player's best score and whether its reward was claimed.
type LeaderboardEntry struct {
	Address          string `json:"address"`
	HighScore        uint64 `json:"highScore"`
	HasClaimedReward bool   `json:"hasClaimedReward"`
}

type Leaderboard struct {
	Items       []LeaderboardEntry `json:"items"`
	GeneratedAt int64              `json:"generated_at"` // Unix ms (optional, for cache/debug)
}
