// Package leaderboard holds the per-player best score and reward-claim state.
//
// Each address moves through NoEntry -> Recorded(score, unclaimed) ->
// Recorded(score, claimed). A higher score always lands back in the unclaimed
// state, so every new personal best is claimable exactly once.
package leaderboard

import (
	"sort"
	"strings"

	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

type Entry = protocol.LeaderboardEntry

// Board is not safe for concurrent use; Store.Update serialises access.
type Board struct {
	entries []Entry
	index   map[string]int
}

func New() *Board {
	return &Board{index: map[string]int{}}
}

// FromEntries rebuilds a board from a stored array. Duplicate addresses are
// collapsed: the highest score wins and the claim flag is kept only if an
// entry holding that score was claimed.
func FromEntries(list []Entry) *Board {
	b := New()
	for _, e := range list {
		if e.Address == "" {
			continue
		}
		i, ok := b.index[e.Address]
		if !ok {
			b.index[e.Address] = len(b.entries)
			b.entries = append(b.entries, e)
			continue
		}
		cur := &b.entries[i]
		switch {
		case e.HighScore > cur.HighScore:
			*cur = e
		case e.HighScore == cur.HighScore:
			cur.HasClaimedReward = cur.HasClaimedReward || e.HasClaimedReward
		}
	}
	return b
}

// RecordScore applies a finished game's score. It returns true when the score
// created the entry or beat the stored best.
func (b *Board) RecordScore(addr string, score uint64) bool {
	if addr == "" {
		return false
	}
	i, ok := b.index[addr]
	if !ok {
		b.index[addr] = len(b.entries)
		b.entries = append(b.entries, Entry{Address: addr, HighScore: score})
		return true
	}
	if score <= b.entries[i].HighScore {
		return false
	}
	b.entries[i].HighScore = score
	b.entries[i].HasClaimedReward = false
	return true
}

// MarkClaimed flips the entry to claimed. Missing or already claimed entries
// are left alone.
func (b *Board) MarkClaimed(addr string) {
	if i, ok := b.index[addr]; ok {
		b.entries[i].HasClaimedReward = true
	}
}

func (b *Board) CanClaim(addr string) bool {
	i, ok := b.index[addr]
	if !ok {
		return false
	}
	e := b.entries[i]
	return e.HighScore > 0 && !e.HasClaimedReward
}

func (b *Board) Entry(addr string) (Entry, bool) {
	i, ok := b.index[addr]
	if !ok {
		return Entry{}, false
	}
	return b.entries[i], true
}

func (b *Board) Len() int { return len(b.entries) }

// Entries returns a copy in insertion order.
func (b *Board) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Top returns up to n scoring entries, best first.
func (b *Board) Top(n int) []Entry {
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if e.HighScore > 0 {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].HighScore != out[j].HighScore {
			return out[i].HighScore > out[j].HighScore
		}
		// tie-break by address
		return strings.ToLower(out[i].Address) < strings.ToLower(out[j].Address)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
