package claims

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/rs/zerolog"

	"github.com/rohit-710/wallet-bounce/server/types"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

// Ledger records which (address, score) pairs have been paid. Every
// state change for one address runs under that address's lock; the file
// write is serialised separately.
type Ledger struct {
	path string
	log  zerolog.Logger
	now  func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	mu      sync.RWMutex
	pending map[string]protocol.ClaimRecord   // never persisted
	history map[string][]protocol.ClaimRecord // submitted or failed, oldest first

	fileMu sync.Mutex
}

type fileFormat struct {
	Version int                               `json:"version"`
	Claims  map[string][]protocol.ClaimRecord `json:"claims"`
}

const fileVersion = 1

func Open(dataDir string, logger zerolog.Logger) (*Ledger, error) {
	l := &Ledger{
		path:    filepath.Join(dataDir, "claims.json"),
		log:     logger.With().Str("component", "claims").Logger(),
		now:     time.Now,
		locks:   map[string]*sync.Mutex{},
		pending: map[string]protocol.ClaimRecord{},
		history: map[string][]protocol.ClaimRecord{},
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) load() error {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read claims file: %w", err)
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		l.log.Warn().Err(err).Str("path", l.path).Msg("claims file corrupt, starting empty")
		return nil
	}
	for addr, recs := range f.Claims {
		for _, r := range recs {
			if r.State == protocol.ClaimSubmitted || r.State == protocol.ClaimFailed {
				l.history[addr] = append(l.history[addr], r)
			}
		}
	}
	return nil
}

func (l *Ledger) lockFor(addr string) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	m, ok := l.locks[addr]
	if !ok {
		m = &sync.Mutex{}
		l.locks[addr] = m
	}
	return m
}

// Reserve marks a claim for (addr, score) as pending. It fails with
// ErrClaimInFlight while another claim for addr is pending, and with
// ErrAlreadyClaimed when a submitted claim already covers score.
func (l *Ledger) Reserve(addr string, score uint64) error {
	lock := l.lockFor(addr)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.pending[addr]; busy {
		return errorsmod.Wrapf(types.ErrClaimInFlight, "address %s", addr)
	}
	if best, ok := l.bestLocked(addr); ok && best >= score {
		return errorsmod.Wrapf(types.ErrAlreadyClaimed, "address %s score %d (paid up to %d)", addr, score, best)
	}
	ts := l.now().UnixMilli()
	l.pending[addr] = protocol.ClaimRecord{
		Address:   addr,
		Score:     score,
		State:     protocol.ClaimPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	return nil
}

// Release drops a pending reservation after a failed dispense.
func (l *Ledger) Release(addr string, score uint64) {
	lock := l.lockFor(addr)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.pending[addr]; ok && rec.Score == score {
		delete(l.pending, addr)
	}
}

// Commit turns the pending reservation into a submitted record and persists
// the ledger. The record is kept in memory even if the write fails, so a
// paid claim is never offered again while the process lives.
func (l *Ledger) Commit(addr string, score uint64, signature string) error {
	lock := l.lockFor(addr)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	rec, ok := l.pending[addr]
	if !ok || rec.Score != score {
		l.mu.Unlock()
		return errorsmod.Wrapf(types.ErrInvalidInput, "no pending claim for %s score %d", addr, score)
	}
	delete(l.pending, addr)
	rec.State = protocol.ClaimSubmitted
	rec.Signature = signature
	rec.UpdatedAt = l.now().UnixMilli()
	l.history[addr] = append(l.history[addr], rec)
	l.mu.Unlock()

	return l.save()
}

// MarkFailed flags the submitted claim paid by signature as failed, which
// frees its score for another claim. It reports whether a record changed.
func (l *Ledger) MarkFailed(signature string) (bool, error) {
	if signature == "" {
		return false, nil
	}
	l.mu.Lock()
	changed := false
	for addr, recs := range l.history {
		for i := range recs {
			if recs[i].Signature == signature && recs[i].State == protocol.ClaimSubmitted {
				recs[i].State = protocol.ClaimFailed
				recs[i].UpdatedAt = l.now().UnixMilli()
				changed = true
				l.log.Warn().Str("address", addr).Uint64("score", recs[i].Score).Str("signature", signature).Msg("reward transaction failed, score released")
			}
		}
	}
	l.mu.Unlock()

	if !changed {
		return false, nil
	}
	return true, l.save()
}

// History returns the recorded claims for addr, oldest first.
func (l *Ledger) History(addr string) []protocol.ClaimRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]protocol.ClaimRecord, len(l.history[addr]))
	copy(out, l.history[addr])
	return out
}

// Pending reports whether addr has a claim in flight.
func (l *Ledger) Pending(addr string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.pending[addr]
	return ok
}

func (l *Ledger) bestLocked(addr string) (uint64, bool) {
	recs := l.history[addr]
	if len(recs) == 0 {
		return 0, false
	}
	var best uint64
	found := false
	for _, r := range recs {
		if r.State != protocol.ClaimSubmitted {
			continue
		}
		found = true
		if r.Score > best {
			best = r.Score
		}
	}
	return best, found
}

func (l *Ledger) snapshotLocked() fileFormat {
	f := fileFormat{Version: fileVersion, Claims: make(map[string][]protocol.ClaimRecord, len(l.history))}
	for addr, recs := range l.history {
		cp := make([]protocol.ClaimRecord, len(recs))
		copy(cp, recs)
		sort.SliceStable(cp, func(i, j int) bool { return cp[i].CreatedAt < cp[j].CreatedAt })
		f.Claims[addr] = cp
	}
	return f
}

// save writes the latest snapshot; taking it under fileMu keeps a slower
// writer from replacing a newer file with an older view.
func (l *Ledger) save() error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	l.mu.RLock()
	f := l.snapshotLocked()
	l.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create claims directory: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal claims: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp claims file: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename claims file: %w", err)
	}
	return nil
}
