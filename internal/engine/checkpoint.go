package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"alert-systemv1/internal/indicator"
	"alert-systemv1/internal/markethours"
)

// Checkpoint is the serialized engine state: every symbol's battery,
// ready to restore on the next start.
type Checkpoint struct {
	SavedAt   time.Time                   `json:"saved_at"`
	Batteries []indicator.BatterySnapshot `json:"batteries"`
}

// CheckpointSource reads the most recent checkpoint blob. The Redis hot
// cache and the relational store both satisfy it through small adapters
// in the caller.
type CheckpointSource func(ctx context.Context) ([]byte, error)

// Checkpoint serializes the full engine state. Batteries are ordered by
// exchange and symbol so identical state produces identical bytes.
func (e *Engine) Checkpoint() ([]byte, error) {
	cp := Checkpoint{SavedAt: time.Now().UTC(), Batteries: e.batterySnapshots()}
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("engine: encode checkpoint: %w", err)
	}
	return data, nil
}

func (e *Engine) batterySnapshots() []indicator.BatterySnapshot {
	var snaps []indicator.BatterySnapshot
	for _, s := range e.shards {
		s.mu.Lock()
		for _, b := range s.batteries {
			snaps = append(snaps, b.Snapshot())
		}
		s.mu.Unlock()
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Exchange != snaps[j].Exchange {
			return snaps[i].Exchange < snaps[j].Exchange
		}
		return snaps[i].Symbol < snaps[j].Symbol
	})
	return snaps
}

// saveCheckpoint writes the current state to the hot cache and the
// relational store. Failures are logged and the next tick tries again.
// An engine with no batteries writes nothing, so a cold restart never
// clobbers the last good checkpoint.
func (e *Engine) saveCheckpoint() {
	snaps := e.batterySnapshots()
	if len(snaps) == 0 {
		return
	}
	cp := Checkpoint{SavedAt: time.Now().UTC(), Batteries: snaps}
	data, err := json.Marshal(cp)
	if err != nil {
		log.Printf("[engine] checkpoint encode: %v", err)
		return
	}

	if e.hot != nil {
		if err := e.hot.SaveCheckpoint(data); err != nil {
			log.Printf("[engine] checkpoint cache: %v", err)
		}
	}
	if e.store != nil {
		if err := e.store.SaveCheckpointJSON(data); err != nil {
			log.Printf("[engine] checkpoint store: %v", err)
		}
	}
	if e.met != nil {
		e.met.CheckpointsTotal.Inc()
	}
	log.Printf("[engine] checkpoint saved (%d symbols)", len(snaps))
}

// Restore loads a checkpoint produced by Checkpoint. Batteries are
// rebuilt on their owning shards; a symbol whose serialized state no
// longer matches the configured periods restarts cold instead. Returns
// the number of symbols restored. Call before Run.
func (e *Engine) Restore(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, fmt.Errorf("engine: decode checkpoint: %w", err)
	}

	restored := 0
	for _, bs := range cp.Batteries {
		b := indicator.NewBattery(bs.Symbol, bs.Exchange, e.cfg.Battery)
		if err := b.Restore(bs); err != nil {
			log.Printf("[engine] restore %s: %v (starting cold)", bs.Symbol, err)
			continue
		}
		s := e.shards[shardOf(bs.Symbol, len(e.shards))]
		s.mu.Lock()
		s.batteries[bs.Exchange+":"+bs.Symbol] = b
		s.mu.Unlock()
		restored++
	}
	if restored > 0 {
		log.Printf("[engine] restored %d/%d symbols from checkpoint saved %s",
			restored, len(cp.Batteries), cp.SavedAt.UTC().Format(time.RFC3339))
		if !markethours.SameSession(cp.SavedAt, time.Now()) {
			log.Printf("[engine] checkpoint is from a previous session; session-anchored state resets on the next candle")
		}
	}
	return restored, nil
}

// RestoreFrom tries each checkpoint source in order and restores from
// the first one that yields a blob. A source that errors or has no
// checkpoint falls through to the next; a blob that fails to decode is
// an error, not a fallthrough, so a corrupt primary is loud.
func (e *Engine) RestoreFrom(ctx context.Context, sources ...CheckpointSource) (int, error) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		data, err := src(ctx)
		if err != nil {
			log.Printf("[engine] checkpoint read: %v", err)
			continue
		}
		if len(data) == 0 {
			continue
		}
		return e.Restore(data)
	}
	log.Printf("[engine] no checkpoint found, starting cold")
	return 0, nil
}
