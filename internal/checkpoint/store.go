package checkpoint

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/heyimsteve/nichescout/internal/model"
)

// maxKeyLen bounds sanitized keys so they stay filesystem/KV safe.
const maxKeyLen = 96

// Info summarizes one stored checkpoint for listings.
type Info struct {
	Key       string    `json:"key"`
	Niche     string    `json:"niche"`
	Stage     string    `json:"stage"`
	Finalized bool      `json:"finalized"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists research checkpoints keyed by a caller-supplied resume key.
//
// The store does no locking: checkpoint writes are sequenced within one
// orchestrator instance, but two invocations sharing a resume key are not
// coordinated and the last write wins.
type Store interface {
	// Load returns the checkpoint for key, or (nil, nil) when absent.
	Load(ctx context.Context, key string) (*model.ResearchCheckpoint, error)
	Save(ctx context.Context, key string, cp *model.ResearchCheckpoint) error
	Clear(ctx context.Context, key string) error
	List(ctx context.Context) ([]Info, error)
	Close() error
}

// SanitizeKey reduces an opaque resume key to a filesystem/KV-safe token:
// lower-cased, runs of anything outside [a-z0-9._-] collapsed to one dash,
// trimmed and length-capped.
func SanitizeKey(key string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(key)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxKeyLen {
		out = out[:maxKeyLen]
	}
	if out == "" {
		out = "default"
	}
	return out
}

// MemoryStore is an in-process Store used for tests and for runs without a
// resume key (stateless one-shot mode).
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*model.ResearchCheckpoint
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{data: make(map[string]*model.ResearchCheckpoint)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (*model.ResearchCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.data[SanitizeKey(key)]
	if !ok {
		return nil, nil
	}
	return cp.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, cp *model.ResearchCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[SanitizeKey(key)] = cp.Clone()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, SanitizeKey(key))
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]Info, 0, len(s.data))
	for key, cp := range s.data {
		infos = append(infos, infoFor(key, cp))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *MemoryStore) Close() error { return nil }

func infoFor(key string, cp *model.ResearchCheckpoint) Info {
	stage := stageOf(cp)
	return Info{
		Key:       key,
		Niche:     cp.Niche,
		Stage:     string(stage),
		Finalized: cp.FinalReport != nil,
		UpdatedAt: cp.UpdatedAt,
	}
}

// stageOf derives the furthest completed stage from a checkpoint's fields.
func stageOf(cp *model.ResearchCheckpoint) model.Stage {
	switch {
	case cp.FinalReport != nil:
		return model.StageComplete
	case cp.TrendItems != nil:
		return model.StageTrend
	case cp.EnrichedCandidates != nil:
		return model.StageEnrichment
	case cp.FinalCandidates != nil:
		return model.StageCandidates
	case cp.CompletedQueryCount > 0:
		return model.StageDiscover
	default:
		return model.StageStarting
	}
}
