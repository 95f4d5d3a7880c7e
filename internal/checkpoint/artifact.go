package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/heyimsteve/nichescout/internal/model"
)

// ArtifactKind identifies recovery artifact files.
const ArtifactKind = "recovery-artifact"

// ArtifactVersion is bumped when the artifact layout changes.
const ArtifactVersion = 1

// Artifact is a durable snapshot written when a run completes degraded. It
// can later be imported to seed a fresh checkpoint entry and resume.
type Artifact struct {
	Kind             string                    `json:"kind"`
	Version          int                       `json:"version"`
	ID               string                    `json:"id"`
	CheckpointKey    string                    `json:"checkpoint_key"`
	RecoveryMessages []string                  `json:"recovery_messages"`
	Report           *model.Report             `json:"report,omitempty"`
	Checkpoint       *model.ResearchCheckpoint `json:"checkpoint"`
	WrittenAt        time.Time                 `json:"written_at"`
}

// WriteArtifact persists a recovery artifact under dir and returns its path.
func WriteArtifact(dir, key string, messages []string, report *model.Report, cp *model.ResearchCheckpoint) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "checkpoint: create artifacts dir %s", dir)
	}

	art := Artifact{
		Kind:             ArtifactKind,
		Version:          ArtifactVersion,
		ID:               uuid.NewString(),
		CheckpointKey:    SanitizeKey(key),
		RecoveryMessages: messages,
		Report:           report,
		Checkpoint:       cp,
		WrittenAt:        time.Now().UTC(),
	}

	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "checkpoint: marshal artifact")
	}

	name := fmt.Sprintf("%s-%s-%s.json", art.CheckpointKey, art.WrittenAt.Format("20060102T150405Z"), art.ID[:8])
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "checkpoint: write artifact %s", path)
	}
	return path, nil
}

// ImportArtifact reads a recovery artifact and seeds the store with its
// checkpoint under the artifact's key, so a later run can resume from it.
func ImportArtifact(ctx context.Context, store Store, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "checkpoint: read artifact %s", path)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return "", eris.Wrapf(err, "checkpoint: unmarshal artifact %s", path)
	}
	if art.Kind != ArtifactKind {
		return "", eris.Errorf("checkpoint: not a recovery artifact: %s", path)
	}
	if art.Version != ArtifactVersion {
		return "", eris.Errorf("checkpoint: unsupported artifact version %d", art.Version)
	}
	if art.Checkpoint == nil {
		return "", eris.Errorf("checkpoint: artifact has no checkpoint: %s", path)
	}

	if err := store.Save(ctx, art.CheckpointKey, art.Checkpoint); err != nil {
		return "", err
	}
	return art.CheckpointKey, nil
}
