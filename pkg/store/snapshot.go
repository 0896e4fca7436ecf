package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"

	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/vector"
)

const snapshotExt = ".snap"

// snapshotFile is the on-disk form of one jurisdiction: the full node set,
// edge set, and embedding vectors, JSON-encoded then snappy-compressed.
type snapshotFile struct {
	Version      int                  `json:"version"`
	Jurisdiction string               `json:"jurisdiction"`
	Dimensions   int                  `json:"dimensions"`
	Requirements []model.Requirement  `json:"requirements"`
	Edges        []graph.Edge         `json:"edges"`
	Vectors      map[string][]float32 `json:"vectors"`
}

const snapshotVersion = 1

// SnapshotStore persists jurisdictions as compressed snapshot files, one per
// jurisdiction, under a single directory.
type SnapshotStore struct {
	dir    string
	logger logging.Logger
}

func NewSnapshotStore(dir string, logger logging.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotStore{dir: dir, logger: logger}, nil
}

// Save writes the jurisdiction's current graph and index to disk. The write
// goes through a temp file and rename so a crash never leaves a torn
// snapshot behind.
func (s *SnapshotStore) Save(ctx context.Context, j *Jurisdiction) error {
	g, idx := j.View()

	nodeIDs := g.NodeIDs()
	requirements := make([]model.Requirement, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if req, ok := g.Node(id); ok {
			requirements = append(requirements, *req)
		}
	}

	snap := snapshotFile{
		Version:      snapshotVersion,
		Jurisdiction: j.Name(),
		Dimensions:   idx.Dimensions(),
		Requirements: requirements,
		Edges:        g.Edges(),
		Vectors:      idx.Vectors(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", j.Name(), err)
	}
	compressed := snappy.Encode(nil, data)

	path := s.path(j.Name())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("write snapshot for %s: %w", j.Name(), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize snapshot for %s: %w", j.Name(), err)
	}

	s.logger.Info("snapshot saved",
		logging.Jurisdiction(j.Name()),
		logging.Int("nodes", len(requirements)),
		logging.Int("edges", len(snap.Edges)),
		logging.Int("bytes", len(compressed)))
	return nil
}

// Load reads one jurisdiction's snapshot and rebuilds its graph and index.
func (s *SnapshotStore) Load(jurisdiction string) (*graph.Graph, *vector.Index, error) {
	compressed, err := os.ReadFile(s.path(jurisdiction))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, model.JurisdictionNotFound(jurisdiction)
		}
		return nil, nil, fmt.Errorf("read snapshot for %s: %w", jurisdiction, err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress snapshot for %s: %w", jurisdiction, err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot for %s: %w", jurisdiction, err)
	}
	if snap.Version != snapshotVersion {
		return nil, nil, fmt.Errorf("snapshot for %s has unsupported version %d", jurisdiction, snap.Version)
	}

	g := graph.New(snap.Jurisdiction)
	for i := range snap.Requirements {
		if err := g.AddNode(&snap.Requirements[i]); err != nil {
			return nil, nil, fmt.Errorf("restore node %s: %w", snap.Requirements[i].ID, err)
		}
	}
	for _, e := range snap.Edges {
		if err := g.AddEdge(e.Source, e.Target, e.Relation, e.Weight, e.Confidence); err != nil {
			return nil, nil, fmt.Errorf("restore edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	idx, err := vector.NewIndex(snap.Dimensions)
	if err != nil {
		return nil, nil, err
	}
	for id, vec := range snap.Vectors {
		if err := idx.Insert(id, vec); err != nil {
			return nil, nil, fmt.Errorf("restore vector %s: %w", id, err)
		}
	}
	return g, idx, nil
}

// LoadAll restores every snapshot in the directory into the repository.
// Snapshots whose dimensionality does not match the repository are skipped
// with a warning rather than aborting startup.
func (s *SnapshotStore) LoadAll(repo *Repository) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), snapshotExt)

		g, idx, err := s.Load(name)
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot",
				logging.Jurisdiction(name),
				logging.Error(err))
			continue
		}
		if idx.Dimensions() != repo.Dimensions() {
			s.logger.Warn("skipping snapshot with mismatched dimensions",
				logging.Jurisdiction(name),
				logging.Int("snapshot_dims", idx.Dimensions()),
				logging.Int("repo_dims", repo.Dimensions()))
			continue
		}

		j, err := repo.GetOrCreate(name)
		if err != nil {
			return err
		}
		j.Install(g, idx)
		s.logger.Info("snapshot restored", logging.Jurisdiction(name))
	}
	return nil
}

func (s *SnapshotStore) path(jurisdiction string) string {
	return filepath.Join(s.dir, jurisdiction+snapshotExt)
}
