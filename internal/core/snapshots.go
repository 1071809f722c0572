package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"polity/internal/blob"
	"polity/pkg/domain"
)

// SnapshotPrefix is the archive key prefix of exported snapshots.
const SnapshotPrefix = "snapshots/"

// ErrNoArchive is returned by snapshot operations when no blob store is configured.
var ErrNoArchive = errors.New("snapshot archive not configured")

type restorer interface {
	Restore(ctx context.Context, snapshot domain.Snapshot) error
}

func (s *Service) requireArchive() error {
	if s.archive == nil {
		return ErrNoArchive
	}
	return nil
}

// Export writes the full store state to the archive as
// snapshots/<timestamp>.json and returns the stored blob.
func (s *Service) Export(ctx context.Context) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, "export_snapshot", func(ctx context.Context) (string, error) {
		if err := s.requireArchive(); err != nil {
			return "", err
		}
		state := s.store.ExportState()
		payload, err := json.Marshal(state)
		if err != nil {
			return "", fmt.Errorf("encode snapshot: %w", err)
		}
		now := s.now()
		key := SnapshotPrefix + now.UTC().Format("20060102T150405.000000000Z") + ".json"
		info, err = s.archive.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: "application/json",
			Metadata: map[string]string{
				"persons":       strconv.Itoa(len(state.Persons)),
				"organizations": strconv.Itoa(len(state.Organizations)),
				"posts":         strconv.Itoa(len(state.Posts)),
				"memberships":   strconv.Itoa(len(state.Memberships)),
			},
		})
		return key, err
	})
	return info, err
}

// ListSnapshots returns the archived snapshots ordered by key, oldest first.
func (s *Service) ListSnapshots(ctx context.Context) ([]blob.Info, error) {
	if err := s.requireArchive(); err != nil {
		return nil, err
	}
	return s.archive.List(ctx, SnapshotPrefix)
}

// Restore replaces the store state with the archived snapshot at key and
// rebuilds the search index from it.
func (s *Service) Restore(ctx context.Context, key string) (ReindexReport, error) {
	err := s.run(ctx, "restore_snapshot", func(ctx context.Context) (string, error) {
		if err := s.requireArchive(); err != nil {
			return key, err
		}
		_, body, err := s.archive.Get(ctx, key)
		if err != nil {
			return key, err
		}
		defer body.Close()
		var snapshot domain.Snapshot
		if err := json.NewDecoder(body).Decode(&snapshot); err != nil {
			return key, fmt.Errorf("decode snapshot %s: %w", key, err)
		}
		if r, ok := s.store.(restorer); ok {
			return key, r.Restore(ctx, snapshot)
		}
		s.store.ImportState(snapshot)
		return key, nil
	})
	if err != nil {
		return ReindexReport{}, err
	}
	return s.Reindex(ctx)
}
