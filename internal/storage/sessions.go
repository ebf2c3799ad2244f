package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// ErrSessionNotFound is returned when loading an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists session snapshots as one JSON document per
// session. Reads are point lookups by id, writes replace the whole
// document; there are no partial updates and no queries.
type SessionStore struct {
	fs *FileSystem
}

// NewSessionStore builds a store over the given filesystem.
func NewSessionStore(fs *FileSystem) *SessionStore {
	return &SessionStore{fs: fs}
}

func sessionPath(id string) string {
	return path.Join("sessions", id+".json")
}

// Put writes the snapshot, replacing any previous record.
func (s *SessionStore) Put(ctx context.Context, snap story.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", snap.ID, err)
	}
	if err := s.fs.Save(ctx, sessionPath(snap.ID), data); err != nil {
		return fmt.Errorf("saving session %s: %w", snap.ID, err)
	}
	return nil
}

// Get reads one session snapshot by id.
func (s *SessionStore) Get(ctx context.Context, id string) (story.Snapshot, error) {
	data, err := s.fs.Load(ctx, sessionPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return story.Snapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return story.Snapshot{}, fmt.Errorf("loading session %s: %w", id, err)
	}
	var snap story.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return story.Snapshot{}, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return snap, nil
}

// IDs lists the stored session ids.
func (s *SessionStore) IDs(ctx context.Context) ([]string, error) {
	matches, err := s.fs.List(ctx, "sessions/*.json")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(path.Base(m), ".json"))
	}
	return ids, nil
}

// Delete removes a session record.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.fs.Delete(ctx, sessionPath(id))
}
