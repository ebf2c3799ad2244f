package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/AFK4203/Book-generator-V3/internal/story"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	store := NewSessionStore(NewFileSystem(t.TempDir()))
	ctx := context.Background()

	session := story.NewSession(story.Input{
		CentralTheme:  "belonging",
		MainPremise:   "a lighthouse keeper inherits a door that opens somewhere new each dawn",
		TotalChapters: 3,
	})
	snap := session.Snapshot()

	if err := store.Put(ctx, snap); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != snap.ID {
		t.Errorf("ID = %q, want %q", got.ID, snap.ID)
	}
	if got.CurrentPhase != story.PhaseInitialized {
		t.Errorf("CurrentPhase = %q, want initialized", got.CurrentPhase)
	}
	if got.Input.MainPremise != snap.Input.MainPremise {
		t.Errorf("MainPremise = %q, want %q", got.Input.MainPremise, snap.Input.MainPremise)
	}

	// A put with the same id replaces the record.
	if err := session.Advance(story.PhaseOrchestration, 5); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, session.Snapshot()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err = store.Get(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CurrentPhase != story.PhaseOrchestration {
		t.Errorf("CurrentPhase after update = %q, want orchestration", got.CurrentPhase)
	}

	ids, err := store.IDs(ctx)
	if err != nil {
		t.Fatalf("IDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != snap.ID {
		t.Errorf("IDs() = %v, want [%s]", ids, snap.ID)
	}

	if err := store.Delete(ctx, snap.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, snap.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStoreGetUnknown(t *testing.T) {
	store := NewSessionStore(NewFileSystem(t.TempDir()))

	_, err := store.Get(context.Background(), "no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() error = %v, want ErrSessionNotFound", err)
	}
}
