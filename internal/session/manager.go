package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/joelkehle/strategy-workbench/internal/project"
)

// Repository is the persistence boundary for whole projects.
type Repository interface {
	LoadProject(ctx context.Context, profileID string) (project.Snapshot, error)
	SaveProject(ctx context.Context, snap project.Snapshot) error
}

type entry struct {
	mu      sync.Mutex
	sess    *Session
	deleted bool
}

// Manager keeps live sessions by profile ID, loading them lazily and writing
// every successful mutation back to the repository. A nil repository keeps
// everything in memory.
type Manager struct {
	mu      sync.Mutex
	repo    Repository
	entries map[string]*entry
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo, entries: make(map[string]*entry)}
}

func (m *Manager) Create(ctx context.Context, profile project.Profile) (*Session, error) {
	if err := project.ValidateProfile(profile); err != nil {
		return nil, err
	}
	sess := New(profile)
	if err := m.save(ctx, sess); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.entries[sess.ID()] = &entry{sess: sess}
	m.mu.Unlock()
	return sess, nil
}

// Import installs a snapshot as a session. A snapshot without a profile ID
// gets a fresh one, and its strategies get fresh IDs with it so the copy
// shares no records with the profile it was exported from.
func (m *Manager) Import(ctx context.Context, snap project.Snapshot) (*Session, error) {
	if err := project.ValidateSnapshot(snap); err != nil {
		return nil, err
	}
	fresh := snap.Profile.ID == ""
	if fresh {
		snap.Profile.ID = uuid.NewString()
	}
	snap.Strategies = append([]project.Strategy{}, snap.Strategies...)
	for i := range snap.Strategies {
		snap.Strategies[i].ProfileID = snap.Profile.ID
		if fresh {
			snap.Strategies[i].ID = uuid.NewString()
		}
	}
	sess := FromSnapshot(snap)
	if err := m.save(ctx, sess); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.entries[sess.ID()] = &entry{sess: sess}
	m.mu.Unlock()
	return sess, nil
}

func (m *Manager) Get(ctx context.Context, profileID string) (*Session, error) {
	e, err := m.entry(ctx, profileID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, deletedError(profileID)
	}
	return e.sess, nil
}

func (m *Manager) entry(ctx context.Context, profileID string) (*entry, error) {
	m.mu.Lock()
	e, ok := m.entries[profileID]
	m.mu.Unlock()
	if ok {
		return e, nil
	}
	if m.repo == nil {
		return nil, project.ErrNotFound
	}
	snap, err := m.repo.LoadProject(ctx, profileID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[profileID]; ok {
		return e, nil
	}
	e = &entry{sess: FromSnapshot(snap)}
	m.entries[profileID] = e
	return e, nil
}

// Update runs fn against the session and persists the result when fn
// succeeds. If fn or the save fails the session is put back the way it was.
// Updates to one session are serialized end to end.
func (m *Manager) Update(ctx context.Context, profileID string, fn func(*Session) error) (*Session, error) {
	e, err := m.entry(ctx, profileID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, deletedError(profileID)
	}
	before := e.sess.Snapshot()
	err = fn(e.sess)
	if err == nil {
		err = m.save(ctx, e.sess)
	}
	if err != nil {
		if rerr := e.sess.Restore(before); rerr != nil {
			log.Printf("session rollback failed profile=%s err=%v", profileID, rerr)
		}
		return e.sess, err
	}
	return e.sess, nil
}

// Delete removes a profile through del while holding its session, so an
// Update queued behind it fails with ErrNotFound instead of saving the
// profile back. The retired entry stays cached as a tombstone.
func (m *Manager) Delete(ctx context.Context, profileID string, del func(context.Context) error) error {
	e, err := m.entry(ctx, profileID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return deletedError(profileID)
	}
	if err := del(ctx); err != nil {
		return err
	}
	e.deleted = true
	return nil
}

func deletedError(profileID string) error {
	return fmt.Errorf("profile %q: %w", profileID, project.ErrNotFound)
}

// Forget drops a cached session so the next access reloads it from the
// repository.
func (m *Manager) Forget(profileID string) {
	m.mu.Lock()
	delete(m.entries, profileID)
	m.mu.Unlock()
}

func (m *Manager) save(ctx context.Context, sess *Session) error {
	if m.repo == nil {
		return nil
	}
	snap := sess.Snapshot()
	if err := m.repo.SaveProject(ctx, snap); err != nil {
		log.Printf("session save failed profile=%s err=%v", snap.Profile.ID, err)
		return err
	}
	return nil
}

// IsNotFound reports whether err means the profile or record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, project.ErrNotFound)
}
