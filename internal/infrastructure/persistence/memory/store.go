// Package memory provides an in-process implementation of every repository
// interface. It backs the worker's --store=memory mode and the tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeclub/leetboard/internal/domain/group"
	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

type sampleKey struct {
	profileID shared.ProfileID
	date      time.Time
}

type snapshotKey struct {
	groupID shared.GroupID
	date    time.Time
}

// Store keeps profiles, samples, groups and snapshots in maps guarded by a
// single RWMutex.
type Store struct {
	mu sync.RWMutex

	profiles   map[shared.ProfileID]profile.Profile
	byUsername map[shared.Username]shared.ProfileID
	samples    map[sampleKey]profile.StatSample
	groups     map[shared.GroupID]group.Group
	members    map[shared.GroupID][]shared.ProfileID
	snapshots  map[snapshotKey]leaderboard.Snapshot

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		profiles:   make(map[shared.ProfileID]profile.Profile),
		byUsername: make(map[shared.Username]shared.ProfileID),
		samples:    make(map[sampleKey]profile.StatSample),
		groups:     make(map[shared.GroupID]group.Group),
		members:    make(map[shared.GroupID][]shared.ProfileID),
		snapshots:  make(map[snapshotKey]leaderboard.Snapshot),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ profile.Repository        = (*Store)(nil)
	_ profile.SampleRepository  = (*Store)(nil)
	_ group.Repository          = (*Store)(nil)
	_ leaderboard.SnapshotStore = (*Store)(nil)
)

func day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) GetByUsername(_ context.Context, username shared.Username) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	p := s.profiles[id]
	return &p, nil
}

func (s *Store) Ensure(_ context.Context, username shared.Username) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byUsername[username]; ok {
		p := s.profiles[id]
		return &p, nil
	}
	p := profile.Profile{
		ID:        shared.ProfileID(uuid.NewString()),
		Username:  username,
		CreatedAt: s.now(),
	}
	s.profiles[p.ID] = p
	s.byUsername[username] = p.ID
	return &p, nil
}

func (s *Store) ListAll(_ context.Context) ([]profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]profile.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sortProfiles(out)
	return out, nil
}

func (s *Store) ListStale(_ context.Context, d time.Time) ([]profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d = day(d)
	var out []profile.Profile
	for id, p := range s.profiles {
		if _, ok := s.samples[sampleKey{id, d}]; !ok {
			out = append(out, p)
		}
	}
	sortProfiles(out)
	return out, nil
}

func (s *Store) DeleteOrphans(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := make(map[shared.ProfileID]bool)
	for _, ids := range s.members {
		for _, id := range ids {
			used[id] = true
		}
	}

	deleted := 0
	for id, p := range s.profiles {
		if used[id] {
			continue
		}
		delete(s.profiles, id)
		delete(s.byUsername, p.Username)
		for k := range s.samples {
			if k.profileID == id {
				delete(s.samples, k)
			}
		}
		deleted++
	}
	return deleted, nil
}

func sortProfiles(ps []profile.Profile) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Username < ps[j].Username })
}

// ══════════════════════════════════════════════════════════════════════════════
// SAMPLES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) UpsertSample(_ context.Context, sample profile.StatSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[sample.ProfileID]; !ok {
		return shared.ErrProfileNotFound
	}
	sample.Date = day(sample.Date)
	if sample.RankingPoints != nil {
		v := *sample.RankingPoints
		sample.RankingPoints = &v
	}
	s.samples[sampleKey{sample.ProfileID, sample.Date}] = sample
	return nil
}

func (s *Store) LatestSamples(_ context.Context, ids []shared.ProfileID) (map[shared.ProfileID]profile.StatSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[shared.ProfileID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	out := make(map[shared.ProfileID]profile.StatSample, len(ids))
	for k, sample := range s.samples {
		if !want[k.profileID] {
			continue
		}
		if cur, ok := out[k.profileID]; !ok || sample.Date.After(cur.Date) {
			out[k.profileID] = sample
		}
	}
	return out, nil
}

func (s *Store) SamplesInRange(_ context.Context, ids []shared.ProfileID, from, to time.Time) (map[shared.ProfileID][]profile.StatSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[shared.ProfileID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	out := make(map[shared.ProfileID][]profile.StatSample, len(ids))
	for k, sample := range s.samples {
		if !want[k.profileID] || k.date.Before(from) || k.date.After(to) {
			continue
		}
		out[k.profileID] = append(out[k.profileID], sample)
	}
	for id := range out {
		list := out[id]
		sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	}
	return out, nil
}

func (s *Store) HasSample(_ context.Context, id shared.ProfileID, d time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.samples[sampleKey{id, day(d)}]
	return ok, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUPS
// ══════════════════════════════════════════════════════════════════════════════

// AddGroup registers a group. Group management is external to the service;
// this exists for seeding tests and the memory mode.
func (s *Store) AddGroup(name string) shared.GroupID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := shared.GroupID(uuid.NewString())
	s.groups[id] = group.Group{ID: id, Name: name}
	return id
}

// AddMember adds an existing profile to a group.
func (s *Store) AddMember(groupID shared.GroupID, profileID shared.ProfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return shared.ErrGroupNotFound
	}
	if _, ok := s.profiles[profileID]; !ok {
		return shared.ErrProfileNotFound
	}
	for _, id := range s.members[groupID] {
		if id == profileID {
			return nil
		}
	}
	s.members[groupID] = append(s.members[groupID], profileID)
	return nil
}

func (s *Store) ListGroups(_ context.Context) ([]group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]group.Group, 0, len(s.groups))
	for id, g := range s.groups {
		g.MemberCount = len(s.members[id])
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetGroup(_ context.Context, id shared.GroupID) (*group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, shared.ErrGroupNotFound
	}
	g.MemberCount = len(s.members[id])
	return &g, nil
}

func (s *Store) ListMembers(_ context.Context, id shared.GroupID) ([]group.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.groups[id]; !ok {
		return nil, shared.ErrGroupNotFound
	}
	out := make([]group.Member, 0, len(s.members[id]))
	for _, pid := range s.members[id] {
		out = append(out, group.Member{ProfileID: pid, Username: s.profiles[pid].Username})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) UpsertSnapshot(_ context.Context, snap leaderboard.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Date = day(snap.Date)
	key := snapshotKey{snap.GroupID, snap.Date}
	if prev, ok := s.snapshots[key]; ok {
		snap.CreatedAt = prev.CreatedAt
	} else {
		snap.CreatedAt = s.now()
	}
	snap.Payload = clonePayload(snap.Payload)
	s.snapshots[key] = snap
	return nil
}

func (s *Store) GetSnapshot(_ context.Context, groupID shared.GroupID, date time.Time) (*leaderboard.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[snapshotKey{groupID, day(date)}]
	if !ok {
		return nil, shared.ErrSnapshotNotFound
	}
	snap.Payload = clonePayload(snap.Payload)
	return &snap, nil
}

func (s *Store) LatestSnapshot(_ context.Context, groupID shared.GroupID) (*leaderboard.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *leaderboard.Snapshot
	for k, snap := range s.snapshots {
		if k.groupID != groupID {
			continue
		}
		if latest == nil || snap.Date.After(latest.Date) {
			cp := snap
			latest = &cp
		}
	}
	if latest == nil {
		return nil, shared.ErrSnapshotNotFound
	}
	latest.Payload = clonePayload(latest.Payload)
	return latest, nil
}

// SnapshotCount returns the number of distinct (group, day) snapshots.
func (s *Store) SnapshotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

func clonePayload(p leaderboard.Payload) leaderboard.Payload {
	out := leaderboard.Payload{Version: p.Version}
	out.Leaderboard = append([]leaderboard.Entry(nil), p.Leaderboard...)
	if p.Gainers != nil {
		out.Gainers = append([]leaderboard.GainerEntry{}, p.Gainers...)
	}
	return out
}
