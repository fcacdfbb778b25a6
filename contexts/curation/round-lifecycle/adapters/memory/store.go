package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"curator/contexts/curation/round-lifecycle/domain/entities"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	"curator/contexts/curation/round-lifecycle/ports"
)

type threadKey struct {
	roundID int64
	mode    entities.GameMode
}

// Store is the in-memory persistence adapter. It backs the round provider,
// thread registry and poll store ports from seeded state, joining polls into
// round snapshots the way the relational adapter does.
type Store struct {
	mu sync.RWMutex

	rounds     map[int64]entities.RoundSnapshot
	threadMeta map[threadKey]entities.ThreadMeta
	polls      []entities.Poll
	pollLogs   []ports.PollUpdatedLog
	removed    []ports.NominationRef
	nextPollID int64

	FailPut error
}

func NewStore() *Store {
	return &Store{
		rounds:     make(map[int64]entities.RoundSnapshot),
		threadMeta: make(map[threadKey]entities.ThreadMeta),
		nextPollID: 1,
	}
}

func (s *Store) SeedRound(snapshot entities.RoundSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[snapshot.Round.ID] = snapshot
}

func (s *Store) SeedPoll(poll entities.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if poll.ID >= s.nextPollID {
		s.nextPollID = poll.ID + 1
	}
	s.polls = append(s.polls, poll)
}

func (s *Store) SeedThreadMeta(meta entities.ThreadMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadMeta[threadKey{meta.RoundID, meta.GameMode}] = meta
}

var _ ports.RoundProvider = (*Store)(nil)

func (s *Store) GetRound(_ context.Context, roundID int64) (entities.RoundSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.rounds[roundID]
	if !ok {
		return entities.RoundSnapshot{}, domainerrors.ErrRoundNotFound
	}
	out := snapshot
	out.Nominations = make([]entities.Nomination, len(snapshot.Nominations))
	copy(out.Nominations, snapshot.Nominations)
	for i := range out.Nominations {
		out.Nominations[i].Poll = s.findPoll(
			roundID,
			out.Nominations[i].Beatmapset.ID,
			out.Nominations[i].GameMode,
		)
	}
	return out, nil
}

func (s *Store) GetNomination(_ context.Context, nominationID int64) (ports.NominationRef, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, snapshot := range s.rounds {
		for _, nomination := range snapshot.Nominations {
			if nomination.ID == nominationID {
				return ports.NominationRef{
					ID:           nomination.ID,
					BeatmapsetID: nomination.Beatmapset.ID,
					RoundID:      nomination.RoundID,
				}, true, nil
			}
		}
	}
	return ports.NominationRef{}, false, nil
}

func (s *Store) CreatePoll(
	_ context.Context,
	round entities.Round,
	nomination entities.Nomination,
	topicID int64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic := topicID
	s.polls = append(s.polls, entities.Poll{
		ID:           s.nextPollID,
		BeatmapsetID: nomination.Beatmapset.ID,
		RoundID:      round.ID,
		GameMode:     nomination.GameMode,
		TopicID:      &topic,
		StartedAt:    time.Now().UTC(),
	})
	s.nextPollID++
	return nil
}

func (s *Store) LogPollUpdated(_ context.Context, entry ports.PollUpdatedLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollLogs = append(s.pollLogs, entry)
	return nil
}

var _ ports.ThreadRegistry = (*Store)(nil)

func (s *Store) Get(_ context.Context, roundID int64, mode entities.GameMode) (entities.ThreadMeta, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.threadMeta[threadKey{roundID, mode}]
	return meta, ok, nil
}

func (s *Store) Put(_ context.Context, meta entities.ThreadMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut != nil {
		return s.FailPut
	}
	s.threadMeta[threadKey{meta.RoundID, meta.GameMode}] = meta
	return nil
}

var _ ports.PollStore = (*Store)(nil)

func (s *Store) ListPolls(_ context.Context, roundID int64, mode entities.GameMode) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.Poll
	for _, poll := range s.polls {
		if poll.RoundID == roundID && poll.GameMode == mode {
			out = append(out, poll)
		}
	}
	return out, nil
}

func (s *Store) BackfillTopicID(_ context.Context, beatmapsetID int64, roundID int64, topicID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.polls {
		if s.polls[i].BeatmapsetID == beatmapsetID && s.polls[i].RoundID == roundID && s.polls[i].TopicID == nil {
			topic := topicID
			s.polls[i].TopicID = &topic
		}
	}
	return nil
}

func (s *Store) SaveResults(_ context.Context, pollID int64, yesVotes int, noVotes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.polls {
		if s.polls[i].ID != pollID {
			continue
		}
		if s.polls[i].Tallied() {
			return domainerrors.ErrPollAlreadyTallied
		}
		yes, no := yesVotes, noVotes
		s.polls[i].ResultYes = &yes
		s.polls[i].ResultNo = &no
		return nil
	}
	return domainerrors.ErrPollMissing
}

func (s *Store) SaveResultsPostID(_ context.Context, roundID int64, mode entities.GameMode, postID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.rounds[roundID]
	if !ok {
		return domainerrors.ErrRoundNotFound
	}
	settings := snapshot.Round.ModeSettingsFor(mode)
	post := postID
	settings.ResultsPostID = &post
	if snapshot.Round.Modes == nil {
		snapshot.Round.Modes = make(map[entities.GameMode]entities.ModeSettings)
	}
	snapshot.Round.Modes[mode] = settings
	s.rounds[roundID] = snapshot
	return nil
}

func (s *Store) RemoveNomination(_ context.Context, ref ports.NominationRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.rounds[ref.RoundID]
	if !ok {
		return domainerrors.ErrRoundNotFound
	}
	var kept []entities.Nomination
	var mode entities.GameMode
	found := false
	for _, nomination := range snapshot.Nominations {
		if nomination.ID == ref.ID {
			found = true
			mode = nomination.GameMode
			continue
		}
		kept = append(kept, nomination)
	}
	if !found {
		return domainerrors.ErrNominationNotFound
	}
	snapshot.Nominations = kept
	s.rounds[ref.RoundID] = snapshot

	var polls []entities.Poll
	for _, poll := range s.polls {
		if poll.RoundID == ref.RoundID && poll.BeatmapsetID == ref.BeatmapsetID && poll.GameMode == mode {
			continue
		}
		polls = append(polls, poll)
	}
	s.polls = polls
	s.removed = append(s.removed, ref)
	return nil
}

// Polls returns a copy of every stored poll, for inspection in tests.
func (s *Store) Polls() []entities.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Poll, len(s.polls))
	copy(out, s.polls)
	return out
}

// PollLogs returns the recorded audit entries.
func (s *Store) PollLogs() []ports.PollUpdatedLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.PollUpdatedLog, len(s.pollLogs))
	copy(out, s.pollLogs)
	return out
}

// Removed returns every nomination removal processed so far.
func (s *Store) Removed() []ports.NominationRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.NominationRef, len(s.removed))
	copy(out, s.removed)
	return out
}

func (s *Store) findPoll(roundID int64, beatmapsetID int64, mode entities.GameMode) *entities.Poll {
	for i := range s.polls {
		if s.polls[i].RoundID == roundID && s.polls[i].BeatmapsetID == beatmapsetID && s.polls[i].GameMode == mode {
			poll := s.polls[i]
			return &poll
		}
	}
	return nil
}

// Clock is a settable clock for deterministic runs. A zero Instant falls back
// to the wall clock.
type Clock struct {
	mu      sync.Mutex
	Instant time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Instant.IsZero() {
		return time.Now().UTC()
	}
	return c.Instant
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Instant = t
}

var _ ports.Clock = (*Clock)(nil)

// IDGenerator issues sequential trace ids.
type IDGenerator struct {
	mu   sync.Mutex
	next int64
}

func (g *IDGenerator) NewID(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("trace-%d", g.next), nil
}

var _ ports.IDGenerator = (*IDGenerator)(nil)
