package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"curator/contexts/curation/round-lifecycle/domain/entities"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	"curator/contexts/curation/round-lifecycle/ports"
)

func seedStoreRound(store *Store) {
	store.SeedRound(entities.RoundSnapshot{
		Round: entities.Round{ID: 1, Name: "January 2026"},
		Nominations: []entities.Nomination{
			{
				ID:         1,
				RoundID:    1,
				GameMode:   entities.GameModeOsu,
				Beatmapset: entities.Beatmapset{ID: 101},
			},
			{
				ID:         2,
				RoundID:    1,
				GameMode:   entities.GameModeOsu,
				Beatmapset: entities.Beatmapset{ID: 102},
			},
		},
	})
}

func TestGetRoundJoinsPolls(t *testing.T) {
	store := NewStore()
	seedStoreRound(store)
	topicID := int64(600)
	store.SeedPoll(entities.Poll{
		ID:           7,
		BeatmapsetID: 101,
		RoundID:      1,
		GameMode:     entities.GameModeOsu,
		TopicID:      &topicID,
	})

	snapshot, err := store.GetRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	if snapshot.Nominations[0].Poll == nil || snapshot.Nominations[0].Poll.ID != 7 {
		t.Fatalf("poll not joined: %+v", snapshot.Nominations[0].Poll)
	}
	if snapshot.Nominations[1].Poll != nil {
		t.Fatalf("nomination without a poll must have a nil join")
	}
}

func TestGetRoundUnknown(t *testing.T) {
	store := NewStore()
	_, err := store.GetRound(context.Background(), 42)
	if !errors.Is(err, domainerrors.ErrRoundNotFound) {
		t.Fatalf("expected ErrRoundNotFound, got %v", err)
	}
}

func TestBackfillTopicIDOnlyFillsEmptyRows(t *testing.T) {
	store := NewStore()
	existing := int64(600)
	store.SeedPoll(entities.Poll{ID: 7, BeatmapsetID: 101, RoundID: 1, GameMode: entities.GameModeOsu})
	store.SeedPoll(entities.Poll{ID: 8, BeatmapsetID: 102, RoundID: 1, GameMode: entities.GameModeOsu, TopicID: &existing})

	if err := store.BackfillTopicID(context.Background(), 101, 1, 700); err != nil {
		t.Fatalf("BackfillTopicID failed: %v", err)
	}
	if err := store.BackfillTopicID(context.Background(), 102, 1, 700); err != nil {
		t.Fatalf("BackfillTopicID failed: %v", err)
	}

	polls := store.Polls()
	if polls[0].TopicID == nil || *polls[0].TopicID != 700 {
		t.Fatalf("empty row not backfilled: %+v", polls[0])
	}
	if *polls[1].TopicID != 600 {
		t.Fatalf("filled row must not be overwritten: %+v", polls[1])
	}
}

func TestSaveResultsRejectsDoubleTally(t *testing.T) {
	store := NewStore()
	store.SeedPoll(entities.Poll{ID: 7, BeatmapsetID: 101, RoundID: 1, GameMode: entities.GameModeOsu})

	if err := store.SaveResults(context.Background(), 7, 7, 3); err != nil {
		t.Fatalf("first SaveResults failed: %v", err)
	}
	poll := store.Polls()[0]
	if !poll.Tallied() || *poll.ResultYes != 7 || *poll.ResultNo != 3 {
		t.Fatalf("results not stored: %+v", poll)
	}

	err := store.SaveResults(context.Background(), 7, 1, 1)
	if !errors.Is(err, domainerrors.ErrPollAlreadyTallied) {
		t.Fatalf("expected ErrPollAlreadyTallied, got %v", err)
	}
	err = store.SaveResults(context.Background(), 42, 1, 1)
	if !errors.Is(err, domainerrors.ErrPollMissing) {
		t.Fatalf("expected ErrPollMissing, got %v", err)
	}
}

func TestRemoveNominationDeletesPollRows(t *testing.T) {
	store := NewStore()
	seedStoreRound(store)
	store.SeedPoll(entities.Poll{ID: 7, BeatmapsetID: 101, RoundID: 1, GameMode: entities.GameModeOsu})

	err := store.RemoveNomination(context.Background(), ports.NominationRef{
		ID: 1, BeatmapsetID: 101, RoundID: 1,
	})
	if err != nil {
		t.Fatalf("RemoveNomination failed: %v", err)
	}
	if len(store.Polls()) != 0 {
		t.Fatalf("poll rows must go with the nomination")
	}
	snapshot, _ := store.GetRound(context.Background(), 1)
	if len(snapshot.Nominations) != 1 || snapshot.Nominations[0].ID != 2 {
		t.Fatalf("nomination rows wrong after removal: %+v", snapshot.Nominations)
	}

	err = store.RemoveNomination(context.Background(), ports.NominationRef{ID: 99, RoundID: 1})
	if !errors.Is(err, domainerrors.ErrNominationNotFound) {
		t.Fatalf("expected ErrNominationNotFound, got %v", err)
	}
}

func TestClockFixedInstant(t *testing.T) {
	clock := &Clock{}
	if clock.Now().IsZero() {
		t.Fatalf("unset clock must fall back to wall time")
	}
	instant := time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC)
	clock.Set(instant)
	if !clock.Now().Equal(instant) {
		t.Fatalf("clock = %v, want %v", clock.Now(), instant)
	}
}

func TestIDGeneratorSequence(t *testing.T) {
	gen := &IDGenerator{}
	first, err := gen.NewID(context.Background())
	if err != nil {
		t.Fatalf("NewID failed: %v", err)
	}
	second, _ := gen.NewID(context.Background())
	if first == second {
		t.Fatalf("ids must be unique: %q vs %q", first, second)
	}
}
