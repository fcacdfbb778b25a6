package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"curator/contexts/curation/round-lifecycle/adapters/memory"
	"curator/contexts/curation/round-lifecycle/domain/entities"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
)

func TestNominationMessagesGroupsByBeatmapset(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	osuNom := osuNomination(1, 101)
	taikoNom := osuNomination(2, 101)
	taikoNom.GameMode = entities.GameModeTaiko
	seedRound(store, osuNom, taikoNom)
	uc := newTestLifecycle(store, gateway)

	result, err := uc.NominationMessages(context.Background(), NominationMessagesCommand{
		RoundID:        1,
		PollStartGuess: "on January 24",
	})
	if err != nil {
		t.Fatalf("NominationMessages failed: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("messages = %d, want 1 per beatmapset", len(result.Messages))
	}
	if len(gateway.Announcements()) != 1 {
		t.Fatalf("announcements = %d, want 1", len(gateway.Announcements()))
	}

	message := result.Messages[0]
	if message.BeatmapsetID != 101 {
		t.Fatalf("beatmapset id = %d", message.BeatmapsetID)
	}
	if len(message.Messages) != 2 {
		t.Fatalf("expected a two-part message, got %d parts", len(message.Messages))
	}
	first := message.Messages[0]
	if !strings.Contains(first, "osu! and osu!taiko") {
		t.Fatalf("first message must name both modes:\n%s", first)
	}
	if !strings.Contains(first, "on January 24") {
		t.Fatalf("first message must carry the poll start guess:\n%s", first)
	}
	if !strings.Contains(first, "- 60% for osu!") {
		t.Fatalf("first message must show a per-mode threshold line:\n%s", first)
	}
}

func TestNominationMessagesGuestHandling(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	nom := osuNomination(1, 101)
	nom.Creators = []entities.UserSummary{
		{ID: 10, Name: "host"},
		{ID: 11, Name: "guest_mapper"},
		{ID: 12, Name: "banned guest", Banned: true},
		{ID: entities.PlaceholderUserID + 5, Name: "placeholder"},
	}
	seedRound(store, nom)
	uc := newTestLifecycle(store, gateway)

	result, err := uc.NominationMessages(context.Background(), NominationMessagesCommand{RoundID: 1})
	if err != nil {
		t.Fatalf("NominationMessages failed: %v", err)
	}
	message := result.Messages[0]

	// Host, messageable guest, news author. Banned and placeholder creators
	// are never messaged.
	want := []int64{10, 11, 99}
	if len(message.Recipients) != len(want) {
		t.Fatalf("recipients = %v, want %v", message.Recipients, want)
	}
	for i, id := range want {
		if message.Recipients[i] != id {
			t.Fatalf("recipients = %v, want %v", message.Recipients, want)
		}
	}

	first := message.Messages[0]
	if !strings.Contains(first, "banned guest") {
		t.Fatalf("banned guest must still be credited:\n%s", first)
	}
	if !strings.Contains(first, `guest\_mapper`) {
		t.Fatalf("guest names must be markdown-escaped:\n%s", first)
	}
}

func TestNominationMessagesExcludedBeatmaps(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	nom := osuNomination(1, 101)
	nom.Beatmaps = []entities.Beatmap{
		{ID: 1011, Version: "Insane"},
		{ID: 1012, Version: "Extra", Excluded: true},
	}
	seedRound(store, nom)
	uc := newTestLifecycle(store, gateway)

	result, err := uc.NominationMessages(context.Background(), NominationMessagesCommand{RoundID: 1})
	if err != nil {
		t.Fatalf("NominationMessages failed: %v", err)
	}
	second := result.Messages[0].Messages[1]
	if !strings.Contains(second, "[Extra]") {
		t.Fatalf("excluded version missing from second message:\n%s", second)
	}
	if strings.Contains(second, "[Insane]") {
		t.Fatalf("non-excluded version must not be listed:\n%s", second)
	}
}

func TestNominationMessagesDefaultPollStartGuess(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	seedRound(store, osuNomination(1, 101))
	uc := newTestLifecycle(store, gateway)

	result, err := uc.NominationMessages(context.Background(), NominationMessagesCommand{RoundID: 1})
	if err != nil {
		t.Fatalf("NominationMessages failed: %v", err)
	}
	if !strings.Contains(result.Messages[0].Messages[0], "at an unknown date") {
		t.Fatalf("default poll start guess missing:\n%s", result.Messages[0].Messages[0])
	}
}

func TestNominationMessagesEmptyRound(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	seedRound(store)
	uc := newTestLifecycle(store, gateway)

	_, err := uc.NominationMessages(context.Background(), NominationMessagesCommand{RoundID: 1})
	if !errors.Is(err, domainerrors.ErrNoNominations) {
		t.Fatalf("expected ErrNoNominations, got %v", err)
	}
}

func TestNominationMessagesDryRun(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	seedRound(store, osuNomination(1, 101), osuNomination(2, 102))
	uc := newTestLifecycle(store, gateway)

	result, err := uc.NominationMessages(context.Background(), NominationMessagesCommand{
		RoundID: 1,
		DryRun:  true,
	})
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if len(gateway.Announcements()) != 0 {
		t.Fatalf("dry run must not send announcements")
	}
	if len(result.Messages) != 2 {
		t.Fatalf("dry run must still build all messages, got %d", len(result.Messages))
	}
	if len(result.Actions) != 2 {
		t.Fatalf("dry run actions = %d, want 2", len(result.Actions))
	}
	for _, action := range result.Actions {
		if action.Type != ActionAnnouncementSend {
			t.Fatalf("unexpected action type %s", action.Type)
		}
	}
}

func TestSendChatValidation(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	uc := newTestLifecycle(store, gateway)

	if err := uc.SendChat(context.Background(), SendChatCommand{Message: "hello"}); !errors.Is(err, domainerrors.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for missing targets, got %v", err)
	}
	if err := uc.SendChat(context.Background(), SendChatCommand{Targets: []int64{10}, Message: "  "}); !errors.Is(err, domainerrors.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for blank message, got %v", err)
	}
}

func TestSendChatDefaultsChannel(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	uc := newTestLifecycle(store, gateway)

	err := uc.SendChat(context.Background(), SendChatCommand{
		Targets: []int64{10, 11},
		Message: "poll results are up",
	})
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	announcements := gateway.Announcements()
	if len(announcements) != 1 {
		t.Fatalf("announcements = %d, want 1", len(announcements))
	}
	got := announcements[0]
	if got.ChannelName != "Project Loved" || got.ChannelDescription != "Project Loved announcement" {
		t.Fatalf("channel defaults wrong: %+v", got)
	}
	if len(got.Recipients) != 2 || got.Messages[0] != "poll results are up" {
		t.Fatalf("announcement content wrong: %+v", got)
	}
}

func TestRemoveNomination(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	seedRound(store, osuNomination(1, 101), osuNomination(2, 102))
	store.SeedPoll(entities.Poll{
		ID:           7,
		BeatmapsetID: 101,
		RoundID:      1,
		GameMode:     entities.GameModeOsu,
		TopicID:      int64Ptr(600),
	})
	uc := newTestLifecycle(store, gateway)

	if err := uc.RemoveNomination(context.Background(), RemoveNominationCommand{NominationID: 1}); err != nil {
		t.Fatalf("RemoveNomination failed: %v", err)
	}

	snapshot, err := store.GetRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	if len(snapshot.Nominations) != 1 || snapshot.Nominations[0].ID != 2 {
		t.Fatalf("nomination not removed: %+v", snapshot.Nominations)
	}
	if len(store.Polls()) != 0 {
		t.Fatalf("poll rows must be removed with the nomination")
	}
	if len(store.Removed()) != 1 || store.Removed()[0].ID != 1 {
		t.Fatalf("removal not recorded: %+v", store.Removed())
	}
}

func TestRemoveNominationNotFound(t *testing.T) {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	seedRound(store, osuNomination(1, 101))
	uc := newTestLifecycle(store, gateway)

	err := uc.RemoveNomination(context.Background(), RemoveNominationCommand{NominationID: 42})
	if !errors.Is(err, domainerrors.ErrNominationNotFound) {
		t.Fatalf("expected ErrNominationNotFound, got %v", err)
	}
}

func TestRoundLocksSerializeOperations(t *testing.T) {
	locks := NewRoundLocks()
	if err := locks.Acquire(1); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if err := locks.Acquire(1); !errors.Is(err, domainerrors.ErrRoundBusy) {
		t.Fatalf("expected ErrRoundBusy, got %v", err)
	}
	if err := locks.Acquire(2); err != nil {
		t.Fatalf("other rounds must not be blocked: %v", err)
	}
	locks.Release(1)
	if err := locks.Acquire(1); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}
