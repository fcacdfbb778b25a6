package commands

import (
	"time"

	"curator/contexts/curation/round-lifecycle/adapters/memory"
	"curator/contexts/curation/round-lifecycle/adapters/render"
	"curator/contexts/curation/round-lifecycle/domain/entities"
)

func newTestLifecycle(store *memory.Store, gateway *memory.Gateway) LifecycleUseCase {
	clock := &memory.Clock{}
	clock.Set(time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC))
	return LifecycleUseCase{
		Provider:   store,
		Registry:   store,
		Polls:      store,
		Gateway:    gateway,
		Renderer:   render.NewRenderer(),
		Clock:      clock,
		IDGen:      &memory.IDGenerator{},
		Locks:      NewRoundLocks(),
		ForumID:    120,
		SiteURL:    "https://osu.ppy.sh",
		ListingURL: "https://loved.sh",
	}
}

func seedRound(store *memory.Store, nominations ...entities.Nomination) entities.Round {
	threshold := 0.6
	round := entities.Round{
		ID:         1,
		Name:       "January 2026",
		NewsAuthor: entities.UserSummary{ID: 99, Name: "newswriter"},
		Modes: map[entities.GameMode]entities.ModeSettings{
			entities.GameModeOsu: {
				GameMode:        entities.GameModeOsu,
				VotingThreshold: &threshold,
			},
			entities.GameModeTaiko: {
				GameMode:        entities.GameModeTaiko,
				VotingThreshold: &threshold,
			},
		},
	}
	store.SeedRound(entities.RoundSnapshot{Round: round, Nominations: nominations})
	return round
}

func osuNomination(id int64, beatmapsetID int64) entities.Nomination {
	return entities.Nomination{
		ID:       id,
		RoundID:  1,
		GameMode: entities.GameModeOsu,
		Beatmapset: entities.Beatmapset{
			ID:          beatmapsetID,
			Artist:      "Artist",
			Title:       "Title " + string(rune('A'+id)),
			CreatorID:   10,
			CreatorName: "host",
		},
		Description:       "a nominated map",
		DescriptionAuthor: &entities.UserSummary{ID: 50, Name: "captain"},
		Nominators:        []entities.UserSummary{{ID: 50, Name: "captain"}},
		Creators:          []entities.UserSummary{{ID: 10, Name: "host"}},
		Beatmaps:          []entities.Beatmap{{ID: beatmapsetID*10 + 1, Version: "Insane"}},
	}
}

func countCalls(calls []memory.GatewayCall, callType string) int {
	n := 0
	for _, call := range calls {
		if call.Type == callType {
			n++
		}
	}
	return n
}

func pastTime() *time.Time {
	t := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	return &t
}

func futureTime() *time.Time {
	t := time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}
