package entities

import (
	"fmt"
	"time"
)

// GameMode is the fixed category enumeration for nominated content.
type GameMode int

const (
	GameModeOsu GameMode = iota
	GameModeTaiko
	GameModeCatch
	GameModeMania
)

// DisplayOrder is the declared posting order for per-mode threads. Lifecycle
// operations iterate it directly; modes without a long name are skipped.
var DisplayOrder = []GameMode{GameModeOsu, GameModeTaiko, GameModeCatch, GameModeMania}

// LongName returns the public display name of the mode, or "" for values
// outside the enumeration. An empty name means the mode is ignored entirely.
func (m GameMode) LongName() string {
	switch m {
	case GameModeOsu:
		return "osu!"
	case GameModeTaiko:
		return "osu!taiko"
	case GameModeCatch:
		return "osu!catch"
	case GameModeMania:
		return "osu!mania"
	default:
		return ""
	}
}

// APIName returns the remote platform's short identifier for the mode.
func (m GameMode) APIName() string {
	switch m {
	case GameModeOsu:
		return "osu"
	case GameModeTaiko:
		return "taiko"
	case GameModeCatch:
		return "fruits"
	case GameModeMania:
		return "mania"
	default:
		return ""
	}
}

type UserSummary struct {
	ID     int64
	Name   string
	Banned bool
}

// ModeSettings is the per-(round, game mode) configuration carried by a round
// snapshot.
type ModeSettings struct {
	GameMode          GameMode
	VotingThreshold   *float64
	NominationsLocked bool
	ResultsPostID     *int64
}

// Threshold resolves the voting threshold, defaulting to 0 when unset. The
// zero default means any non-zero yes count passes; that behavior is kept
// as-is for compatibility with existing rounds.
func (s ModeSettings) Threshold() float64 {
	if s.VotingThreshold == nil {
		return 0
	}
	return *s.VotingThreshold
}

type Round struct {
	ID         int64
	Name       string
	Done       bool
	NewsAuthor UserSummary
	Modes      map[GameMode]ModeSettings
}

// ModeSettingsFor returns the settings for a mode, zero-valued when the round
// carries none for it.
func (r Round) ModeSettingsFor(mode GameMode) ModeSettings {
	settings, ok := r.Modes[mode]
	if !ok {
		return ModeSettings{GameMode: mode}
	}
	return settings
}

type Beatmapset struct {
	ID          int64
	Artist      string
	Title       string
	CreatorID   int64
	CreatorName string
}

type Beatmap struct {
	ID       int64
	Version  string
	Excluded bool
}

type Nomination struct {
	ID                int64
	RoundID           int64
	GameMode          GameMode
	Beatmapset        Beatmapset
	OverwriteArtist   string
	OverwriteTitle    string
	Description       string
	DescriptionAuthor *UserSummary
	Nominators        []UserSummary
	Creators          []UserSummary
	Beatmaps          []Beatmap
	Poll              *Poll
}

// Artist returns the per-nomination artist override when present.
func (n Nomination) Artist() string {
	if n.OverwriteArtist != "" {
		return n.OverwriteArtist
	}
	return n.Beatmapset.Artist
}

// Title returns the per-nomination title override when present.
func (n Nomination) Title() string {
	if n.OverwriteTitle != "" {
		return n.OverwriteTitle
	}
	return n.Beatmapset.Title
}

// Song is the "Artist - Title" display form used in thread titles and bodies.
func (n Nomination) Song() string {
	return fmt.Sprintf("%s - %s", n.Artist(), n.Title())
}

// Poll is the persisted voting record for one nomination. TopicID is nil in
// the "orphan" state: a row exists but no thread was ever created for it.
// ResultYes/ResultNo stay nil until the round is tallied; once set the poll
// must never be re-tallied.
type Poll struct {
	ID           int64
	BeatmapsetID int64
	RoundID      int64
	GameMode     GameMode
	TopicID      *int64
	StartedAt    time.Time
	EndedAt      *time.Time
	ResultYes    *int
	ResultNo     *int
}

// Tallied reports whether results have already been recorded for the poll.
func (p Poll) Tallied() bool {
	return p.ResultYes != nil || p.ResultNo != nil
}

// ThreadMeta locates the main discussion thread for one (round, mode) pair.
type ThreadMeta struct {
	RoundID   int64
	GameMode  GameMode
	TopicID   int64
	PostID    int64
	CreatedAt time.Time
}

// RoundSnapshot is the frozen view of a round that every lifecycle operation
// acts on. It is fetched once per operation and never mutated.
type RoundSnapshot struct {
	Round       Round
	Nominations []Nomination
}

// NominationsForMode filters the snapshot's nominations for one mode,
// preserving snapshot order.
func (s RoundSnapshot) NominationsForMode(mode GameMode) []Nomination {
	var items []Nomination
	for _, nomination := range s.Nominations {
		if nomination.GameMode == mode {
			items = append(items, nomination)
		}
	}
	return items
}
