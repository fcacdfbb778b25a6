package ports

import (
	"context"
	"encoding/json"
	"time"

	"curator/contexts/curation/round-lifecycle/domain/entities"
)

// NominationRef identifies a nomination for removal without carrying the full
// snapshot shape.
type NominationRef struct {
	ID           int64
	BeatmapsetID int64
	RoundID      int64
}

// PollUpdatedLog is the audit payload recorded after a poll is tallied.
type PollUpdatedLog struct {
	RoundID      int64
	RoundName    string
	GameMode     entities.GameMode
	PollID       int64
	TopicID      int64
	BeatmapsetID int64
	Artist       string
	Title        string
}

// RoundProvider supplies frozen round snapshots and owns the poll-creation
// and audit-log paths of the upstream service.
type RoundProvider interface {
	GetRound(ctx context.Context, roundID int64) (entities.RoundSnapshot, error)
	GetNomination(ctx context.Context, nominationID int64) (NominationRef, bool, error)
	CreatePoll(ctx context.Context, round entities.Round, nomination entities.Nomination, topicID int64) error
	LogPollUpdated(ctx context.Context, entry PollUpdatedLog) error
}

// ThreadRegistry persists main-thread metadata per (round, game mode). Get
// followed by Put is not atomic under concurrent writers; Put is an upsert on
// the composite key so the last writer wins instead of corrupting the row.
type ThreadRegistry interface {
	Get(ctx context.Context, roundID int64, mode entities.GameMode) (entities.ThreadMeta, bool, error)
	Put(ctx context.Context, meta entities.ThreadMeta) error
}

// PollStore persists per-nomination polls and recorded tallies.
type PollStore interface {
	ListPolls(ctx context.Context, roundID int64, mode entities.GameMode) ([]entities.Poll, error)
	BackfillTopicID(ctx context.Context, beatmapsetID int64, roundID int64, topicID int64) error
	SaveResults(ctx context.Context, pollID int64, yesVotes int, noVotes int) error
	SaveResultsPostID(ctx context.Context, roundID int64, mode entities.GameMode, postID int64) error
	RemoveNomination(ctx context.Context, ref NominationRef) error
}

// PollSpec describes the forum poll attached to a newly created thread.
type PollSpec struct {
	Title       string
	Options     []string
	MaxOptions  int
	LengthDays  int
	VoteChange  bool
	HideResults bool
}

type CreatedThread struct {
	TopicID int64
	PostID  int64
}

type ThreadPollOption struct {
	Text      string
	VoteCount *int
}

type ThreadPoll struct {
	Options []ThreadPollOption
}

// ThreadState is the live remote view of a discussion thread. Raw keeps the
// payload as received for diagnostics when the poll shape is unexpected.
type ThreadState struct {
	TopicID     int64
	FirstPostID int64
	Poll        *ThreadPoll
	Raw         json.RawMessage
}

// Announcement is one batched outbound chat notification. The first message
// opens the channel; any further messages are sent into it.
type Announcement struct {
	ChannelName        string
	ChannelDescription string
	Recipients         []int64
	Messages           []string
}

// DiscussionGateway is the remote platform client for thread, poll and chat
// operations. Threads are never deleted through this interface.
type DiscussionGateway interface {
	CreateThread(ctx context.Context, forumID int64, title string, body string) (CreatedThread, error)
	CreateThreadWithPoll(ctx context.Context, forumID int64, title string, body string, poll PollSpec) (CreatedThread, error)
	EditPost(ctx context.Context, postID int64, body string) error
	EditThreadTitle(ctx context.Context, topicID int64, title string) error
	ReplyThread(ctx context.Context, topicID int64, body string) (int64, error)
	PinThread(ctx context.Context, topicID int64, pinned bool) error
	LockThread(ctx context.Context, topicID int64) error
	GetThread(ctx context.Context, topicID int64) (ThreadState, error)
	SendAnnouncement(ctx context.Context, announcement Announcement) error
}

// Renderer turns a named template and a data object into displayable text.
// Implementations only substitute named fields; they never evaluate
// caller-influenced expressions.
type Renderer interface {
	Render(name string, data map[string]any) (string, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
