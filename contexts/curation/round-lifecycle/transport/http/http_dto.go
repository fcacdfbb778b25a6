package http

// Response is the common envelope for every lifecycle endpoint. Message is
// set on failures and informational successes; Data carries the per-operation
// payload.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorData struct {
	Errors []FieldError `json:"errors"`
}

type LifecycleRequest struct {
	DryRun bool `json:"dry_run"`
}

type ActionPayload struct {
	Type     string         `json:"type"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type StartRoundData struct {
	Actions []ActionPayload `json:"actions,omitempty"`
}

type NominationResultPayload struct {
	NominationID int64   `json:"nomination_id"`
	BeatmapsetID int64   `json:"beatmapset_id"`
	GameMode     string  `json:"game_mode"`
	Artist       string  `json:"artist"`
	Title        string  `json:"title"`
	YesVotes     int     `json:"yes_votes"`
	NoVotes      int     `json:"no_votes"`
	Ratio        float64 `json:"ratio"`
	Passed       bool    `json:"passed"`
}

type EndForumData struct {
	Results []NominationResultPayload `json:"results"`
	Actions []ActionPayload           `json:"actions,omitempty"`
}

type ChatMessagePayload struct {
	Recipients []int64 `json:"recipients"`
	Content    string  `json:"content"`
}

type EndChatData struct {
	Message ChatMessagePayload `json:"message"`
	Actions []ActionPayload    `json:"actions,omitempty"`
}

type NominationMessagesRequest struct {
	DryRun         bool    `json:"dry_run"`
	PollStartGuess *string `json:"poll_start_guess"`
}

type BeatmapsetMessagePayload struct {
	NominationID int64    `json:"nomination_id"`
	BeatmapsetID int64    `json:"beatmapset_id"`
	Recipients   []int64  `json:"recipients"`
	Messages     []string `json:"messages"`
}

type NominationMessagesData struct {
	Messages []BeatmapsetMessagePayload `json:"messages"`
	Actions  []ActionPayload            `json:"actions,omitempty"`
}

type ChatChannel struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ChatSendRequest struct {
	Targets []int64     `json:"targets"`
	Message string      `json:"message"`
	Channel ChatChannel `json:"channel"`
}
