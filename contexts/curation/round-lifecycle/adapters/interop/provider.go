package interop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"curator/contexts/curation/round-lifecycle/domain/entities"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	"curator/contexts/curation/round-lifecycle/ports"
)

const defaultTimeout = 30 * time.Second

// Provider is the HTTP client for the upstream round data service. Round
// snapshots, poll creation and the tally audit log all live upstream; this
// adapter only translates between its wire shapes and the domain entities.
type Provider struct {
	baseURL    string
	interopKey string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewProvider(baseURL string, interopKey string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		baseURL:    baseURL,
		interopKey: interopKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

var _ ports.RoundProvider = (*Provider)(nil)

func (p *Provider) GetRound(ctx context.Context, roundID int64) (entities.RoundSnapshot, error) {
	query := url.Values{"roundId": []string{strconv.FormatInt(roundID, 10)}}
	var payload roundDataPayload
	status, err := p.get(ctx, "/api/local-interop/data", query, &payload)
	if err != nil {
		return entities.RoundSnapshot{}, err
	}
	if status == http.StatusNotFound {
		return entities.RoundSnapshot{}, domainerrors.ErrRoundNotFound
	}
	if status != http.StatusOK {
		return entities.RoundSnapshot{}, fmt.Errorf("interop: get round %d: status %d", roundID, status)
	}
	return payload.toSnapshot(), nil
}

func (p *Provider) GetNomination(ctx context.Context, nominationID int64) (ports.NominationRef, bool, error) {
	query := url.Values{"nominationId": []string{strconv.FormatInt(nominationID, 10)}}
	var payload nominationRefPayload
	status, err := p.get(ctx, "/api/local-interop/nomination", query, &payload)
	if err != nil {
		return ports.NominationRef{}, false, err
	}
	if status == http.StatusNotFound {
		return ports.NominationRef{}, false, nil
	}
	if status != http.StatusOK {
		return ports.NominationRef{}, false, fmt.Errorf("interop: get nomination %d: status %d", nominationID, status)
	}
	return ports.NominationRef{
		ID:           payload.ID,
		BeatmapsetID: payload.BeatmapsetID,
		RoundID:      payload.RoundID,
	}, true, nil
}

func (p *Provider) CreatePoll(
	ctx context.Context,
	round entities.Round,
	nomination entities.Nomination,
	topicID int64,
) error {
	body := map[string]any{
		"round_id":      round.ID,
		"beatmapset_id": nomination.Beatmapset.ID,
		"game_mode":     int(nomination.GameMode),
		"topic_id":      topicID,
	}
	status, err := p.post(ctx, "/api/local-interop/polls", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("interop: create poll for beatmapset %d: status %d", nomination.Beatmapset.ID, status)
	}
	return nil
}

func (p *Provider) LogPollUpdated(ctx context.Context, entry ports.PollUpdatedLog) error {
	body := map[string]any{
		"type": "poll_updated",
		"values": map[string]any{
			"round_id":      entry.RoundID,
			"round_name":    entry.RoundName,
			"game_mode":     int(entry.GameMode),
			"poll_id":       entry.PollID,
			"topic_id":      entry.TopicID,
			"beatmapset_id": entry.BeatmapsetID,
			"artist":        entry.Artist,
			"title":         entry.Title,
		},
	}
	status, err := p.post(ctx, "/api/local-interop/log", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("interop: log poll update for poll %d: status %d", entry.PollID, status)
	}
	return nil
}

func (p *Provider) get(ctx context.Context, path string, query url.Values, out any) (int, error) {
	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("interop: build request: %w", err)
	}
	req.Header.Set("X-Loved-InteropKey", p.interopKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("interop: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("interop: decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

func (p *Provider) post(ctx context.Context, path string, body any) (int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("interop: encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return 0, fmt.Errorf("interop: build request: %w", err)
	}
	req.Header.Set("X-Loved-InteropKey", p.interopKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("interop: %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

type userPayload struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Banned bool   `json:"banned"`
}

func (u userPayload) toEntity() entities.UserSummary {
	return entities.UserSummary{ID: u.ID, Name: u.Name, Banned: u.Banned}
}

type gameModePayload struct {
	GameMode          int      `json:"game_mode"`
	VotingThreshold   *float64 `json:"voting_threshold"`
	NominationsLocked bool     `json:"nominations_locked"`
	ResultsPostID     *int64   `json:"results_post_id"`
}

type roundPayload struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Done       bool              `json:"done"`
	NewsAuthor userPayload       `json:"news_author"`
	GameModes  []gameModePayload `json:"game_modes"`
}

type beatmapsetPayload struct {
	ID          int64  `json:"id"`
	Artist      string `json:"artist"`
	Title       string `json:"title"`
	CreatorID   int64  `json:"creator_id"`
	CreatorName string `json:"creator_name"`
}

type beatmapPayload struct {
	ID       int64  `json:"id"`
	Version  string `json:"version"`
	Excluded bool   `json:"excluded"`
}

type pollPayload struct {
	ID           int64      `json:"id"`
	BeatmapsetID int64      `json:"beatmapset_id"`
	RoundID      int64      `json:"round_id"`
	GameMode     int        `json:"game_mode"`
	TopicID      *int64     `json:"topic_id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	ResultYes    *int       `json:"result_yes"`
	ResultNo     *int       `json:"result_no"`
}

type nominationPayload struct {
	ID                int64             `json:"id"`
	RoundID           int64             `json:"round_id"`
	GameMode          int               `json:"game_mode"`
	Beatmapset        beatmapsetPayload `json:"beatmapset"`
	OverwriteArtist   string            `json:"overwrite_artist"`
	OverwriteTitle    string            `json:"overwrite_title"`
	Description       string            `json:"description"`
	DescriptionAuthor *userPayload      `json:"description_author"`
	Nominators        []userPayload     `json:"nominators"`
	Creators          []userPayload     `json:"creators"`
	Beatmaps          []beatmapPayload  `json:"beatmaps"`
	Poll              *pollPayload      `json:"poll"`
}

type roundDataPayload struct {
	Round       roundPayload        `json:"round"`
	Nominations []nominationPayload `json:"nominations"`
}

type nominationRefPayload struct {
	ID           int64 `json:"id"`
	BeatmapsetID int64 `json:"beatmapset_id"`
	RoundID      int64 `json:"round_id"`
}

func (p roundDataPayload) toSnapshot() entities.RoundSnapshot {
	round := entities.Round{
		ID:         p.Round.ID,
		Name:       p.Round.Name,
		Done:       p.Round.Done,
		NewsAuthor: p.Round.NewsAuthor.toEntity(),
		Modes:      make(map[entities.GameMode]entities.ModeSettings, len(p.Round.GameModes)),
	}
	for _, mode := range p.Round.GameModes {
		round.Modes[entities.GameMode(mode.GameMode)] = entities.ModeSettings{
			GameMode:          entities.GameMode(mode.GameMode),
			VotingThreshold:   mode.VotingThreshold,
			NominationsLocked: mode.NominationsLocked,
			ResultsPostID:     mode.ResultsPostID,
		}
	}

	nominations := make([]entities.Nomination, 0, len(p.Nominations))
	for _, nom := range p.Nominations {
		nominations = append(nominations, nom.toEntity())
	}
	return entities.RoundSnapshot{Round: round, Nominations: nominations}
}

func (p nominationPayload) toEntity() entities.Nomination {
	nomination := entities.Nomination{
		ID:       p.ID,
		RoundID:  p.RoundID,
		GameMode: entities.GameMode(p.GameMode),
		Beatmapset: entities.Beatmapset{
			ID:          p.Beatmapset.ID,
			Artist:      p.Beatmapset.Artist,
			Title:       p.Beatmapset.Title,
			CreatorID:   p.Beatmapset.CreatorID,
			CreatorName: p.Beatmapset.CreatorName,
		},
		OverwriteArtist: p.OverwriteArtist,
		OverwriteTitle:  p.OverwriteTitle,
		Description:     p.Description,
	}
	if p.DescriptionAuthor != nil {
		author := p.DescriptionAuthor.toEntity()
		nomination.DescriptionAuthor = &author
	}
	for _, user := range p.Nominators {
		nomination.Nominators = append(nomination.Nominators, user.toEntity())
	}
	for _, user := range p.Creators {
		nomination.Creators = append(nomination.Creators, user.toEntity())
	}
	for _, beatmap := range p.Beatmaps {
		nomination.Beatmaps = append(nomination.Beatmaps, entities.Beatmap{
			ID:       beatmap.ID,
			Version:  beatmap.Version,
			Excluded: beatmap.Excluded,
		})
	}
	if p.Poll != nil {
		nomination.Poll = &entities.Poll{
			ID:           p.Poll.ID,
			BeatmapsetID: p.Poll.BeatmapsetID,
			RoundID:      p.Poll.RoundID,
			GameMode:     entities.GameMode(p.Poll.GameMode),
			TopicID:      p.Poll.TopicID,
			StartedAt:    p.Poll.StartedAt.UTC(),
			EndedAt:      p.Poll.EndedAt,
			ResultYes:    p.Poll.ResultYes,
			ResultNo:     p.Poll.ResultNo,
		}
	}
	return nomination
}
