package commands

import (
	"context"
	"strconv"
	"strings"

	"curator/contexts/curation/round-lifecycle/application"
	"curator/contexts/curation/round-lifecycle/domain/entities"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	"curator/contexts/curation/round-lifecycle/ports"
)

type StartRoundCommand struct {
	RoundID int64
	DryRun  bool
}

type StartRoundResult struct {
	Actions []entities.Action
}

// StartRound creates or repairs the discussion threads for a round: one main
// thread per game mode plus one poll thread per nomination. The operation is
// idempotent (existing threads are reused or edited, never duplicated) and
// resumable after a partial failure by simply running it again.
func (uc LifecycleUseCase) StartRound(ctx context.Context, cmd StartRoundCommand) (StartRoundResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.Locks.Acquire(cmd.RoundID); err != nil {
		return StartRoundResult{}, err
	}
	defer uc.Locks.Release(cmd.RoundID)

	logger.Info("round start processing",
		"event", "round_start_processing",
		"module", "curation/round-lifecycle",
		"layer", "application",
		"round_id", cmd.RoundID,
		"dry_run", cmd.DryRun,
	)

	snapshot, err := uc.Provider.GetRound(ctx, cmd.RoundID)
	if err != nil {
		return StartRoundResult{}, err
	}
	rec := newRecorder("start", cmd.RoundID, uc.newTraceID(ctx), cmd.DryRun)

	for _, mode := range entities.DisplayOrder {
		if mode.LongName() == "" {
			continue
		}
		nominations := snapshot.NominationsForMode(mode)
		if len(nominations) == 0 {
			continue
		}
		if err := uc.startMode(ctx, rec, snapshot.Round, mode, nominations); err != nil {
			return StartRoundResult{}, err
		}
	}

	logger.Info("round start completed",
		"event", "round_start_completed",
		"module", "curation/round-lifecycle",
		"layer", "application",
		"round_id", cmd.RoundID,
		"dry_run", cmd.DryRun,
		"actions", len(rec.actions),
	)
	return StartRoundResult{Actions: rec.actions}, nil
}

func (uc LifecycleUseCase) startMode(
	ctx context.Context,
	rec *recorder,
	round entities.Round,
	mode entities.GameMode,
	nominations []entities.Nomination,
) error {
	logger := application.ResolveLogger(uc.Logger)
	settings := round.ModeSettingsFor(mode)
	nominators := uniqueNominators(nominations)

	main, err := uc.resolveMainThread(ctx, rec, round, mode, settings, nominations, nominators)
	if err != nil {
		return err
	}

	existing, err := uc.Polls.ListPolls(ctx, round.ID, mode)
	if err != nil {
		return err
	}
	pollsBySet := make(map[int64]entities.Poll, len(existing))
	for _, poll := range existing {
		pollsBySet[poll.BeatmapsetID] = poll
	}

	childTopicIDs := make(map[int64]int64, len(nominations))
	anyChildUpdated := false

	for _, nomination := range nominations {
		body, err := uc.renderChildBody(round, mode, nomination, main.TopicID)
		if err != nil {
			return err
		}
		title := uc.childThreadTitle(mode, nomination)
		poll, found := pollsBySet[nomination.Beatmapset.ID]

		switch {
		case found && poll.TopicID != nil:
			// Existing thread: edit in place. An edit failure aborts the whole
			// operation so a duplicate thread can never be created for it.
			topicID := *poll.TopicID
			state, err := uc.Gateway.GetThread(ctx, topicID)
			if err != nil {
				return &domainerrors.GatewayError{Op: "fetch nomination thread", Err: err}
			}
			if err := rec.do(ActionPostEdit, map[string]any{
				"post_id": state.FirstPostID,
				"body":    body,
			}, func() error {
				return uc.Gateway.EditPost(ctx, state.FirstPostID, body)
			}); err != nil {
				return &domainerrors.GatewayError{Op: "edit nomination post", Err: err}
			}
			if err := rec.do(ActionTopicEditTitle, map[string]any{
				"topic_id": topicID,
				"title":    title,
			}, func() error {
				return uc.Gateway.EditThreadTitle(ctx, topicID, title)
			}); err != nil {
				return &domainerrors.GatewayError{Op: "edit nomination title", Err: err}
			}
			childTopicIDs[nomination.ID] = topicID
			anyChildUpdated = true

		case found:
			// Orphan poll row: a record exists but no thread was ever created.
			// Create exactly one thread and backfill the row's topic id.
			created, err := uc.createPollThread(ctx, rec, nomination, title, body)
			if err != nil {
				return err
			}
			if err := rec.do(ActionPollBackfillTopic, map[string]any{
				"beatmapset_id": nomination.Beatmapset.ID,
				"round_id":      round.ID,
				"topic_id":      created.TopicID,
			}, func() error {
				return uc.Polls.BackfillTopicID(ctx, nomination.Beatmapset.ID, round.ID, created.TopicID)
			}); err != nil {
				return err
			}
			childTopicIDs[nomination.ID] = created.TopicID
			anyChildUpdated = true

		default:
			created, err := uc.createPollThread(ctx, rec, nomination, title, body)
			if err != nil {
				return err
			}
			if err := rec.do(ActionPollCreate, map[string]any{
				"beatmapset_id": nomination.Beatmapset.ID,
				"round_id":      round.ID,
				"topic_id":      created.TopicID,
			}, func() error {
				return uc.Provider.CreatePoll(ctx, round, nomination, created.TopicID)
			}); err != nil {
				return err
			}
			childTopicIDs[nomination.ID] = created.TopicID
			anyChildUpdated = true
		}
	}

	if !anyChildUpdated {
		logger.Info("main thread untouched, no child changes",
			"event", "round_start_mode_unchanged",
			"module", "curation/round-lifecycle",
			"layer", "application",
			"round_id", round.ID,
			"game_mode", mode.LongName(),
		)
		return nil
	}

	linkedBody, err := uc.renderMainBody(round, mode, settings, nominations, nominators, childTopicIDs)
	if err != nil {
		return err
	}
	if err := rec.do(ActionPostEdit, map[string]any{
		"post_id": main.PostID,
		"body":    linkedBody,
	}, func() error {
		return uc.Gateway.EditPost(ctx, main.PostID, linkedBody)
	}); err != nil {
		return &domainerrors.GatewayError{Op: "edit main post", Err: err}
	}
	if err := rec.do(ActionTopicPin, map[string]any{
		"topic_id": main.TopicID,
		"pinned":   true,
	}, func() error {
		return uc.Gateway.PinThread(ctx, main.TopicID, true)
	}); err != nil {
		return &domainerrors.GatewayError{Op: "pin main thread", Err: err}
	}
	return nil
}

// resolveMainThread reuses the registered main thread when both ids are
// known, otherwise creates one and registers it. A registry write failure is
// non-fatal: the thread already exists remotely, and losing the cached ids
// only costs a duplicate-detection lookup on a later run.
func (uc LifecycleUseCase) resolveMainThread(
	ctx context.Context,
	rec *recorder,
	round entities.Round,
	mode entities.GameMode,
	settings entities.ModeSettings,
	nominations []entities.Nomination,
	nominators []entities.UserSummary,
) (entities.ThreadMeta, error) {
	logger := application.ResolveLogger(uc.Logger)

	stored, found, err := uc.Registry.Get(ctx, round.ID, mode)
	if err != nil {
		return entities.ThreadMeta{}, err
	}
	if found && stored.TopicID != 0 && stored.PostID != 0 {
		return stored, nil
	}

	title := uc.mainThreadTitle(mode, round)
	body, err := uc.renderMainBody(round, mode, settings, nominations, nominators, nil)
	if err != nil {
		return entities.ThreadMeta{}, err
	}
	created, err := rec.doCreateThread(ActionTopicCreate, map[string]any{
		"forum_id": uc.ForumID,
		"title":    title,
		"body":     body,
	}, func() (ports.CreatedThread, error) {
		return uc.Gateway.CreateThread(ctx, uc.ForumID, title, body)
	})
	if err != nil {
		return entities.ThreadMeta{}, &domainerrors.GatewayError{Op: "create main thread", Err: err}
	}

	meta := entities.ThreadMeta{
		RoundID:   round.ID,
		GameMode:  mode,
		TopicID:   created.TopicID,
		PostID:    created.PostID,
		CreatedAt: uc.now(),
	}
	if err := rec.do(ActionThreadMetaPut, map[string]any{
		"round_id":  round.ID,
		"game_mode": int(mode),
		"topic_id":  meta.TopicID,
		"post_id":   meta.PostID,
	}, func() error {
		return uc.Registry.Put(ctx, meta)
	}); err != nil {
		logger.Warn("failed to persist main thread metadata",
			"event", "round_start_thread_meta_write_failed",
			"module", "curation/round-lifecycle",
			"layer", "application",
			"round_id", round.ID,
			"game_mode", mode.LongName(),
			"topic_id", meta.TopicID,
			"error", err.Error(),
		)
	}
	return meta, nil
}

func (uc LifecycleUseCase) createPollThread(
	ctx context.Context,
	rec *recorder,
	nomination entities.Nomination,
	title string,
	body string,
) (ports.CreatedThread, error) {
	spec := ports.PollSpec{
		Title:       "Should " + nomination.Song() + " be Loved?",
		Options:     []string{"Yes", "No"},
		MaxOptions:  1,
		LengthDays:  10,
		VoteChange:  true,
		HideResults: true,
	}
	created, err := rec.doCreateThread(ActionTopicCreateWithPoll, map[string]any{
		"forum_id":   uc.ForumID,
		"title":      title,
		"body":       body,
		"poll_title": spec.Title,
	}, func() (ports.CreatedThread, error) {
		return uc.Gateway.CreateThreadWithPoll(ctx, uc.ForumID, title, body, spec)
	})
	if err != nil {
		return ports.CreatedThread{}, &domainerrors.GatewayError{Op: "create nomination thread", Err: err}
	}
	return created, nil
}

// renderMainBody renders the per-mode main thread. When childTopicIDs is nil
// the pre-creation template without child links is used.
func (uc LifecycleUseCase) renderMainBody(
	round entities.Round,
	mode entities.GameMode,
	settings entities.ModeSettings,
	nominations []entities.Nomination,
	nominators []entities.UserSummary,
	childTopicIDs map[int64]int64,
) (string, error) {
	sets := make([]map[string]any, 0, len(nominations))
	for _, nomination := range nominations {
		entry := map[string]any{
			"id":       nomination.Beatmapset.ID,
			"song":     nomination.Song(),
			"creators": uc.creatorCredits(nomination.Creators),
		}
		if childTopicIDs != nil {
			entry["thread_id"] = childTopicIDs[nomination.ID]
		}
		sets = append(sets, entry)
	}

	data := map[string]any{
		"site_url":    uc.SiteURL,
		"listing_url": uc.ListingURL,
		"link_mode":   mode.APIName(),
		"mode_name":   mode.LongName(),
		"round_name":  round.Name,
		"threshold":   thresholdText(settings.Threshold()),
		"captains":    uc.nominatorLinks(nominators),
		"beatmapsets": sets,
	}
	if settings.ResultsPostID != nil {
		data["last_results_post_id"] = *settings.ResultsPostID
	}

	name := "forum-main-thread"
	if childTopicIDs != nil {
		name = "forum-main-thread-links"
	}
	return uc.Renderer.Render(name, data)
}

func (uc LifecycleUseCase) renderChildBody(
	round entities.Round,
	mode entities.GameMode,
	nomination entities.Nomination,
	mainTopicID int64,
) (string, error) {
	author := "Unknown Captain"
	var authorID int64
	if nomination.DescriptionAuthor != nil {
		author = nomination.DescriptionAuthor.Name
		authorID = nomination.DescriptionAuthor.ID
	}
	description := nomination.Description
	if description == "" {
		description = "No description provided"
	}

	rendered, err := uc.Renderer.Render("forum-child-thread", map[string]any{
		"site_url":          uc.SiteURL,
		"listing_url":       uc.ListingURL,
		"link_mode":         mode.APIName(),
		"main_thread_title": uc.mainThreadTitle(mode, round),
		"author":            author,
		"author_id":         authorID,
		"description":       description,
		"captains":          uc.nominatorLinks(nomination.Nominators),
		"beatmapset_id":     nomination.Beatmapset.ID,
		"creators":          uc.creatorCredits(nomination.Creators),
		"song":              nomination.Song(),
	})
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(rendered, mainTopicIDToken, strconv.FormatInt(mainTopicID, 10)), nil
}
