package commands

import (
	"context"

	"curator/contexts/curation/round-lifecycle/application"
	"curator/contexts/curation/round-lifecycle/domain/entities"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	"curator/contexts/curation/round-lifecycle/ports"
)

type EndForumCommand struct {
	RoundID int64
	Force   bool
	DryRun  bool
}

// NominationResult is the tallied outcome for one nomination, returned to the
// caller and fed into the results post.
type NominationResult struct {
	NominationID int64
	BeatmapsetID int64
	GameMode     entities.GameMode
	Artist       string
	Title        string
	Tally        entities.TallyResult
}

type EndForumResult struct {
	Results []NominationResult
	Actions []entities.Action
}

// tallied pairs a nomination with its validated live poll data during the
// read-and-compute phase of EndForum.
type tallied struct {
	nomination entities.Nomination
	poll       entities.Poll
	topicID    int64
	tally      entities.TallyResult
}

// EndForum tallies every nomination's poll against its mode threshold and
// publishes the results on the forum. All preconditions are checked and all
// tallies computed before the first side effect, against a wall-clock reading
// captured once for the whole run.
func (uc LifecycleUseCase) EndForum(ctx context.Context, cmd EndForumCommand) (EndForumResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.Locks.Acquire(cmd.RoundID); err != nil {
		return EndForumResult{}, err
	}
	defer uc.Locks.Release(cmd.RoundID)

	logger.Info("round end forum processing",
		"event", "round_end_forum_processing",
		"module", "curation/round-lifecycle",
		"layer", "application",
		"round_id", cmd.RoundID,
		"force", cmd.Force,
		"dry_run", cmd.DryRun,
	)

	snapshot, err := uc.Provider.GetRound(ctx, cmd.RoundID)
	if err != nil {
		return EndForumResult{}, err
	}
	now := uc.now()
	rec := newRecorder("end/forum", cmd.RoundID, uc.newTraceID(ctx), cmd.DryRun)
	round := snapshot.Round

	var results []tallied
	for _, nomination := range snapshot.Nominations {
		poll := nomination.Poll
		if poll == nil || poll.TopicID == nil {
			return EndForumResult{}, domainerrors.ErrPollMissing
		}
		if !cmd.Force {
			if poll.EndedAt == nil || poll.EndedAt.After(now) {
				return EndForumResult{}, domainerrors.ErrPollStillOpen
			}
		}
		// Recorded results are final even under force; re-tallying would
		// silently overwrite what was already published.
		if poll.Tallied() {
			return EndForumResult{}, domainerrors.ErrPollAlreadyTallied
		}

		state, err := uc.Gateway.GetThread(ctx, *poll.TopicID)
		if err != nil {
			return EndForumResult{}, &domainerrors.GatewayError{Op: "fetch poll thread", Err: err}
		}
		if state.Poll == nil ||
			len(state.Poll.Options) != 2 ||
			state.Poll.Options[0].Text != "Yes" ||
			state.Poll.Options[1].Text != "No" ||
			state.Poll.Options[0].VoteCount == nil ||
			state.Poll.Options[1].VoteCount == nil {
			return EndForumResult{}, &domainerrors.PollShapeError{
				NominationID: nomination.ID,
				Payload:      state.Raw,
			}
		}

		threshold := round.ModeSettingsFor(nomination.GameMode).Threshold()
		results = append(results, tallied{
			nomination: nomination,
			poll:       *poll,
			topicID:    *poll.TopicID,
			tally: entities.EvaluateTally(
				*state.Poll.Options[0].VoteCount,
				*state.Poll.Options[1].VoteCount,
				threshold,
			),
		})
	}

	for _, mode := range entities.DisplayOrder {
		if mode.LongName() == "" {
			continue
		}
		var modeResults []tallied
		for _, result := range results {
			if result.nomination.GameMode == mode {
				modeResults = append(modeResults, result)
			}
		}
		if len(modeResults) == 0 {
			continue
		}
		if err := uc.endForumMode(ctx, rec, round, mode, modeResults); err != nil {
			return EndForumResult{}, err
		}
	}

	out := EndForumResult{Actions: rec.actions}
	for _, result := range results {
		out.Results = append(out.Results, NominationResult{
			NominationID: result.nomination.ID,
			BeatmapsetID: result.nomination.Beatmapset.ID,
			GameMode:     result.nomination.GameMode,
			Artist:       result.nomination.Artist(),
			Title:        result.nomination.Title(),
			Tally:        result.tally,
		})
	}
	logger.Info("round end forum completed",
		"event", "round_end_forum_completed",
		"module", "curation/round-lifecycle",
		"layer", "application",
		"round_id", cmd.RoundID,
		"results", len(out.Results),
		"dry_run", cmd.DryRun,
	)
	return out, nil
}

func (uc LifecycleUseCase) endForumMode(
	ctx context.Context,
	rec *recorder,
	round entities.Round,
	mode entities.GameMode,
	modeResults []tallied,
) error {
	meta, found, err := uc.Registry.Get(ctx, round.ID, mode)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrMainThreadMissing
	}

	summary, err := uc.renderResultsPost(round, mode, modeResults)
	if err != nil {
		return err
	}
	resultsPostID, err := rec.doReply(map[string]any{
		"topic_id": meta.TopicID,
		"body":     summary,
	}, func() (int64, error) {
		return uc.Gateway.ReplyThread(ctx, meta.TopicID, summary)
	})
	if err != nil {
		return &domainerrors.GatewayError{Op: "post results summary", Err: err}
	}

	for _, result := range modeResults {
		notice := "This map did not pass the voting."
		if result.tally.Passed {
			notice = "This map passed the voting! It will be moved to Loved soon."
		}
		if _, err := rec.doReply(map[string]any{
			"topic_id": result.topicID,
			"body":     notice,
		}, func() (int64, error) {
			return uc.Gateway.ReplyThread(ctx, result.topicID, notice)
		}); err != nil {
			return &domainerrors.GatewayError{Op: "post nomination notice", Err: err}
		}

		if err := rec.do(ActionPollSaveResults, map[string]any{
			"poll_id":   result.poll.ID,
			"yes_votes": result.tally.YesVotes,
			"no_votes":  result.tally.NoVotes,
		}, func() error {
			return uc.Polls.SaveResults(ctx, result.poll.ID, result.tally.YesVotes, result.tally.NoVotes)
		}); err != nil {
			return err
		}

		if err := rec.do(ActionTopicLock, map[string]any{
			"topic_id": result.topicID,
		}, func() error {
			return uc.Gateway.LockThread(ctx, result.topicID)
		}); err != nil {
			return &domainerrors.GatewayError{Op: "lock nomination thread", Err: err}
		}

		entry := ports.PollUpdatedLog{
			RoundID:      round.ID,
			RoundName:    round.Name,
			GameMode:     mode,
			PollID:       result.poll.ID,
			TopicID:      result.topicID,
			BeatmapsetID: result.nomination.Beatmapset.ID,
			Artist:       result.nomination.Artist(),
			Title:        result.nomination.Title(),
		}
		if err := rec.do(ActionLogPollUpdated, map[string]any{
			"poll_id":       entry.PollID,
			"topic_id":      entry.TopicID,
			"beatmapset_id": entry.BeatmapsetID,
		}, func() error {
			return uc.Provider.LogPollUpdated(ctx, entry)
		}); err != nil {
			return err
		}
	}

	if err := rec.do(ActionTopicPin, map[string]any{
		"topic_id": meta.TopicID,
		"pinned":   false,
	}, func() error {
		return uc.Gateway.PinThread(ctx, meta.TopicID, false)
	}); err != nil {
		return &domainerrors.GatewayError{Op: "unpin main thread", Err: err}
	}
	if err := rec.do(ActionTopicLock, map[string]any{
		"topic_id": meta.TopicID,
	}, func() error {
		return uc.Gateway.LockThread(ctx, meta.TopicID)
	}); err != nil {
		return &domainerrors.GatewayError{Op: "lock main thread", Err: err}
	}
	return rec.do(ActionResultsPostIDSave, map[string]any{
		"round_id":  round.ID,
		"game_mode": int(mode),
		"post_id":   resultsPostID,
	}, func() error {
		return uc.Polls.SaveResultsPostID(ctx, round.ID, mode, resultsPostID)
	})
}

func (uc LifecycleUseCase) renderResultsPost(
	round entities.Round,
	mode entities.GameMode,
	modeResults []tallied,
) (string, error) {
	var passed, failed []map[string]any
	for _, result := range modeResults {
		entry := map[string]any{
			"id":         result.nomination.Beatmapset.ID,
			"song":       result.nomination.Song(),
			"creators":   uc.creatorCredits(result.nomination.Creators),
			"thread_id":  result.topicID,
			"yes_votes":  result.tally.YesVotes,
			"no_votes":   result.tally.NoVotes,
			"ratio_text": ratioText(result.tally.Ratio),
		}
		if result.tally.Passed {
			passed = append(passed, entry)
		} else {
			failed = append(failed, entry)
		}
	}
	threshold := round.ModeSettingsFor(mode).Threshold()
	return uc.Renderer.Render("forum-results-post", map[string]any{
		"site_url":    uc.SiteURL,
		"listing_url": uc.ListingURL,
		"round_name":  round.Name,
		"mode_name":   mode.LongName(),
		"threshold":   thresholdText(threshold),
		"passed":      passed,
		"failed":      failed,
	})
}
