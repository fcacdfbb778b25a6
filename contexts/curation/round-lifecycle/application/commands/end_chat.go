package commands

import (
	"context"

	"curator/contexts/curation/round-lifecycle/application"
	"curator/contexts/curation/round-lifecycle/domain/entities"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	"curator/contexts/curation/round-lifecycle/ports"
)

type EndChatCommand struct {
	RoundID int64
	Force   bool
	DryRun  bool
}

type EndChatResult struct {
	Recipients []int64
	Content    string
	Actions    []entities.Action
}

// EndChat sends the post-round announcement to everyone involved in a passed
// nomination. It runs after EndForum and recomputes pass/fail from the
// persisted tallies, never from a fresh remote fetch, so the announcement
// always agrees with what was published on the forum.
func (uc LifecycleUseCase) EndChat(ctx context.Context, cmd EndChatCommand) (EndChatResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.Locks.Acquire(cmd.RoundID); err != nil {
		return EndChatResult{}, err
	}
	defer uc.Locks.Release(cmd.RoundID)

	logger.Info("round end chat processing",
		"event", "round_end_chat_processing",
		"module", "curation/round-lifecycle",
		"layer", "application",
		"round_id", cmd.RoundID,
		"force", cmd.Force,
		"dry_run", cmd.DryRun,
	)

	snapshot, err := uc.Provider.GetRound(ctx, cmd.RoundID)
	if err != nil {
		return EndChatResult{}, err
	}
	now := uc.now()
	rec := newRecorder("end/chat", cmd.RoundID, uc.newTraceID(ctx), cmd.DryRun)
	round := snapshot.Round

	var passed []entities.Nomination
	var passedEntries []map[string]any
	for _, nomination := range snapshot.Nominations {
		poll := nomination.Poll
		if poll == nil {
			return EndChatResult{}, domainerrors.ErrPollMissing
		}
		if !cmd.Force {
			if poll.EndedAt == nil || poll.EndedAt.After(now) {
				return EndChatResult{}, domainerrors.ErrPollStillOpen
			}
		}
		if poll.ResultYes == nil || poll.ResultNo == nil {
			return EndChatResult{}, domainerrors.ErrPollNotTallied
		}

		threshold := round.ModeSettingsFor(nomination.GameMode).Threshold()
		tally := entities.EvaluateTally(*poll.ResultYes, *poll.ResultNo, threshold)
		if !tally.Passed {
			continue
		}
		passed = append(passed, nomination)
		passedEntries = append(passedEntries, map[string]any{
			"id":        nomination.Beatmapset.ID,
			"song":      nomination.Song(),
			"mode_name": nomination.GameMode.LongName(),
		})
	}

	recipients := entities.RecipientIDs(passed, round.NewsAuthor.ID)
	content, err := uc.Renderer.Render("chat-results", map[string]any{
		"site_url":    uc.SiteURL,
		"listing_url": uc.ListingURL,
		"round_name":  round.Name,
		"passed":      passedEntries,
	})
	if err != nil {
		return EndChatResult{}, err
	}

	announcement := ports.Announcement{
		ChannelName:        "Project Loved results",
		ChannelDescription: "Results for " + round.Name,
		Recipients:         recipients,
		Messages:           []string{content},
	}
	if err := rec.do(ActionAnnouncementSend, map[string]any{
		"channel_name": announcement.ChannelName,
		"recipients":   recipients,
		"content":      content,
	}, func() error {
		return uc.Gateway.SendAnnouncement(ctx, announcement)
	}); err != nil {
		return EndChatResult{}, &domainerrors.GatewayError{Op: "send results announcement", Err: err}
	}

	logger.Info("round end chat completed",
		"event", "round_end_chat_completed",
		"module", "curation/round-lifecycle",
		"layer", "application",
		"round_id", cmd.RoundID,
		"recipients", len(recipients),
		"passed", len(passed),
		"dry_run", cmd.DryRun,
	)
	return EndChatResult{
		Recipients: recipients,
		Content:    content,
		Actions:    rec.actions,
	}, nil
}
