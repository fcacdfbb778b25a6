package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"curator/contexts/curation/round-lifecycle/application"
	"curator/contexts/curation/round-lifecycle/domain/entities"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	"curator/contexts/curation/round-lifecycle/ports"
)

type NominationMessagesCommand struct {
	RoundID        int64
	PollStartGuess string
	DryRun         bool
}

// BeatmapsetMessage is the rendered notification for one nominated set and
// the recipients it was (or would be) delivered to.
type BeatmapsetMessage struct {
	NominationID int64
	BeatmapsetID int64
	Recipients   []int64
	Messages     []string
}

type NominationMessagesResult struct {
	Messages []BeatmapsetMessage
	Actions  []entities.Action
}

// markdownEscaper covers the characters that would change meaning inside the
// chat client's markdown rendering.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
)

// NominationMessages tells every creator involved in a nominated beatmapset
// that their set is up for voting. Nominations sharing a beatmapset collapse
// into one message: creators are collected across every nominated mode and
// each set gets exactly one announcement channel.
func (uc LifecycleUseCase) NominationMessages(
	ctx context.Context,
	cmd NominationMessagesCommand,
) (NominationMessagesResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.Locks.Acquire(cmd.RoundID); err != nil {
		return NominationMessagesResult{}, err
	}
	defer uc.Locks.Release(cmd.RoundID)

	snapshot, err := uc.Provider.GetRound(ctx, cmd.RoundID)
	if err != nil {
		return NominationMessagesResult{}, err
	}
	if len(snapshot.Nominations) == 0 {
		return NominationMessagesResult{}, domainerrors.ErrNoNominations
	}
	rec := newRecorder("messages", cmd.RoundID, uc.newTraceID(ctx), cmd.DryRun)
	round := snapshot.Round

	pollStartGuess := cmd.PollStartGuess
	if pollStartGuess == "" {
		pollStartGuess = "at an unknown date"
	}

	handled := make(map[int64]struct{})
	var out NominationMessagesResult
	for _, nomination := range snapshot.Nominations {
		setID := nomination.Beatmapset.ID
		if _, ok := handled[setID]; ok {
			continue
		}
		handled[setID] = struct{}{}

		var related []entities.Nomination
		for _, other := range snapshot.Nominations {
			if other.Beatmapset.ID == setID {
				related = append(related, other)
			}
		}

		message, err := uc.buildSetMessage(round, nomination, related, pollStartGuess)
		if err != nil {
			return NominationMessagesResult{}, err
		}

		announcement := ports.Announcement{
			ChannelName:        "Project Loved nomination",
			ChannelDescription: "Your map has been nominated for the next round of Project Loved!",
			Recipients:         message.Recipients,
			Messages:           message.Messages,
		}
		if err := rec.do(ActionAnnouncementSend, map[string]any{
			"channel_name":  announcement.ChannelName,
			"beatmapset_id": setID,
			"recipients":    message.Recipients,
		}, func() error {
			return uc.Gateway.SendAnnouncement(ctx, announcement)
		}); err != nil {
			return NominationMessagesResult{}, &domainerrors.GatewayError{Op: "send nomination announcement", Err: err}
		}
		out.Messages = append(out.Messages, message)
	}

	logger.Info("nomination messages completed",
		"event", "round_messages_completed",
		"module", "curation/round-lifecycle",
		"layer", "application",
		"round_id", cmd.RoundID,
		"beatmapsets", len(out.Messages),
		"dry_run", cmd.DryRun,
	)
	out.Actions = rec.actions
	return out, nil
}

// buildSetMessage collects creators, modes and thresholds across every
// nomination of one beatmapset and renders the two-part notification.
func (uc LifecycleUseCase) buildSetMessage(
	round entities.Round,
	nomination entities.Nomination,
	related []entities.Nomination,
	pollStartGuess string,
) (BeatmapsetMessage, error) {
	set := nomination.Beatmapset
	notify := make(map[int64]struct{})
	var toNotify []int64
	var guestNames []string
	var modes []entities.GameMode
	modeSeen := make(map[entities.GameMode]struct{})
	excludedSeen := make(map[int64]struct{})
	var excludedTexts []string

	for _, nom := range related {
		if _, ok := modeSeen[nom.GameMode]; !ok {
			modeSeen[nom.GameMode] = struct{}{}
			modes = append(modes, nom.GameMode)
		}

		for _, creator := range nom.Creators {
			name := creator.Name
			if name == "" {
				name = "Unknown User"
			}
			display := fmt.Sprintf("[%s](%s/users/%d)", markdownEscaper.Replace(name), uc.SiteURL, creator.ID)

			_, already := notify[creator.ID]
			if already || !creator.Messageable() || creator.ID == set.CreatorID {
				// Banned guests are still credited even though they are
				// never messaged.
				if creator.Banned {
					guestNames = append(guestNames, display)
				}
				continue
			}
			notify[creator.ID] = struct{}{}
			toNotify = append(toNotify, creator.ID)
			guestNames = append(guestNames, display)
		}

		for _, beatmap := range nom.Beatmaps {
			if !beatmap.Excluded {
				continue
			}
			if _, ok := excludedSeen[beatmap.ID]; ok {
				continue
			}
			excludedSeen[beatmap.ID] = struct{}{}
			excludedTexts = append(excludedTexts, "["+markdownEscaper.Replace(beatmap.Version)+"]")
		}
	}

	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	sort.Strings(guestNames)

	var modeNames []string
	var thresholdLines []string
	for _, mode := range modes {
		modeNames = append(modeNames, mode.LongName())
		settings := round.ModeSettingsFor(mode)
		thresholdLines = append(thresholdLines,
			fmt.Sprintf("- %s for %s", thresholdText(settings.Threshold()), mode.LongName()))
	}
	thresholds := strings.Join(thresholdLines, "\n")
	if len(thresholdLines) == 1 {
		thresholds = strings.TrimPrefix(thresholdLines[0], "- ")
	}

	data := map[string]any{
		"site_url":    uc.SiteURL,
		"listing_url": uc.ListingURL,
		"round_name":  round.Name,
		"beatmapset": map[string]any{
			"id":            set.ID,
			"artist":        markdownEscaper.Replace(nomination.Artist()),
			"title":         markdownEscaper.Replace(nomination.Title()),
			"creators":      joinList(guestNames),
			"excluded_text": joinList(excludedTexts),
		},
		"metadata": map[string]any{
			"author_name":      round.NewsAuthor.Name,
			"gamemode_names":   joinList(modeNames),
			"thresholds":       thresholds,
			"poll_start_guess": pollStartGuess,
		},
	}

	first, err := uc.Renderer.Render("chat-nomination-one", data)
	if err != nil {
		return BeatmapsetMessage{}, err
	}
	second, err := uc.Renderer.Render("chat-nomination-two", data)
	if err != nil {
		return BeatmapsetMessage{}, err
	}

	recipients := entities.UniqueIDs(append(append([]int64{set.CreatorID}, toNotify...), round.NewsAuthor.ID))
	return BeatmapsetMessage{
		NominationID: nomination.ID,
		BeatmapsetID: set.ID,
		Recipients:   recipients,
		Messages:     []string{first, second},
	}, nil
}
