package httpadapter

import (
	"context"
	"log/slog"

	"curator/contexts/curation/round-lifecycle/application/commands"
	"curator/contexts/curation/round-lifecycle/domain/entities"
	httptransport "curator/contexts/curation/round-lifecycle/transport/http"
)

type Handler struct {
	Lifecycle commands.LifecycleUseCase
	Logger    *slog.Logger
}

func (h Handler) StartRoundHandler(
	ctx context.Context,
	roundID int64,
	req httptransport.LifecycleRequest,
) (httptransport.StartRoundData, error) {
	result, err := h.Lifecycle.StartRound(ctx, commands.StartRoundCommand{
		RoundID: roundID,
		DryRun:  req.DryRun,
	})
	if err != nil {
		return httptransport.StartRoundData{}, err
	}
	data := httptransport.StartRoundData{}
	if req.DryRun {
		data.Actions = toActionPayloads(result.Actions)
	}
	return data, nil
}

func (h Handler) EndForumHandler(
	ctx context.Context,
	roundID int64,
	force bool,
	req httptransport.LifecycleRequest,
) (httptransport.EndForumData, error) {
	result, err := h.Lifecycle.EndForum(ctx, commands.EndForumCommand{
		RoundID: roundID,
		Force:   force,
		DryRun:  req.DryRun,
	})
	if err != nil {
		return httptransport.EndForumData{}, err
	}
	data := httptransport.EndForumData{
		Results: make([]httptransport.NominationResultPayload, 0, len(result.Results)),
	}
	for _, item := range result.Results {
		data.Results = append(data.Results, httptransport.NominationResultPayload{
			NominationID: item.NominationID,
			BeatmapsetID: item.BeatmapsetID,
			GameMode:     item.GameMode.APIName(),
			Artist:       item.Artist,
			Title:        item.Title,
			YesVotes:     item.Tally.YesVotes,
			NoVotes:      item.Tally.NoVotes,
			Ratio:        item.Tally.Ratio,
			Passed:       item.Tally.Passed,
		})
	}
	if req.DryRun {
		data.Actions = toActionPayloads(result.Actions)
	}
	return data, nil
}

func (h Handler) EndChatHandler(
	ctx context.Context,
	roundID int64,
	force bool,
	req httptransport.LifecycleRequest,
) (httptransport.EndChatData, error) {
	result, err := h.Lifecycle.EndChat(ctx, commands.EndChatCommand{
		RoundID: roundID,
		Force:   force,
		DryRun:  req.DryRun,
	})
	if err != nil {
		return httptransport.EndChatData{}, err
	}
	data := httptransport.EndChatData{
		Message: httptransport.ChatMessagePayload{
			Recipients: result.Recipients,
			Content:    result.Content,
		},
	}
	if req.DryRun {
		data.Actions = toActionPayloads(result.Actions)
	}
	return data, nil
}

func (h Handler) NominationMessagesHandler(
	ctx context.Context,
	roundID int64,
	req httptransport.NominationMessagesRequest,
) (httptransport.NominationMessagesData, error) {
	cmd := commands.NominationMessagesCommand{
		RoundID: roundID,
		DryRun:  req.DryRun,
	}
	if req.PollStartGuess != nil {
		cmd.PollStartGuess = *req.PollStartGuess
	}
	result, err := h.Lifecycle.NominationMessages(ctx, cmd)
	if err != nil {
		return httptransport.NominationMessagesData{}, err
	}
	data := httptransport.NominationMessagesData{
		Messages: make([]httptransport.BeatmapsetMessagePayload, 0, len(result.Messages)),
	}
	for _, item := range result.Messages {
		data.Messages = append(data.Messages, httptransport.BeatmapsetMessagePayload{
			NominationID: item.NominationID,
			BeatmapsetID: item.BeatmapsetID,
			Recipients:   item.Recipients,
			Messages:     item.Messages,
		})
	}
	if req.DryRun {
		data.Actions = toActionPayloads(result.Actions)
	}
	return data, nil
}

func (h Handler) SendChatHandler(
	ctx context.Context,
	req httptransport.ChatSendRequest,
) error {
	return h.Lifecycle.SendChat(ctx, commands.SendChatCommand{
		Targets:            req.Targets,
		Message:            req.Message,
		ChannelName:        req.Channel.Name,
		ChannelDescription: req.Channel.Description,
	})
}

func (h Handler) RemoveNominationHandler(ctx context.Context, nominationID int64) error {
	return h.Lifecycle.RemoveNomination(ctx, commands.RemoveNominationCommand{
		NominationID: nominationID,
	})
}

func toActionPayloads(actions []entities.Action) []httptransport.ActionPayload {
	out := make([]httptransport.ActionPayload, 0, len(actions))
	for _, action := range actions {
		out = append(out, httptransport.ActionPayload{
			Type: action.Type,
			Data: action.Data,
			Metadata: map[string]any{
				"operation": action.Metadata.Operation,
				"round_id":  action.Metadata.RoundID,
				"trace_id":  action.Metadata.TraceID,
			},
		})
	}
	return out
}
