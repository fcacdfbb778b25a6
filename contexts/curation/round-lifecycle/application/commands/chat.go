package commands

import (
	"context"
	"strings"

	"curator/contexts/curation/round-lifecycle/application"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	"curator/contexts/curation/round-lifecycle/ports"
)

type SendChatCommand struct {
	Targets            []int64
	Message            string
	ChannelName        string
	ChannelDescription string
}

// SendChat relays a one-off announcement to a user list. It carries no round
// state: validation and delivery are the whole operation.
func (uc LifecycleUseCase) SendChat(ctx context.Context, cmd SendChatCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	if len(cmd.Targets) == 0 || strings.TrimSpace(cmd.Message) == "" {
		return domainerrors.ErrInvalidRequest
	}
	name := cmd.ChannelName
	if name == "" {
		name = "Project Loved"
	}
	description := cmd.ChannelDescription
	if description == "" {
		description = "Project Loved announcement"
	}
	announcement := ports.Announcement{
		ChannelName:        name,
		ChannelDescription: description,
		Recipients:         cmd.Targets,
		Messages:           []string{cmd.Message},
	}
	if err := uc.Gateway.SendAnnouncement(ctx, announcement); err != nil {
		return &domainerrors.GatewayError{Op: "send chat announcement", Err: err}
	}
	logger.Info("chat announcement sent",
		"event", "chat_announcement_sent",
		"module", "curation/round-lifecycle",
		"layer", "application",
		"recipients", len(cmd.Targets),
	)
	return nil
}
