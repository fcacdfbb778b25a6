package commands

import (
	"context"

	"curator/contexts/curation/round-lifecycle/application"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
)

type RemoveNominationCommand struct {
	NominationID int64
}

// RemoveNomination deletes a nomination and every row tied to it, including
// its poll. Forum threads created for the nomination stay up; only the stored
// state is removed.
func (uc LifecycleUseCase) RemoveNomination(ctx context.Context, cmd RemoveNominationCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	ref, found, err := uc.Provider.GetNomination(ctx, cmd.NominationID)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrNominationNotFound
	}
	if err := uc.Locks.Acquire(ref.RoundID); err != nil {
		return err
	}
	defer uc.Locks.Release(ref.RoundID)

	if err := uc.Polls.RemoveNomination(ctx, ref); err != nil {
		return err
	}
	logger.Info("nomination removed",
		"event", "nomination_removed",
		"module", "curation/round-lifecycle",
		"layer", "application",
		"nomination_id", ref.ID,
		"round_id", ref.RoundID,
		"beatmapset_id", ref.BeatmapsetID,
	)
	return nil
}
