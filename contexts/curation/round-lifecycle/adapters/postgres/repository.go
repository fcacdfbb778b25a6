package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"curator/contexts/curation/round-lifecycle/domain/entities"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	"curator/contexts/curation/round-lifecycle/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the relational persistence adapter for polls and main-thread
// metadata. Round snapshots come from the upstream data provider, not from
// here; this adapter owns only the tables the lifecycle writes.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var _ ports.ThreadRegistry = (*Repository)(nil)
var _ ports.PollStore = (*Repository)(nil)

func (r *Repository) Get(ctx context.Context, roundID int64, mode entities.GameMode) (entities.ThreadMeta, bool, error) {
	var row threadMetaModel
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Where("game_mode = ?", int(mode)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ThreadMeta{}, false, nil
		}
		if isUndefinedTable(err) {
			// Registry schema is optional in local development; callers
			// treat a miss as "create a fresh thread".
			return entities.ThreadMeta{}, false, nil
		}
		return entities.ThreadMeta{}, false, r.logError("lifecycle_repo_get_thread_meta_failed", err,
			"round_id", roundID,
			"game_mode", mode.APIName(),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) Put(ctx context.Context, meta entities.ThreadMeta) error {
	row := threadMetaModelFromEntity(meta)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "round_id"}, {Name: "game_mode"}},
		DoUpdates: clause.Assignments(map[string]any{
			"topic_id": row.TopicID,
			"post_id":  row.PostID,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			// Concurrent writer got there first; last write wins on the
			// composite key, so retry as a plain update.
			return r.db.WithContext(ctx).Model(&threadMetaModel{}).
				Where("round_id = ?", row.RoundID).
				Where("game_mode = ?", row.GameMode).
				Updates(map[string]any{"topic_id": row.TopicID, "post_id": row.PostID}).
				Error
		}
		return r.logError("lifecycle_repo_put_thread_meta_failed", create.Error,
			"round_id", meta.RoundID,
			"game_mode", meta.GameMode.APIName(),
		)
	}
	return nil
}

func (r *Repository) ListPolls(ctx context.Context, roundID int64, mode entities.GameMode) ([]entities.Poll, error) {
	var rows []pollModel
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Where("game_mode = ?", int(mode)).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("lifecycle_repo_list_polls_failed", err,
			"round_id", roundID,
			"game_mode", mode.APIName(),
		)
	}
	polls := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		polls = append(polls, row.toEntity())
	}
	return polls, nil
}

func (r *Repository) BackfillTopicID(ctx context.Context, beatmapsetID int64, roundID int64, topicID int64) error {
	result := r.db.WithContext(ctx).Model(&pollModel{}).
		Where("beatmapset_id = ?", beatmapsetID).
		Where("round_id = ?", roundID).
		Where("topic_id IS NULL").
		Update("topic_id", topicID)
	if result.Error != nil {
		return r.logError("lifecycle_repo_backfill_topic_id_failed", result.Error,
			"beatmapset_id", beatmapsetID,
			"round_id", roundID,
			"topic_id", topicID,
		)
	}
	return nil
}

func (r *Repository) SaveResults(ctx context.Context, pollID int64, yesVotes int, noVotes int) error {
	result := r.db.WithContext(ctx).Model(&pollModel{}).
		Where("id = ?", pollID).
		Where("result_yes IS NULL").
		Where("result_no IS NULL").
		Updates(map[string]any{"result_yes": yesVotes, "result_no": noVotes})
	if result.Error != nil {
		return r.logError("lifecycle_repo_save_results_failed", result.Error, "poll_id", pollID)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&pollModel{}).
			Where("id = ?", pollID).
			Count(&count).Error; err != nil {
			return r.logError("lifecycle_repo_save_results_check_failed", err, "poll_id", pollID)
		}
		if count == 0 {
			return domainerrors.ErrPollMissing
		}
		return domainerrors.ErrPollAlreadyTallied
	}
	return nil
}

func (r *Repository) SaveResultsPostID(ctx context.Context, roundID int64, mode entities.GameMode, postID int64) error {
	result := r.db.WithContext(ctx).
		Table("round_game_modes").
		Where("round_id = ?", roundID).
		Where("game_mode = ?", int(mode)).
		Update("results_post_id", postID)
	if result.Error != nil {
		return r.logError("lifecycle_repo_save_results_post_id_failed", result.Error,
			"round_id", roundID,
			"game_mode", mode.APIName(),
			"post_id", postID,
		)
	}
	return nil
}

func (r *Repository) RemoveNomination(ctx context.Context, ref ports.NominationRef) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []struct {
			query string
			args  []any
		}{
			{"DELETE FROM nomination_assignees WHERE nomination_id = ?", []any{ref.ID}},
			{"DELETE FROM nomination_description_edits WHERE nomination_id = ?", []any{ref.ID}},
			{"DELETE FROM nomination_nominators WHERE nomination_id = ?", []any{ref.ID}},
			{"DELETE FROM nomination_excluded_beatmaps WHERE nomination_id = ?", []any{ref.ID}},
			{"DELETE FROM beatmapset_creators WHERE beatmapset_id = ? AND game_mode = (SELECT game_mode FROM nominations WHERE id = ?)", []any{ref.BeatmapsetID, ref.ID}},
			{"DELETE FROM polls WHERE beatmapset_id = ? AND round_id = ?", []any{ref.BeatmapsetID, ref.RoundID}},
			{"DELETE FROM nominations WHERE id = ?", []any{ref.ID}},
		} {
			if err := tx.Exec(stmt.query, stmt.args...).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.logError("lifecycle_repo_remove_nomination_failed", err,
			"nomination_id", ref.ID,
			"beatmapset_id", ref.BeatmapsetID,
			"round_id", ref.RoundID,
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "curation/round-lifecycle",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("lifecycle repository operation failed", fields...)
	return err
}

type pollModel struct {
	ID           int64      `gorm:"column:id;primaryKey"`
	BeatmapsetID int64      `gorm:"column:beatmapset_id"`
	RoundID      int64      `gorm:"column:round_id"`
	GameMode     int        `gorm:"column:game_mode"`
	TopicID      *int64     `gorm:"column:topic_id"`
	StartedAt    time.Time  `gorm:"column:started_at"`
	EndedAt      *time.Time `gorm:"column:ended_at"`
	ResultYes    *int       `gorm:"column:result_yes"`
	ResultNo     *int       `gorm:"column:result_no"`
}

func (pollModel) TableName() string {
	return "polls"
}

func (m pollModel) toEntity() entities.Poll {
	return entities.Poll{
		ID:           m.ID,
		BeatmapsetID: m.BeatmapsetID,
		RoundID:      m.RoundID,
		GameMode:     entities.GameMode(m.GameMode),
		TopicID:      m.TopicID,
		StartedAt:    m.StartedAt.UTC(),
		EndedAt:      normalizeOptionalTime(m.EndedAt),
		ResultYes:    m.ResultYes,
		ResultNo:     m.ResultNo,
	}
}

type threadMetaModel struct {
	RoundID   int64     `gorm:"column:round_id;primaryKey"`
	GameMode  int       `gorm:"column:game_mode;primaryKey"`
	TopicID   int64     `gorm:"column:topic_id"`
	PostID    int64     `gorm:"column:post_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (threadMetaModel) TableName() string {
	return "main_threads"
}

func threadMetaModelFromEntity(meta entities.ThreadMeta) threadMetaModel {
	row := threadMetaModel{
		RoundID:   meta.RoundID,
		GameMode:  int(meta.GameMode),
		TopicID:   meta.TopicID,
		PostID:    meta.PostID,
		CreatedAt: meta.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m threadMetaModel) toEntity() entities.ThreadMeta {
	return entities.ThreadMeta{
		RoundID:   m.RoundID,
		GameMode:  entities.GameMode(m.GameMode),
		TopicID:   m.TopicID,
		PostID:    m.PostID,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func normalizeOptionalTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
