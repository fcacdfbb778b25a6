package commands

import (
	"curator/contexts/curation/round-lifecycle/domain/entities"
	"curator/contexts/curation/round-lifecycle/ports"
)

// Action types, namespaced by the collaborator the real call would hit.
const (
	ActionTopicCreate         = "forum.topic.create"
	ActionTopicCreateWithPoll = "forum.topic.create_with_poll"
	ActionPostEdit            = "forum.post.edit"
	ActionTopicEditTitle      = "forum.topic.edit_title"
	ActionTopicReply          = "forum.topic.reply"
	ActionTopicPin            = "forum.topic.pin"
	ActionTopicLock           = "forum.topic.lock"
	ActionAnnouncementSend    = "chat.announcement.send"
	ActionThreadMetaPut       = "registry.thread_meta.put"
	ActionPollCreate          = "polls.create"
	ActionPollBackfillTopic   = "polls.topic_id.backfill"
	ActionPollSaveResults     = "polls.results.save"
	ActionResultsPostIDSave   = "round.results_post_id.save"
	ActionLogPollUpdated      = "log.poll_updated"
)

// recorder is the perform-or-record layer shared by every lifecycle
// operation. Operations decide what to do first, express the decision as an
// action descriptor, and hand it here together with the closure that would
// perform it; only the final step differs between a real run and a dry run.
// Remote and store reads are not routed through the recorder: a dry run
// reads exactly like a real run and substitutes mutations only.
type recorder struct {
	dryRun    bool
	metadata  entities.ActionMetadata
	actions   []entities.Action
	simulated int64
}

func newRecorder(operation string, roundID int64, traceID string, dryRun bool) *recorder {
	return &recorder{
		dryRun: dryRun,
		metadata: entities.ActionMetadata{
			Operation: operation,
			RoundID:   roundID,
			TraceID:   traceID,
		},
	}
}

func (r *recorder) append(actionType string, data map[string]any) {
	r.actions = append(r.actions, entities.Action{
		Type:     actionType,
		Data:     data,
		Metadata: r.metadata,
	})
}

// do records the action in dry-run mode and performs it otherwise.
func (r *recorder) do(actionType string, data map[string]any, perform func() error) error {
	if r.dryRun {
		r.append(actionType, data)
		return nil
	}
	return perform()
}

// doCreateThread is do for thread creation, which must yield ids consumed by
// later steps. Dry runs hand back simulated negative ids so cross-link
// rendering and action ordering stay identical to a real run.
func (r *recorder) doCreateThread(
	actionType string,
	data map[string]any,
	perform func() (ports.CreatedThread, error),
) (ports.CreatedThread, error) {
	if r.dryRun {
		r.append(actionType, data)
		r.simulated++
		return ports.CreatedThread{
			TopicID: -r.simulated,
			PostID:  -r.simulated,
		}, nil
	}
	return perform()
}

// doReply is do for replies whose created post id is consumed downstream.
func (r *recorder) doReply(data map[string]any, perform func() (int64, error)) (int64, error) {
	if r.dryRun {
		r.append(ActionTopicReply, data)
		r.simulated++
		return -r.simulated, nil
	}
	return perform()
}
