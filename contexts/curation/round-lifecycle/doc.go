// Package roundlifecycle implements the round lifecycle orchestrator inside
// the curation context.
//
// The module drives community voting rounds end to end: opening per-mode
// discussion threads with attached Yes/No polls, tallying and publishing
// results back to the forum, and announcing outcomes over chat. It keeps
// business rules in application/domain layers and isolates the discussion
// platform, the upstream round data service and persistence behind ports and
// adapters.
package roundlifecycle
