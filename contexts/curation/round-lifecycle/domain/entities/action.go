package entities

// Action records one side-effecting call a dry run would have performed.
// Actions are appended in the exact order the real calls would be issued; a
// dry-run trace and an equivalent real run must match in type and order.
type Action struct {
	Type     string         `json:"type"`
	Data     map[string]any `json:"data"`
	Metadata ActionMetadata `json:"metadata"`
}

// ActionMetadata carries tracing context shared by every action of one
// operation run.
type ActionMetadata struct {
	Operation string `json:"operation"`
	RoundID   int64  `json:"round_id"`
	TraceID   string `json:"trace_id"`
}
