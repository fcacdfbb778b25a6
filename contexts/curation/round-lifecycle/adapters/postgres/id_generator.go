package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator creates trace identifiers for lifecycle operation runs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
