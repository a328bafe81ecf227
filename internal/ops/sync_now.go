package ops

import (
	"context"

	"github.com/wikivault/wikivault/internal/sync"
)

// SyncNowOutput contains the result of the SyncNow operation.
type SyncNowOutput struct {
	Report sync.Report `json:"report"`
}

// SyncNow triggers an immediate sync pass. Returns SYNC_IN_PROGRESS if a
// pass is already running.
func SyncNow(ctx context.Context, worker *sync.Worker) (*SyncNowOutput, error) {
	report, err := worker.RunOnce(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncNowOutput{Report: *report}, nil
}
