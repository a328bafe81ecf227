package ops

import (
	"context"
	"database/sql"

	"github.com/wikivault/wikivault/internal/db"
)

// ForceSaveInput contains parameters for the ForceSave operation.
type ForceSaveInput struct {
	ID     int64
	ListID string
	Lang   string
	Title  string
}

// ForceSaveOutput contains the result of the ForceSave operation.
type ForceSaveOutput struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// ForceSave queues a page for a forced re-download, bypassing the saved
// state. The retry budget is reset so a page stuck in the error state
// gets a fresh set of attempts.
func ForceSave(ctx context.Context, database *sql.DB, input ForceSaveInput) (*ForceSaveOutput, error) {
	page, err := resolvePage(ctx, database, input.ID, input.ListID, input.Lang, input.Title)
	if err != nil {
		return nil, err
	}

	if err := db.QueuePageForcedSave(ctx, database, page.ID); err != nil {
		return nil, err
	}

	return &ForceSaveOutput{
		ID:     page.ID,
		Status: db.StatusQueuedForcedSave.String(),
	}, nil
}
