package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/errors"
)

// ListsOutput contains the result of the Lists operation.
type ListsOutput struct {
	Items []db.ReadingList `json:"items"`
}

// Lists returns all reading lists, the default list first.
func Lists(ctx context.Context, database *sql.DB) (*ListsOutput, error) {
	items, err := db.AllLists(ctx, database)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.ReadingList{}
	}
	return &ListsOutput{Items: items}, nil
}

// CreateListInput contains parameters for the CreateList operation.
type CreateListInput struct {
	Title       string  // required
	Description *string // optional, Markdown
	// NoDownload creates the list with downloads disabled: pages added to
	// it are tracked without being queued for offline saving.
	NoDownload bool
}

// CreateListOutput contains the result of the CreateList operation.
type CreateListOutput struct {
	List db.ReadingList `json:"list"`
}

// CreateList creates a new reading list with a generated id.
func CreateList(ctx context.Context, database *sql.DB, input CreateListInput) (*CreateListOutput, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.NewInvalidRequest("title is required")
	}

	var description *string
	if input.Description != nil {
		d := strings.TrimSpace(*input.Description)
		if d != "" {
			description = &d
		}
	}

	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Now().Unix()
	list := &db.ReadingList{
		ID:              id.String(),
		Title:           title,
		Description:     description,
		DownloadEnabled: !input.NoDownload,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.InsertList(ctx, database, list); err != nil {
		return nil, err
	}

	return &CreateListOutput{List: *list}, nil
}
