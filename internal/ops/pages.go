package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/wikivault/wikivault/internal/db"
)

// ListPagesInput contains parameters for the ListPages operation.
type ListPagesInput struct {
	ListID string // default: the default reading list
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// ListPagesOutput contains the result of the ListPages operation.
type ListPagesOutput struct {
	Items      []db.ReadingListPage `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

// ListPages returns the pages tracked on a reading list, newest first.
func ListPages(ctx context.Context, database *sql.DB, input ListPagesInput) (*ListPagesOutput, error) {
	listID := strings.TrimSpace(input.ListID)
	if listID == "" {
		listID = db.DefaultListID
	}
	if _, err := db.ListByID(ctx, database, listID); err != nil {
		return nil, err
	}

	limit := clampLimit(input.Limit, DefaultPageLimit, MaxPageLimit)
	offset := max(input.Offset, 0)

	items, total, err := db.PagesByList(ctx, database, listID, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.ReadingListPage{}
	}

	return &ListPagesOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}
