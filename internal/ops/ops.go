// Package ops implements the operations exposed by the CLI and web UI.
// Each operation validates its input, calls into internal/db and friends,
// and returns a typed output struct.
package ops

// Pagination limits
const (
	DefaultPageLimit   = 20
	MaxPageLimit       = 100
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// clampLimit applies the default and upper bound for a page size.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
