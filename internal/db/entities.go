package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wikivault/wikivault/internal/contentstore"
)

// PageStatus is the lifecycle state of a reading-list page's offline content.
type PageStatus int

const (
	StatusQueuedSave       PageStatus = 0
	StatusSaved            PageStatus = 1
	StatusQueuedDelete     PageStatus = 2
	StatusQueuedForcedSave PageStatus = 3
	StatusError            PageStatus = 4
)

// String returns a human-readable status name.
func (s PageStatus) String() string {
	switch s {
	case StatusQueuedSave:
		return "queued-save"
	case StatusSaved:
		return "saved"
	case StatusQueuedDelete:
		return "queued-delete"
	case StatusQueuedForcedSave:
		return "queued-forced-save"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ReadingList is a user's named collection of pages.
type ReadingList struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"` // Markdown
	IsDefault       bool    `json:"is_default"`
	DownloadEnabled bool    `json:"download_enabled"`
	CreatedAt       int64   `json:"created_at"`
	UpdatedAt       int64   `json:"updated_at"`
}

// ReadingListPage represents a user's desire to have a page offline.
//
// Invariant: Offline=true implies Status is one of the queued/saved states.
// A page with Status=StatusSaved and Offline=false is tracked but not stored
// offline.
type ReadingListPage struct {
	ID               int64      `json:"id"`
	ListID           string     `json:"list_id"`
	Site             string     `json:"site"`
	Lang             string     `json:"lang"`
	Namespace        int        `json:"namespace"`
	DisplayTitle     string     `json:"display_title"`
	APITitle         string     `json:"api_title"`
	Description      *string    `json:"description,omitempty"`
	ThumbURL         *string    `json:"thumb_url,omitempty"`
	Status           PageStatus `json:"status"`
	Offline          bool       `json:"offline"`
	SizeBytes        int64      `json:"size_bytes"`
	Mtime            int64      `json:"mtime"`
	Atime            int64      `json:"atime"`
	Revision         int64      `json:"revision"`
	RemoteID         int64      `json:"remote_id"`
	DownloadProgress int        `json:"download_progress"`
	RetryCount       int        `json:"retry_count"`
}

// OfflineObject connects a cached network resource to its storage location
// and owning pages. (URL, Lang, SaveType) is unique; Path is
// contentstore.ComputeKey(URL, Lang).
type OfflineObject struct {
	ID       int64                 `json:"id"`
	URL      string                `json:"url"`
	Lang     string                `json:"lang"`
	Path     string                `json:"path"`
	Status   PageStatus            `json:"status"`
	UsedBy   string                `json:"usedby"` // pipe-delimited page ids, e.g. "|7|12|"
	SaveType contentstore.SaveType `json:"save_type"`
}

// UsedBySeparator delimits page ids in OfflineObject.UsedBy and in the
// X-Offline-Save-PageLibIds header.
const UsedBySeparator = "|"

// UsedByIDs parses the owner list into page ids. Malformed segments are
// skipped.
func (o *OfflineObject) UsedByIDs() []int64 {
	return ParseUsedBy(o.UsedBy)
}

// ParseUsedBy parses a pipe-delimited id list like "|7|12|".
func ParseUsedBy(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, UsedBySeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// JoinUsedBy renders page ids in the pipe-delimited owner-list form.
// An empty id list renders as "".
func JoinUsedBy(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(UsedBySeparator)
	for _, id := range ids {
		b.WriteString(strconv.FormatInt(id, 10))
		b.WriteString(UsedBySeparator)
	}
	return b.String()
}
