// Package contentstore provides durable byte storage for fetched resources,
// addressed by a hash of (url, language). Each saved resource is a pair of
// files under a save-type-specific root: <key>.0 holds the response headers
// (one "Name: value" per line) and <key>.1 holds the raw body.
package contentstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wikivault/wikivault/internal/errors"
)

// SaveType classifies an offline-cached object as either tied to a user's
// reading list (deletable per-page) or a full-site archive (independently
// managed).
type SaveType int

const (
	SaveTypeReadingList SaveType = 0
	SaveTypeFullArchive SaveType = 1
)

// Header values carried by X-Offline-Save.
const (
	saveTypeReadingListName = "readinglist"
	saveTypeFullArchiveName = "fullarchive"
)

// String returns the wire name of the save type.
func (t SaveType) String() string {
	switch t {
	case SaveTypeReadingList:
		return saveTypeReadingListName
	case SaveTypeFullArchive:
		return saveTypeFullArchiveName
	default:
		return fmt.Sprintf("savetype(%d)", int(t))
	}
}

// ParseSaveType parses a wire name into a SaveType.
func ParseSaveType(s string) (SaveType, bool) {
	switch s {
	case saveTypeReadingListName:
		return SaveTypeReadingList, true
	case saveTypeFullArchiveName:
		return SaveTypeFullArchive, true
	default:
		return 0, false
	}
}

// Store persists and retrieves raw HTTP response bytes and headers keyed by
// ComputeKey. It holds one root directory per save type.
type Store struct {
	rlDir      string
	archiveDir string
	logger     *slog.Logger
}

// New creates a Store rooted at baseDir. The reading-list root is
// baseDir/offline_pages_rl and the full-archive root is
// baseDir/wiki_archive/content. Directories are created lazily on Write.
func New(baseDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		rlDir:      filepath.Join(baseDir, "offline_pages_rl"),
		archiveDir: filepath.Join(baseDir, "wiki_archive", "content"),
		logger:     logger,
	}
}

// ComputeKey returns the hex-encoded SHA-256 of url concatenated with lang.
// Deterministic; distinct inputs practically never collide.
func ComputeKey(url, lang string) string {
	sum := sha256.Sum256([]byte(url + lang))
	return hex.EncodeToString(sum[:])
}

// root returns the storage root for a save type.
func (s *Store) root(saveType SaveType) string {
	if saveType == SaveTypeFullArchive {
		return s.archiveDir
	}
	return s.rlDir
}

// headerPath and bodyPath derive the two file paths for a key.
func (s *Store) headerPath(key string, saveType SaveType) string {
	return filepath.Join(s.root(saveType), key+".0")
}

func (s *Store) bodyPath(key string, saveType SaveType) string {
	return filepath.Join(s.root(saveType), key+".1")
}

// Write persists headers and body for key under the save-type root, creating
// the directory if absent. There is no rollback on partial failure: a crash
// between the two file writes leaves an inconsistent pair, detected at read
// time by requiring both files to exist.
func (s *Store) Write(key string, headers map[string]string, body []byte, saveType SaveType) error {
	dir := s.root(saveType)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create storage root: %w", err))
	}

	if err := os.WriteFile(s.headerPath(key, saveType), serializeHeaders(headers), 0600); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to write header file: %w", err))
	}
	if err := os.WriteFile(s.bodyPath(key, saveType), body, 0600); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to write content file: %w", err))
	}
	return nil
}

// Read returns the stored headers and body for key. A missing header or
// content file is a cache miss.
func (s *Store) Read(key string, saveType SaveType) (map[string]string, []byte, error) {
	headerBytes, err := os.ReadFile(s.headerPath(key, saveType))
	if err != nil {
		return nil, nil, errors.NewCacheMiss(key, saveType.String())
	}
	body, err := os.ReadFile(s.bodyPath(key, saveType))
	if err != nil {
		return nil, nil, errors.NewCacheMiss(key, saveType.String())
	}
	return parseHeaders(headerBytes), body, nil
}

// Exists reports whether both files for key are present.
func (s *Store) Exists(key string, saveType SaveType) bool {
	if _, err := os.Stat(s.headerPath(key, saveType)); err != nil {
		return false
	}
	if _, err := os.Stat(s.bodyPath(key, saveType)); err != nil {
		return false
	}
	return true
}

// SizeOf returns the combined size in bytes of both files for key, or 0 if
// either is missing.
func (s *Store) SizeOf(key string, saveType SaveType) int64 {
	hi, err := os.Stat(s.headerPath(key, saveType))
	if err != nil {
		return 0
	}
	bi, err := os.Stat(s.bodyPath(key, saveType))
	if err != nil {
		return 0
	}
	return hi.Size() + bi.Size()
}

// Delete removes both files for each key, best-effort: per-file errors are
// logged and do not abort the batch.
func (s *Store) Delete(keys []string, saveType SaveType) {
	for _, key := range keys {
		for _, path := range []string{s.headerPath(key, saveType), s.bodyPath(key, saveType)} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("failed to remove cached file", "path", path, "error", err)
			}
		}
	}
}

// serializeHeaders writes headers one per line as "Name: value", sorted by
// name so the on-disk form is deterministic.
func serializeHeaders(headers map[string]string) []byte {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(headers[name])
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// parseHeaders reverses serializeHeaders. Malformed lines are skipped.
func parseHeaders(data []byte) map[string]string {
	headers := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		name, value, ok := strings.Cut(line, ": ")
		if !ok || name == "" {
			continue
		}
		headers[name] = value
	}
	return headers
}
