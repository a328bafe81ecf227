package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/errors"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	ID     int64  // page id, or address by title below
	ListID string
	Lang   string
	Title  string
	Path   string // optional, default: ~/.wikivault/exports/<title>-<timestamp>.md
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	PageID     int64  `json:"page_id"`
	Bytes      int    `json:"bytes"`
	ExportedAt int64  `json:"exported_at"`
}

// Export converts a saved page's stored content to Markdown and writes it
// to a file. The page content must already be stored offline; Export never
// touches the network.
func Export(ctx context.Context, database *sql.DB, store *contentstore.Store, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	page, err := resolvePage(ctx, database, input.ID, input.ListID, input.Lang, input.Title)
	if err != nil {
		return nil, err
	}

	body, err := storedBody(ctx, database, store, page.ID)
	if err != nil {
		return nil, err
	}

	markdown, err := htmlToMarkdown(string(body))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("markdown conversion failed: %w", err))
	}
	content := fmt.Sprintf("# %s\n\n%s\n", page.DisplayTitle, markdown)

	now := time.Now()
	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(page.DisplayTitle, now)
		if err != nil {
			return nil, err
		}
	}

	// Validate all paths, defaults included: page titles feed the default
	// filename and must not smuggle path components.
	if err := ValidateExportPath(exportPath, cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	if err := writeFileAtomic(exportPath, []byte(content)); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		PageID:     page.ID,
		Bytes:      len(content),
		ExportedAt: now.Unix(),
	}, nil
}

// storedBody loads the page's saved HTML from the content store.
func storedBody(ctx context.Context, database *sql.DB, store *contentstore.Store, pageID int64) ([]byte, error) {
	objects, err := db.ObjectsForPage(ctx, database, pageID)
	if err != nil {
		return nil, err
	}
	for _, object := range objects {
		if object.SaveType != contentstore.SaveTypeReadingList {
			continue
		}
		_, body, err := store.Read(object.Path, object.SaveType)
		if err != nil {
			return nil, err
		}
		return body, nil
	}
	return nil, errors.NewPageNotFound(fmt.Sprintf("page %d has no stored content", pageID))
}

func htmlToMarkdown(html string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return conv.ConvertString(html)
}

// defaultExportPath generates the default export path:
// ~/.wikivault/exports/<title>-<timestamp>.md
func defaultExportPath(title string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.md", SanitizeForFilename(title), now.Format("2006-01-02T150405"))
	return filepath.Join(dir, name), nil
}

// writeFileAtomic writes to a temp file and renames it into place so a
// failure cannot clobber an existing export.
func writeFileAtomic(path string, content []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(content); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before rename; required on Windows, harmless elsewhere.
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	success = true
	return nil
}
