// Package rename applies filename templates to a directory in bulk and
// keeps an undo log of the most recent batches.
package rename

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/apperr"
	"github.com/mwhitford/filecabinet/pkg/logger"
	"github.com/mwhitford/filecabinet/pkg/sanitize"
)

// Pattern describes how new names are derived from old ones. Fields
// compose: find/replace runs first, then prefix/suffix, then numbering.
type Pattern struct {
	Prefix  string
	Suffix  string // inserted before the extension
	Find    string
	Replace string
	// Numbered appends a sequence number before the extension,
	// starting at StartAt (0 means 1), zero-padded to PadWidth digits.
	Numbered bool
	StartAt  int
	PadWidth int
}

func (p Pattern) empty() bool {
	return p.Prefix == "" && p.Suffix == "" && p.Find == "" && !p.Numbered
}

// Plan is one projected rename
type Plan struct {
	OriginalName string
	NewName      string
}

// UndoItem is the outcome of reversing one entry
type UndoItem struct {
	Entry  *models.RenameEntry
	Undone bool
	Reason string
}

// BatchLog is the slice of the persistence layer the renamer needs
type BatchLog interface {
	RecordRenameBatch(batch *models.RenameBatch, entries []*models.RenameEntry) error
	GetRenameBatch(id string) (*models.RenameBatch, []*models.RenameEntry, error)
	ListRenameBatches() ([]*models.RenameBatch, error)
	DeleteRenameBatch(id string) error
}

// Renamer renames the regular files of one directory at a time
type Renamer struct {
	db  BatchLog
	log *logrus.Entry
}

// New creates a renamer over the given undo log
func New(db BatchLog) *Renamer {
	return &Renamer{
		db:  db,
		log: logger.WithName("rename"),
	}
}

// Preview computes the renames Apply would perform without touching the
// filesystem. Collision-free unique names are not resolved here; Apply
// handles them at execution time.
func (r *Renamer) Preview(dir string, pattern Pattern) ([]*Plan, error) {
	if pattern.empty() {
		return nil, apperr.Validation("rename", "rename pattern is empty")
	}

	names, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	plans := make([]*Plan, 0, len(names))
	for i, name := range names {
		newName := applyPattern(name, pattern, i)
		if newName == name {
			continue
		}
		plans = append(plans, &Plan{OriginalName: name, NewName: newName})
	}
	return plans, nil
}

// Apply renames every matching file in dir per the pattern and records
// the batch in the undo log. Existing files are never overwritten; a
// colliding name gets a unique suffix instead.
func (r *Renamer) Apply(dir string, pattern Pattern) (*models.RenameBatch, []*models.RenameEntry, error) {
	plans, err := r.Preview(dir, pattern)
	if err != nil {
		return nil, nil, err
	}

	batch := &models.RenameBatch{
		ID:        uuid.NewString(),
		Directory: dir,
	}

	var entries []*models.RenameEntry
	for _, plan := range plans {
		newName, err := sanitize.UniqueName(dir, plan.NewName)
		if err != nil {
			return nil, nil, apperr.Filesystem("rename", "could not find a free filename", err)
		}

		oldPath := filepath.Join(dir, plan.OriginalName)
		newPath := filepath.Join(dir, newName)
		if err := os.Rename(oldPath, newPath); err != nil {
			// Abort mid-batch: already renamed files stay renamed and are
			// still recorded so the partial batch can be undone.
			r.log.WithError(err).WithField("path", oldPath).Warn("Rename failed, aborting batch")
			if len(entries) > 0 {
				if recErr := r.db.RecordRenameBatch(batch, entries); recErr != nil {
					r.log.WithError(recErr).Warn("Failed to record partial rename batch")
				}
			}
			return nil, nil, apperr.Filesystem("rename", "could not rename file", err)
		}

		entries = append(entries, &models.RenameEntry{
			BatchID:      batch.ID,
			OriginalPath: oldPath,
			RenamedPath:  newPath,
			OriginalName: plan.OriginalName,
			NewName:      newName,
		})
	}

	if len(entries) == 0 {
		return batch, nil, nil
	}

	if err := r.db.RecordRenameBatch(batch, entries); err != nil {
		return nil, nil, apperr.Database("record_rename_batch", err)
	}

	r.log.WithFields(logrus.Fields{
		"batch":   batch.ID,
		"dir":     dir,
		"renamed": len(entries),
	}).Info("Applied rename batch")

	return batch, entries, nil
}

// Undo reverses a recorded batch entry by entry, newest entry first.
// Entries whose renamed file moved away or whose original name is taken
// again are skipped with a reason; the rest are restored. The batch is
// removed from the log afterwards.
func (r *Renamer) Undo(batchID string) ([]*UndoItem, error) {
	batch, entries, err := r.db.GetRenameBatch(batchID)
	if err != nil {
		return nil, apperr.Database("undo_rename", err)
	}
	if batch == nil {
		return nil, apperr.Validation("undo_rename", fmt.Sprintf("rename batch %s is unknown or evicted", batchID))
	}

	items := make([]*UndoItem, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		item := &UndoItem{Entry: entry}

		if _, err := os.Stat(entry.RenamedPath); err != nil {
			item.Reason = "renamed file no longer exists"
			items = append(items, item)
			continue
		}
		if _, err := os.Stat(entry.OriginalPath); err == nil {
			item.Reason = "original name is taken"
			items = append(items, item)
			continue
		}

		if err := os.Rename(entry.RenamedPath, entry.OriginalPath); err != nil {
			item.Reason = apperr.UserMessage(apperr.Filesystem("undo_rename", "could not restore file", err))
			items = append(items, item)
			continue
		}
		item.Undone = true
		items = append(items, item)
	}

	if err := r.db.DeleteRenameBatch(batchID); err != nil {
		return items, apperr.Database("undo_rename", err)
	}

	restored := 0
	for _, item := range items {
		if item.Undone {
			restored++
		}
	}
	r.log.WithFields(logrus.Fields{
		"batch":    batchID,
		"restored": restored,
		"skipped":  len(items) - restored,
	}).Info("Undid rename batch")

	return items, nil
}

// History lists retained batches, newest first
func (r *Renamer) History() ([]*models.RenameBatch, error) {
	batches, err := r.db.ListRenameBatches()
	if err != nil {
		return nil, apperr.Database("list_rename_batches", err)
	}
	return batches, nil
}

// listFiles returns the sorted regular files of dir, excluding dotfiles
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.Filesystem("rename", "could not read directory", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// applyPattern derives the new name for the i-th file
func applyPattern(name string, pattern Pattern, i int) string {
	stem, ext := sanitize.SplitExt(name)

	if pattern.Find != "" {
		stem = strings.ReplaceAll(stem, pattern.Find, pattern.Replace)
	}
	if pattern.Prefix != "" {
		stem = pattern.Prefix + stem
	}
	if pattern.Suffix != "" {
		stem += pattern.Suffix
	}
	if pattern.Numbered {
		start := pattern.StartAt
		if start <= 0 {
			start = 1
		}
		pad := pattern.PadWidth
		if pad <= 0 {
			pad = 1
		}
		stem = fmt.Sprintf("%s_%0*d", stem, pad, start+i)
	}

	return sanitize.Name(stem + ext)
}
