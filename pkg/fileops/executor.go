package fileops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/apperr"
	"github.com/mwhitford/filecabinet/pkg/classify"
	"github.com/mwhitford/filecabinet/pkg/logger"
	"github.com/mwhitford/filecabinet/pkg/sanitize"
)

// ConflictStrategy decides what happens when the destination exists
type ConflictStrategy string

const (
	ConflictSkip      ConflictStrategy = "skip"
	ConflictRename    ConflictStrategy = "rename"
	ConflictOverwrite ConflictStrategy = "overwrite"
)

// MoveStatus is the per-operation state machine: pending moves to
// success, failed or skipped; success moves one-way to rolled_back.
type MoveStatus string

const (
	StatusPending    MoveStatus = "pending"
	StatusSuccess    MoveStatus = "success"
	StatusFailed     MoveStatus = "failed"
	StatusSkipped    MoveStatus = "skipped"
	StatusRolledBack MoveStatus = "rolled_back"
)

// MoveRequest describes one file move
type MoveRequest struct {
	SourcePath       string
	FolderNumber     string
	ConflictStrategy ConflictStrategy
	DriveID          string
}

// MoveResult is the outcome of one move attempt. RecordID is set only on
// success and identifies the audit record for rollback.
type MoveResult struct {
	Status          MoveStatus
	SourcePath      string
	DestinationPath string
	Filename        string
	FolderNumber    string
	RecordID        int64
	Reason          string
	Err             error
}

// RecordStore is the slice of the persistence layer the executor needs
type RecordStore interface {
	RecordOrganizedFile(rec *models.OrganizedFileRecord) (int64, error)
	GetOrganizedFile(id int64) (*models.OrganizedFileRecord, error)
	UpdateOrganizedFileStatus(id int64, status models.OrganizedStatus) error
}

// Executor performs file moves and their rollbacks. One instance is
// shared; all state lives in the filesystem and the audit log.
type Executor struct {
	builder *PathBuilder
	db      RecordStore
	log     *logrus.Entry
}

// NewExecutor creates an executor over the given path builder and audit
// store
func NewExecutor(builder *PathBuilder, db RecordStore) *Executor {
	return &Executor{
		builder: builder,
		db:      db,
		log:     logger.WithName("executor"),
	}
}

// MoveFile moves one file into its taxonomy folder. On success the move
// is recorded in the audit log and the record id returned for rollback.
func (e *Executor) MoveFile(req MoveRequest) (*MoveResult, error) {
	result := &MoveResult{
		Status:       StatusPending,
		SourcePath:   req.SourcePath,
		FolderNumber: req.FolderNumber,
		Filename:     filepath.Base(req.SourcePath),
	}

	info, err := os.Stat(req.SourcePath)
	if err != nil {
		return e.fail(result, apperr.Filesystem("move_file", "source file is not accessible", err))
	}
	if !info.Mode().IsRegular() {
		return e.fail(result, apperr.Validation("move_file", "source is not a regular file"))
	}

	switch req.ConflictStrategy {
	case "", ConflictSkip, ConflictRename, ConflictOverwrite:
	default:
		return e.fail(result, apperr.Validation("move_file", fmt.Sprintf("unknown conflict strategy: %s", req.ConflictStrategy)))
	}

	dest, err := e.builder.Build(req.FolderNumber, result.Filename, BuildOptions{DriveID: req.DriveID})
	if err != nil {
		return e.fail(result, err)
	}

	if err := os.MkdirAll(dest.FolderPath, 0o755); err != nil {
		return e.fail(result, apperr.Filesystem("move_file", "could not create destination directory", err))
	}

	target := dest.FullPath
	if _, err := os.Stat(target); err == nil {
		switch req.ConflictStrategy {
		case ConflictSkip, "":
			result.Status = StatusSkipped
			result.DestinationPath = target
			result.Reason = "destination already exists"
			e.log.WithField("path", target).Info("Skipping move, destination exists")
			return result, nil
		case ConflictRename:
			unique, err := sanitize.UniqueName(dest.FolderPath, filepath.Base(target))
			if err != nil {
				return e.fail(result, apperr.Filesystem("move_file", "could not find a free filename", err))
			}
			target = filepath.Join(dest.FolderPath, unique)
		case ConflictOverwrite:
			// proceed, rename replaces the existing file
		}
	}

	if err := movePhysical(req.SourcePath, target); err != nil {
		return e.fail(result, apperr.Filesystem("move_file", "could not move file", err))
	}

	ext := classify.Extension(result.Filename)
	recordID, err := e.db.RecordOrganizedFile(&models.OrganizedFileRecord{
		Filename:           filepath.Base(target),
		OriginalPath:       req.SourcePath,
		CurrentPath:        target,
		TargetFolderNumber: req.FolderNumber,
		Extension:          ext,
		FileType:           classify.ByExtension(ext),
		SizeBytes:          info.Size(),
	})
	if err != nil {
		// The file already moved; surface the record failure rather than
		// attempting to move it back.
		return e.fail(result, apperr.Database("record_move", err))
	}

	result.Status = StatusSuccess
	result.DestinationPath = target
	result.RecordID = recordID

	e.log.WithFields(logrus.Fields{
		"source":      req.SourcePath,
		"destination": target,
		"folder":      req.FolderNumber,
		"record":      recordID,
	}).Info("Moved file")

	return result, nil
}

// RollbackMove reverses a recorded move and flips its status to undone.
// Fails when the record isn't in the moved state, the moved file is gone,
// or the original location is occupied again.
func (e *Executor) RollbackMove(recordID int64) error {
	rec, err := e.db.GetOrganizedFile(recordID)
	if err != nil {
		return apperr.Database("rollback", err)
	}
	if rec == nil {
		return apperr.Validation("rollback", fmt.Sprintf("no organized file record %d", recordID))
	}
	if rec.Status != models.OrganizedStatusMoved {
		return apperr.Validation("rollback", fmt.Sprintf("record %d is %s, not moved", recordID, rec.Status))
	}

	if _, err := os.Stat(rec.CurrentPath); err != nil {
		return apperr.Filesystem("rollback", "moved file no longer exists", err)
	}
	if _, err := os.Stat(rec.OriginalPath); err == nil {
		return apperr.Validation("rollback", "original location is occupied")
	}

	if err := os.MkdirAll(filepath.Dir(rec.OriginalPath), 0o755); err != nil {
		return apperr.Filesystem("rollback", "could not recreate original directory", err)
	}
	if err := movePhysical(rec.CurrentPath, rec.OriginalPath); err != nil {
		return apperr.Filesystem("rollback", "could not move file back", err)
	}

	if err := e.db.UpdateOrganizedFileStatus(recordID, models.OrganizedStatusUndone); err != nil {
		return apperr.Database("rollback", err)
	}

	e.log.WithFields(logrus.Fields{
		"record":   recordID,
		"restored": rec.OriginalPath,
	}).Info("Rolled back move")

	return nil
}

// BatchOptions configures a batch move
type BatchOptions struct {
	// OnProgress runs after every item with the running result
	OnProgress func(done, total int, result *MoveResult)
	// StopOnError aborts the batch at the first failed item; already
	// processed results are still returned.
	StopOnError bool
}

// BatchResult summarizes a batch move. Operations always holds one entry
// per attempted item in input order.
type BatchResult struct {
	Total      int
	Success    int
	Failed     int
	Skipped    int
	Operations []*MoveResult
}

// BatchMove processes requests sequentially. Filesystem state changes
// stay easy to reason about and progress reporting stays deterministic.
func (e *Executor) BatchMove(requests []MoveRequest, opts BatchOptions) *BatchResult {
	batch := &BatchResult{Total: len(requests)}

	for i, req := range requests {
		result, err := e.MoveFile(req)
		if err != nil && result == nil {
			result = &MoveResult{
				Status:     StatusFailed,
				SourcePath: req.SourcePath,
				Err:        err,
			}
		}
		batch.Operations = append(batch.Operations, result)

		switch result.Status {
		case StatusSuccess:
			batch.Success++
		case StatusSkipped:
			batch.Skipped++
		default:
			batch.Failed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, batch.Total, result)
		}

		if opts.StopOnError && result.Status == StatusFailed {
			break
		}
	}

	e.log.WithFields(logrus.Fields{
		"total":   batch.Total,
		"success": batch.Success,
		"failed":  batch.Failed,
		"skipped": batch.Skipped,
	}).Info("Batch move complete")

	return batch
}

// RollbackItem is the outcome of one rollback inside a batch
type RollbackItem struct {
	RecordID int64
	Err      error
}

// BatchRollback reverses recorded moves sequentially, collecting per-item
// errors instead of aborting.
func (e *Executor) BatchRollback(recordIDs []int64, onProgress func(done, total int, item *RollbackItem)) []*RollbackItem {
	items := make([]*RollbackItem, 0, len(recordIDs))
	for i, id := range recordIDs {
		item := &RollbackItem{RecordID: id, Err: e.RollbackMove(id)}
		items = append(items, item)
		if onProgress != nil {
			onProgress(i+1, len(recordIDs), item)
		}
	}
	return items
}

// Preview describes what a move would do without performing it
type Preview struct {
	SourcePath        string
	DestinationPath   string
	SourceExists      bool
	DestinationExists bool
	Err               error
}

// PreviewOperations computes destinations and conflict flags for the
// given requests. Pure dry-run: nothing on disk changes.
func (e *Executor) PreviewOperations(requests []MoveRequest) []*Preview {
	previews := make([]*Preview, 0, len(requests))
	for _, req := range requests {
		p := &Preview{SourcePath: req.SourcePath}

		if _, err := os.Stat(req.SourcePath); err == nil {
			p.SourceExists = true
		}

		dest, err := e.builder.Build(req.FolderNumber, filepath.Base(req.SourcePath), BuildOptions{DriveID: req.DriveID})
		if err != nil {
			p.Err = err
			previews = append(previews, p)
			continue
		}

		p.DestinationPath = dest.FullPath
		if _, err := os.Stat(dest.FullPath); err == nil {
			p.DestinationExists = true
		}
		previews = append(previews, p)
	}
	return previews
}

func (e *Executor) fail(result *MoveResult, err error) (*MoveResult, error) {
	result.Status = StatusFailed
	result.Err = err
	result.Reason = apperr.UserMessage(err)
	e.log.WithError(err).WithField("source", result.SourcePath).Warn("Move failed")
	return result, err
}

// movePhysical renames src to dst, falling back to copy-verify-delete
// when the rename crosses filesystems.
func movePhysical(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	return copyAndDelete(src, dst)
}

func isCrossDevice(err error) bool {
	if errors.Is(err, syscall.EXDEV) {
		return true
	}
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV)
}

// copyAndDelete copies src to dst, verifies the byte count, then removes
// src. A failed verify removes the partial copy and leaves src intact.
func copyAndDelete(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}

	written, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}

	if written != srcInfo.Size() {
		os.Remove(dst)
		return fmt.Errorf("copy verification failed: wrote %d of %d bytes", written, srcInfo.Size())
	}

	return os.Remove(src)
}
