// Package scanner walks a directory tree and produces typed file records
// for the matching engine.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/apperr"
	"github.com/mwhitford/filecabinet/pkg/classify"
	"github.com/mwhitford/filecabinet/pkg/logger"
)

// DefaultMaxDepth bounds recursion when the caller does not say otherwise
const DefaultMaxDepth = 10

// progressEvery is the per-file cadence of progress callbacks inside one
// directory (directory starts always report).
const progressEvery = 50

// skippedDirs are tooling directories never descended into
var skippedDirs = map[string]bool{
	"node_modules": true, ".git": true, ".svn": true, ".hg": true,
	"dist": true, "build": true, "target": true, "out": true,
	"vendor": true, "__pycache__": true, ".venv": true, "venv": true,
	".idea": true, ".vscode": true, "bower_components": true,
}

// skippedFiles are OS junk and lockfiles never recorded
var skippedFiles = map[string]bool{
	".DS_Store": true, "Thumbs.db": true, "desktop.ini": true,
	"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"Cargo.lock": true, "Gemfile.lock": true, "poetry.lock": true,
	"composer.lock": true, "go.sum": true,
}

// Progress is a running snapshot pushed to the OnProgress callback
type Progress struct {
	ScannedFiles   int
	ScannedDirs    int
	TotalSizeBytes int64
	CurrentPath    string
	Errors         []string
}

// Options configures one scan
type Options struct {
	OnProgress func(p Progress)
	OnFile     func(rec *models.FileRecord)
	MaxDepth   int // 0 means DefaultMaxDepth
	Persist    bool
	// SessionID reuses an existing session id, clearing its previous
	// records first. Empty generates a fresh id.
	SessionID string
	// ExtraIgnoredDirs and ExtraIgnoredFiles extend the built-in skip lists
	ExtraIgnoredDirs  []string
	ExtraIgnoredFiles []string
}

// Stats accumulates totals for one scan
type Stats struct {
	ScannedFiles   int
	ScannedDirs    int
	SkippedEntries int
	TotalSizeBytes int64
	Errors         []string
	Cancelled      bool
}

// Result is the outcome of a scan. A cancelled scan still succeeds;
// Files holds whatever was collected before the cancellation flag was
// observed.
type Result struct {
	SessionID string
	Files     []*models.FileRecord
	Stats     Stats
}

// Recorder is the slice of the persistence layer the scanner needs
type Recorder interface {
	AddScannedFile(rec *models.FileRecord) (int64, error)
	ClearScannedFiles(sessionID string) error
}

// Scanner walks directory trees. Construct with New and share one
// instance; it holds no per-scan state.
type Scanner struct {
	db  Recorder
	log *logrus.Entry
}

// New creates a scanner backed by the given recorder (nil disables
// persistence regardless of Options.Persist).
func New(db Recorder) *Scanner {
	return &Scanner{
		db:  db,
		log: logger.WithName("scanner"),
	}
}

type scanState struct {
	opts         Options
	result       *Result
	filesSinceCB int
}

// Scan walks root recursively, classifying every retained file.
// Cancellation is cooperative through ctx and is not an error: the
// returned result reflects partial progress.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.Filesystem("scan", "could not resolve scan root", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, apperr.Filesystem("scan", "scan root is not accessible", err)
	}
	if !info.IsDir() {
		return nil, apperr.Validation("scan", "scan root is not a directory")
	}

	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if s.db != nil && opts.Persist {
		if err := s.db.ClearScannedFiles(sessionID); err != nil {
			return nil, apperr.Database("clear_scanned_files", err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"root":     abs,
		"session":  sessionID,
		"maxDepth": opts.MaxDepth,
	}).Info("Starting scan")

	state := &scanState{
		opts:   opts,
		result: &Result{SessionID: sessionID},
	}

	s.scanDir(ctx, abs, 0, state)

	if state.result.Stats.Cancelled {
		s.log.WithFields(logrus.Fields{
			"session": sessionID,
			"files":   state.result.Stats.ScannedFiles,
		}).Info("Scan cancelled, returning partial results")
	} else {
		s.log.WithFields(logrus.Fields{
			"session":   sessionID,
			"files":     state.result.Stats.ScannedFiles,
			"dirs":      state.result.Stats.ScannedDirs,
			"totalSize": state.result.Stats.TotalSizeBytes,
			"errors":    len(state.result.Stats.Errors),
		}).Info("Scan complete")
	}

	return state.result, nil
}

// scanDir processes one directory depth-first. Read failures skip the
// subtree but never abort the scan.
func (s *Scanner) scanDir(ctx context.Context, dir string, depth int, state *scanState) {
	if state.result.Stats.Cancelled {
		return
	}
	if err := ctx.Err(); err != nil {
		state.result.Stats.Cancelled = true
		return
	}
	if depth > state.opts.MaxDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.WithError(err).WithField("path", dir).Warn("Failed to read directory")
		state.result.Stats.Errors = append(state.result.Stats.Errors, "read failed: "+dir)
		return
	}

	state.result.Stats.ScannedDirs++
	s.reportProgress(state, dir)

	for _, entry := range entries {
		if state.result.Stats.Cancelled {
			return
		}
		if err := ctx.Err(); err != nil {
			state.result.Stats.Cancelled = true
			return
		}

		name := entry.Name()
		if s.shouldSkip(name, entry.IsDir(), state.opts) {
			state.result.Stats.SkippedEntries++
			continue
		}

		full := filepath.Join(dir, name)

		if entry.IsDir() {
			s.scanDir(ctx, full, depth+1, state)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.log.WithError(err).WithField("path", full).Warn("Failed to stat file")
			state.result.Stats.Errors = append(state.result.Stats.Errors, "stat failed: "+full)
			continue
		}
		if !info.Mode().IsRegular() {
			state.result.Stats.SkippedEntries++
			continue
		}

		ext := classify.Extension(name)
		rec := &models.FileRecord{
			Filename:      name,
			Path:          full,
			Extension:     ext,
			FileType:      classify.ByExtension(ext),
			SizeBytes:     info.Size(),
			ScanSessionID: state.result.SessionID,
		}

		if state.opts.OnFile != nil {
			state.opts.OnFile(rec)
		}

		if state.opts.Persist && s.db != nil {
			id, err := s.db.AddScannedFile(rec)
			if err != nil {
				s.log.WithError(err).WithField("path", full).Warn("Failed to persist file record")
				state.result.Stats.Errors = append(state.result.Stats.Errors, "persist failed: "+full)
			} else {
				rec.ID = id
			}
		}

		state.result.Files = append(state.result.Files, rec)
		state.result.Stats.ScannedFiles++
		state.result.Stats.TotalSizeBytes += info.Size()

		state.filesSinceCB++
		if state.filesSinceCB >= progressEvery {
			s.reportProgress(state, full)
		}
	}
}

// shouldSkip applies the deny lists plus the per-scan extras
func (s *Scanner) shouldSkip(name string, isDir bool, opts Options) bool {
	if Ignored(name, isDir) {
		return true
	}
	if isDir {
		for _, extra := range opts.ExtraIgnoredDirs {
			if name == extra {
				return true
			}
		}
		return false
	}
	for _, extra := range opts.ExtraIgnoredFiles {
		if name == extra {
			return true
		}
	}
	return false
}

// Ignored reports whether a name falls under the built-in deny lists:
// dot-prefixed names, tooling directories, OS junk and lockfiles.
func Ignored(name string, isDir bool) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if isDir {
		return skippedDirs[name]
	}
	return skippedFiles[name]
}

func (s *Scanner) reportProgress(state *scanState, current string) {
	state.filesSinceCB = 0
	if state.opts.OnProgress == nil {
		return
	}
	state.opts.OnProgress(Progress{
		ScannedFiles:   state.result.Stats.ScannedFiles,
		ScannedDirs:    state.result.Stats.ScannedDirs,
		TotalSizeBytes: state.result.Stats.TotalSizeBytes,
		CurrentPath:    current,
		Errors:         state.result.Stats.Errors,
	})
}
