// Package watch turns filesystem events into organize decisions: events
// are debounced per path, matched against the rule engine, and moved
// automatically when confidence is high enough.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/classify"
	"github.com/mwhitford/filecabinet/pkg/fileops"
	"github.com/mwhitford/filecabinet/pkg/logger"
	"github.com/mwhitford/filecabinet/pkg/scanner"
)

// DefaultDebounce is the per-path settle interval before a file is acted on
const DefaultDebounce = 2 * time.Second

// Op identifies what happened to a path
type Op int

const (
	OpCreated Op = iota
	OpModified
	OpRemoved
)

// Event is one filesystem notification. The pipeline consumes these from
// an injected channel; the fsnotify adapter in this package produces
// them, tests feed them directly.
type Event struct {
	Path string
	Op   Op
}

// Matcher is the slice of the matching engine the pipeline needs
type Matcher interface {
	MatchFile(rec *models.FileRecord) ([]*models.Suggestion, error)
	RecordMatch(ruleID int64) error
}

// Mover is the slice of the executor the pipeline needs
type Mover interface {
	MoveFile(req fileops.MoveRequest) (*fileops.MoveResult, error)
}

// Options tunes pipeline behavior
type Options struct {
	// Debounce is the per-path quiet interval; 0 selects DefaultDebounce
	Debounce time.Duration
	// AutoOrganizeConfidence is the minimum confidence for an unattended
	// move. ConfidenceNone disables auto-organizing; suggestions are only
	// logged.
	AutoOrganizeConfidence models.Confidence
	// OnDecision observes every settled file with its suggestions and
	// whether a move was performed. Optional, used by the CLI for review
	// output.
	OnDecision func(rec *models.FileRecord, suggestions []*models.Suggestion, moved *fileops.MoveResult)
}

// Pipeline consumes events and decides per file whether to organize it
type Pipeline struct {
	events    <-chan Event
	engine    Matcher
	executor  Mover
	opts      Options
	debouncer *Debouncer
	log       *logrus.Entry
}

// NewPipeline wires a pipeline over an injected event channel
func NewPipeline(events <-chan Event, engine Matcher, executor Mover, opts Options) *Pipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Pipeline{
		events:    events,
		engine:    engine,
		executor:  executor,
		opts:      opts,
		debouncer: NewDebouncer(opts.Debounce),
		log:       logger.WithName("watch"),
	}
}

// Run consumes events until ctx is cancelled or the event channel closes.
// Each create/modify schedules a debounced decision for its path; a
// remove cancels any pending decision.
func (p *Pipeline) Run(ctx context.Context) {
	defer p.debouncer.Stop()

	p.log.WithField("debounce", p.opts.Debounce.String()).Info("Watch pipeline started")

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Watch pipeline stopped")
			return
		case ev, ok := <-p.events:
			if !ok {
				p.log.Info("Event source closed, watch pipeline stopped")
				return
			}
			p.handle(ctx, ev)
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, ev Event) {
	if ev.Op == OpRemoved {
		p.debouncer.Cancel(ev.Path)
		return
	}

	name := filepath.Base(ev.Path)
	if scanner.Ignored(name, false) {
		return
	}

	p.debouncer.Trigger(ev.Path, func() {
		if ctx.Err() != nil {
			return
		}
		p.decide(ev.Path)
	})
}

// decide stats a settled path, matches it, and moves it when the top
// suggestion clears the configured threshold.
func (p *Pipeline) decide(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Settled and gone again; nothing to do
		return
	}
	if !info.Mode().IsRegular() {
		return
	}

	name := filepath.Base(path)
	ext := classify.Extension(name)
	rec := &models.FileRecord{
		Filename:  name,
		Path:      path,
		Extension: ext,
		FileType:  classify.ByExtension(ext),
		SizeBytes: info.Size(),
	}

	suggestions, err := p.engine.MatchFile(rec)
	if err != nil {
		p.log.WithError(err).WithField("path", path).Warn("Match failed for watched file")
		return
	}

	var moved *fileops.MoveResult
	if len(suggestions) > 0 && p.shouldAutoOrganize(suggestions[0]) {
		top := suggestions[0]
		result, err := p.executor.MoveFile(fileops.MoveRequest{
			SourcePath:       path,
			FolderNumber:     top.TargetFolder.Number,
			ConflictStrategy: fileops.ConflictRename,
		})
		if err != nil {
			p.log.WithError(err).WithField("path", path).Warn("Auto-organize move failed")
		} else if result.Status == fileops.StatusSuccess {
			moved = result
			if top.SourceRule != nil {
				if err := p.engine.RecordMatch(top.SourceRule.ID); err != nil {
					p.log.WithError(err).Warn("Failed to record rule match")
				}
			}
			p.log.WithFields(logrus.Fields{
				"path":       path,
				"folder":     top.TargetFolder.Number,
				"confidence": top.Confidence,
			}).Info("Auto-organized watched file")
		}
	} else if len(suggestions) > 0 {
		p.log.WithFields(logrus.Fields{
			"path":       path,
			"folder":     suggestions[0].TargetFolder.Number,
			"confidence": suggestions[0].Confidence,
		}).Info("Suggestion recorded for review")
	}

	if p.opts.OnDecision != nil {
		p.opts.OnDecision(rec, suggestions, moved)
	}
}

func (p *Pipeline) shouldAutoOrganize(top *models.Suggestion) bool {
	threshold := p.opts.AutoOrganizeConfidence
	if threshold == "" || threshold == models.ConfidenceNone {
		return false
	}
	return top.Confidence.Rank() >= threshold.Rank()
}
