// Package match ranks destination folders for scanned files, first by
// user-defined rules and then by a heuristic fallback.
package match

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/apperr"
	"github.com/mwhitford/filecabinet/pkg/logger"
)

// DefaultCacheTTL bounds how stale the rule/taxonomy snapshot may get
const DefaultCacheTTL = 30 * time.Second

// slowRuleThreshold triggers a warning when one rule takes this long on a
// single file
const slowRuleThreshold = 50 * time.Millisecond

// Store is the slice of the persistence layer the engine reads from
type Store interface {
	GetActiveRules() ([]*models.Rule, error)
	GetFolders() ([]*models.Folder, error)
	GetAreas() ([]*models.Area, error)
	IncrementRuleMatchCount(id int64) error
}

// snapshot is one immutable load of rules and taxonomy. Rules arrive
// pre-sorted by priority from the store and are parsed once here.
type snapshot struct {
	rules           []*parsedRule
	folders         []*models.Folder
	foldersByNumber map[string]*models.Folder
	areas           []*models.Area
	loadedAt        time.Time
}

// Engine matches files against the active rule set. Safe for concurrent
// use; the snapshot is refreshed lazily when its TTL lapses or after
// Invalidate.
type Engine struct {
	db  Store
	ttl time.Duration
	log *logrus.Entry

	mu   sync.Mutex
	snap *snapshot
}

// NewEngine creates a matching engine. ttl <= 0 selects DefaultCacheTTL.
func NewEngine(db Store, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Engine{
		db:  db,
		ttl: ttl,
		log: logger.WithName("match"),
	}
}

// Invalidate drops the cached snapshot so the next match reloads
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.snap = nil
	e.mu.Unlock()
}

// MatchFile returns ranked suggestions for one file. Rule matches come
// first, ordered by confidence then rule priority; heuristic fallbacks
// follow. Duplicate target folders are collapsed keeping the strongest.
func (e *Engine) MatchFile(rec *models.FileRecord) ([]*models.Suggestion, error) {
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return e.matchWithSnapshot(snap, rec), nil
}

// BatchMatch matches many files against a single snapshot load. The
// returned slice is index-aligned with files.
func (e *Engine) BatchMatch(files []*models.FileRecord) ([][]*models.Suggestion, error) {
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	out := make([][]*models.Suggestion, len(files))
	for i, rec := range files {
		out[i] = e.matchWithSnapshot(snap, rec)
	}
	return out, nil
}

// RecordMatch bumps a rule's confirmed-use counter and invalidates the
// snapshot so the new count is visible to subsequent matches.
func (e *Engine) RecordMatch(ruleID int64) error {
	if err := e.db.IncrementRuleMatchCount(ruleID); err != nil {
		return apperr.Database("record_match", err)
	}
	e.Invalidate()
	return nil
}

func (e *Engine) snapshot() (*snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snap != nil && time.Since(e.snap.loadedAt) < e.ttl {
		return e.snap, nil
	}

	rules, err := e.db.GetActiveRules()
	if err != nil {
		return nil, apperr.Database("load_rules", err)
	}
	folders, err := e.db.GetFolders()
	if err != nil {
		return nil, apperr.Database("load_folders", err)
	}
	areas, err := e.db.GetAreas()
	if err != nil {
		return nil, apperr.Database("load_areas", err)
	}

	snap := &snapshot{
		folders:         folders,
		foldersByNumber: make(map[string]*models.Folder, len(folders)),
		areas:           areas,
		loadedAt:        time.Now(),
	}
	for _, folder := range folders {
		snap.foldersByNumber[folder.Number] = folder
	}
	for _, rule := range rules {
		snap.rules = append(snap.rules, parseRule(rule))
	}

	e.log.WithFields(logrus.Fields{
		"rules":   len(snap.rules),
		"folders": len(folders),
	}).Debug("Refreshed matching snapshot")

	e.snap = snap
	return snap, nil
}

func (e *Engine) matchWithSnapshot(snap *snapshot, rec *models.FileRecord) []*models.Suggestion {
	var suggestions []*models.Suggestion

	for _, pr := range snap.rules {
		start := time.Now()
		var (
			confidence models.Confidence
			reason     string
			matched    bool
		)
		if !pr.excluded(rec) {
			confidence, reason, matched = pr.matcher.match(rec)
		}
		if elapsed := time.Since(start); elapsed > slowRuleThreshold {
			e.log.WithFields(logrus.Fields{
				"rule":    pr.rule.Name,
				"elapsed": elapsed.String(),
			}).Warn("Slow rule evaluation")
		}
		if !matched {
			continue
		}

		folder := resolveTarget(snap, pr.rule)
		if folder == nil {
			// Target points at nothing that exists; the rule is skipped,
			// not an error.
			e.log.WithFields(logrus.Fields{
				"rule":   pr.rule.Name,
				"target": pr.rule.TargetID,
			}).Debug("Rule target unresolvable")
			continue
		}

		suggestions = append(suggestions, &models.Suggestion{
			TargetFolder: folder,
			SourceRule:   pr.rule,
			Confidence:   confidence,
			Reason:       fmt.Sprintf("Rule %q: %s", pr.rule.Name, reason),
		})
	}

	// The heuristics only speak when no rule claimed the file
	if len(suggestions) == 0 {
		suggestions = heuristicSuggestions(rec, snap.folders)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		ri, rj := suggestions[i].Confidence.Rank(), suggestions[j].Confidence.Rank()
		if ri != rj {
			return ri > rj
		}
		return rulePriority(suggestions[i]) > rulePriority(suggestions[j])
	})

	return dedupeByFolder(suggestions)
}

// rulePriority orders suggestions of equal confidence; heuristics rank
// below any rule.
func rulePriority(s *models.Suggestion) int {
	if s.SourceRule == nil {
		return -1 << 30
	}
	return s.SourceRule.Priority
}

func dedupeByFolder(suggestions []*models.Suggestion) []*models.Suggestion {
	seen := make(map[string]bool, len(suggestions))
	out := suggestions[:0]
	for _, s := range suggestions {
		if seen[s.TargetFolder.Number] {
			continue
		}
		seen[s.TargetFolder.Number] = true
		out = append(out, s)
	}
	return out
}

// resolveTarget maps a rule's target onto a concrete folder: folders
// directly, categories and areas to their first folder in number order.
func resolveTarget(snap *snapshot, rule *models.Rule) *models.Folder {
	switch rule.TargetType {
	case models.TargetTypeFolder:
		return snap.foldersByNumber[rule.TargetID]

	case models.TargetTypeCategory:
		number, err := strconv.Atoi(strings.TrimSpace(rule.TargetID))
		if err != nil {
			return nil
		}
		for _, folder := range snap.folders {
			if folder.CategoryNumber == number {
				return folder
			}
		}
		return nil

	case models.TargetTypeArea:
		area := findArea(snap.areas, rule.TargetID)
		if area == nil {
			return nil
		}
		for _, folder := range snap.folders {
			if folder.CategoryNumber >= area.RangeStart && folder.CategoryNumber <= area.RangeEnd {
				return folder
			}
		}
		return nil
	}
	return nil
}

// findArea accepts either a numeric area id or a "10-19" range string
func findArea(areas []*models.Area, targetID string) *models.Area {
	targetID = strings.TrimSpace(targetID)

	if id, err := strconv.ParseInt(targetID, 10, 64); err == nil {
		for _, area := range areas {
			if area.ID == id {
				return area
			}
		}
		return nil
	}

	parts := strings.SplitN(targetID, "-", 2)
	if len(parts) != 2 {
		return nil
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return nil
	}
	for _, area := range areas {
		if area.RangeStart == start && area.RangeEnd == end {
			return area
		}
	}
	return nil
}
