package match

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mwhitford/filecabinet/internal/models"
)

// parsedRule is the typed form of a persisted rule. Patterns are parsed
// once per snapshot load so matching never re-parses strings per file.
// A malformed pattern yields a matcher that never fires; it is not an
// error (one bad rule must not break the matching pass).
type parsedRule struct {
	rule            *models.Rule
	matcher         ruleMatcher
	excludeLiterals []string
	excludeRegexes  []*regexp.Regexp
}

// ruleMatcher evaluates one rule against a file record
type ruleMatcher interface {
	match(rec *models.FileRecord) (models.Confidence, string, bool)
}

func parseRule(rule *models.Rule) *parsedRule {
	pr := &parsedRule{rule: rule}

	if rule.ExcludePattern != nil {
		pr.excludeLiterals, pr.excludeRegexes = parseExcludes(*rule.ExcludePattern)
	}

	switch rule.RuleType {
	case models.RuleTypeExtension:
		pr.matcher = &extensionMatcher{ext: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(rule.Pattern), "."))}
	case models.RuleTypeKeyword:
		pr.matcher = &keywordMatcher{keywords: splitList(rule.Pattern)}
	case models.RuleTypePath:
		pr.matcher = &pathMatcher{fragment: strings.ToLower(strings.TrimSpace(rule.Pattern))}
	case models.RuleTypeRegex:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			re = nil // malformed regex: rule never matches
		}
		pr.matcher = &regexMatcher{re: re}
	case models.RuleTypeCompound:
		pr.matcher = parseCompound(rule.Pattern)
	case models.RuleTypeDate:
		pr.matcher = parseDate(rule.Pattern)
	default:
		pr.matcher = neverMatcher{}
	}

	return pr
}

// excluded reports whether the rule is vetoed for this file: any literal
// exclude substring in filename+path, or any exclude regex match, skips
// the rule entirely.
func (pr *parsedRule) excluded(rec *models.FileRecord) bool {
	haystack := strings.ToLower(rec.Filename + " " + rec.Path)
	for _, lit := range pr.excludeLiterals {
		if strings.Contains(haystack, lit) {
			return true
		}
	}
	for _, re := range pr.excludeRegexes {
		if re.MatchString(rec.Filename + " " + rec.Path) {
			return true
		}
	}
	return false
}

// parseExcludes splits a comma-separated exclude pattern into literal
// substrings and /regex/ entries. Malformed regexes are dropped.
func parseExcludes(pattern string) (literals []string, regexes []*regexp.Regexp) {
	for _, part := range strings.Split(pattern, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if len(part) > 2 && strings.HasPrefix(part, "/") && strings.HasSuffix(part, "/") {
			if re, err := regexp.Compile(part[1 : len(part)-1]); err == nil {
				regexes = append(regexes, re)
			}
			continue
		}
		literals = append(literals, strings.ToLower(part))
	}
	return literals, regexes
}

func splitList(pattern string) []string {
	var out []string
	for _, part := range strings.Split(pattern, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

type neverMatcher struct{}

func (neverMatcher) match(*models.FileRecord) (models.Confidence, string, bool) {
	return models.ConfidenceNone, "", false
}

// extensionMatcher: case-insensitive extension equality
type extensionMatcher struct {
	ext string
}

func (m *extensionMatcher) match(rec *models.FileRecord) (models.Confidence, string, bool) {
	if m.ext == "" || rec.Extension != m.ext {
		return models.ConfidenceNone, "", false
	}
	return models.ConfidenceHigh, fmt.Sprintf("File extension .%s matches", m.ext), true
}

// keywordMatcher: any keyword in the filename is a strong signal, in the
// path a weaker one
type keywordMatcher struct {
	keywords []string
}

func (m *keywordMatcher) match(rec *models.FileRecord) (models.Confidence, string, bool) {
	name := strings.ToLower(rec.Filename)
	path := strings.ToLower(rec.Path)

	for _, kw := range m.keywords {
		if strings.Contains(name, kw) {
			return models.ConfidenceHigh, fmt.Sprintf("Filename contains %q", kw), true
		}
	}
	for _, kw := range m.keywords {
		if strings.Contains(path, kw) {
			return models.ConfidenceMedium, fmt.Sprintf("File path contains %q", kw), true
		}
	}
	return models.ConfidenceNone, "", false
}

// pathMatcher: case-insensitive substring of the full path
type pathMatcher struct {
	fragment string
}

func (m *pathMatcher) match(rec *models.FileRecord) (models.Confidence, string, bool) {
	if m.fragment == "" || !strings.Contains(strings.ToLower(rec.Path), m.fragment) {
		return models.ConfidenceNone, "", false
	}
	return models.ConfidenceMedium, fmt.Sprintf("File path contains %q", m.fragment), true
}

// regexMatcher tests the pattern against "filename path". Regex matches
// rank low: user regexes tend to over-match.
type regexMatcher struct {
	re *regexp.Regexp
}

func (m *regexMatcher) match(rec *models.FileRecord) (models.Confidence, string, bool) {
	if m.re == nil {
		return models.ConfidenceNone, "", false
	}
	if !m.re.MatchString(rec.Filename + " " + rec.Path) {
		return models.ConfidenceNone, "", false
	}
	return models.ConfidenceLow, fmt.Sprintf("Pattern %q matches", m.re.String()), true
}

// compoundMatcher requires every clause to match independently
type compoundMatcher struct {
	exts     []string
	keywords []string
	valid    bool
}

func parseCompound(pattern string) *compoundMatcher {
	m := &compoundMatcher{}
	for _, part := range strings.Split(pattern, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "ext:"):
			ext := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(part, "ext:"), "."))
			if ext != "" {
				m.exts = append(m.exts, ext)
				m.valid = true
			}
		case strings.HasPrefix(part, "keyword:"):
			kw := strings.ToLower(strings.TrimPrefix(part, "keyword:"))
			if kw != "" {
				m.keywords = append(m.keywords, kw)
				m.valid = true
			}
		case part == "":
			// tolerated
		default:
			// unknown clause: the whole rule can never be satisfied
			m.valid = false
			return m
		}
	}
	return m
}

func (m *compoundMatcher) match(rec *models.FileRecord) (models.Confidence, string, bool) {
	if !m.valid {
		return models.ConfidenceNone, "", false
	}

	for _, ext := range m.exts {
		if rec.Extension != ext {
			return models.ConfidenceNone, "", false
		}
	}

	haystack := strings.ToLower(rec.Filename + " " + rec.Path)
	for _, kw := range m.keywords {
		if !strings.Contains(haystack, kw) {
			return models.ConfidenceNone, "", false
		}
	}

	var parts []string
	for _, ext := range m.exts {
		parts = append(parts, "."+ext)
	}
	parts = append(parts, m.keywords...)
	return models.ConfidenceHigh, fmt.Sprintf("All conditions match (%s)", strings.Join(parts, ", ")), true
}

// Date rules

type dateClauseKind int

const (
	clauseYear dateClauseKind = iota
	clauseMonth
	clauseQuarter
	clauseAny
)

type dateClause struct {
	kind  dateClauseKind
	value string
}

// dateMatcher extracts a date token from the filename and checks every
// clause against it
type dateMatcher struct {
	clauses []dateClause
	valid   bool
}

// datePatterns is ordered by specificity; the first match wins
var datePatterns = []struct {
	re  *regexp.Regexp
	iso bool
	// group indexes for year/month (0 = absent)
	yearGroup  int
	monthGroup int
}{
	{regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`), true, 1, 2},
	{regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`), false, 1, 2},
	{regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`), false, 3, 2},
	{regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`), false, 1, 0},
}

type extractedDate struct {
	iso   bool
	year  string
	month string
}

func extractDate(filename string) *extractedDate {
	for _, p := range datePatterns {
		groups := p.re.FindStringSubmatch(filename)
		if groups == nil {
			continue
		}
		d := &extractedDate{iso: p.iso}
		if p.yearGroup > 0 && p.yearGroup < len(groups) {
			d.year = groups[p.yearGroup]
		}
		if p.monthGroup > 0 && p.monthGroup < len(groups) {
			d.month = groups[p.monthGroup]
		}
		// Reject implausible months from ambiguous numeric forms
		if d.month != "" {
			if m, err := strconv.Atoi(d.month); err != nil || m < 1 || m > 12 {
				d.month = ""
			}
		}
		return d
	}
	return nil
}

func parseDate(pattern string) *dateMatcher {
	m := &dateMatcher{}
	for _, part := range strings.Split(pattern, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "year:"):
			m.clauses = append(m.clauses, dateClause{kind: clauseYear, value: strings.TrimPrefix(part, "year:")})
			m.valid = true
		case strings.HasPrefix(part, "month:"):
			m.clauses = append(m.clauses, dateClause{kind: clauseMonth, value: strings.TrimPrefix(part, "month:")})
			m.valid = true
		case strings.HasPrefix(part, "quarter:"):
			m.clauses = append(m.clauses, dateClause{kind: clauseQuarter, value: strings.ToUpper(strings.TrimPrefix(part, "quarter:"))})
			m.valid = true
		case strings.HasPrefix(part, "pattern:"):
			m.clauses = append(m.clauses, dateClause{kind: clauseAny})
			m.valid = true
		case part == "":
		default:
			m.valid = false
			return m
		}
	}
	return m
}

func (m *dateMatcher) match(rec *models.FileRecord) (models.Confidence, string, bool) {
	if !m.valid || len(m.clauses) == 0 {
		return models.ConfidenceNone, "", false
	}

	d := extractDate(rec.Filename)
	if d == nil {
		return models.ConfidenceNone, "", false
	}

	yearMatched := false
	for _, clause := range m.clauses {
		switch clause.kind {
		case clauseYear:
			if d.year != clause.value {
				return models.ConfidenceNone, "", false
			}
			yearMatched = true
		case clauseMonth:
			if d.month == "" || strings.TrimLeft(d.month, "0") != strings.TrimLeft(clause.value, "0") {
				return models.ConfidenceNone, "", false
			}
		case clauseQuarter:
			if quarterOf(d.month) != clause.value {
				return models.ConfidenceNone, "", false
			}
		case clauseAny:
			// any recognized date token satisfies this clause
		}
	}

	confidence := models.ConfidenceMedium
	if d.iso && yearMatched {
		confidence = models.ConfidenceHigh
	}

	reason := "Filename contains a date token"
	if d.year != "" {
		reason = fmt.Sprintf("Filename contains date from %s", d.year)
	}
	return confidence, reason, true
}

func quarterOf(month string) string {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return ""
	}
	return fmt.Sprintf("Q%d", (m-1)/3+1)
}
