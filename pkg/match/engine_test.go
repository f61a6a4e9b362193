package match

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/database"
)

func setupEngineTest(t *testing.T) (*Engine, *database.CabinetDB) {
	os.Setenv("GO_ENV", "test")

	db, err := database.NewCabinetDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.CreateArea(&models.Area{Name: "Finance", RangeStart: 10, RangeEnd: 19})
	require.NoError(t, err)
	_, err = db.CreateCategory(&models.Category{Number: 11, Name: "Documents"})
	require.NoError(t, err)
	_, err = db.CreateCategory(&models.Category{Number: 12, Name: "Billing"})
	require.NoError(t, err)
	_, err = db.CreateFolder(&models.Folder{Number: "11.01", Name: "General Documents", CategoryNumber: 11})
	require.NoError(t, err)
	_, err = db.CreateFolder(&models.Folder{Number: "12.03", Name: "Invoices", CategoryNumber: 12})
	require.NoError(t, err)

	return NewEngine(db, time.Hour), db
}

func addRule(t *testing.T, db *database.CabinetDB, rule *models.Rule) int64 {
	rule.IsActive = true
	id, err := db.CreateRule(rule)
	require.NoError(t, err)
	return id
}

func pdfRecord(filename string) *models.FileRecord {
	return &models.FileRecord{
		Filename:  filename,
		Path:      "/home/user/Downloads/" + filename,
		Extension: "pdf",
		FileType:  models.FileTypeDocument,
	}
}

func TestEngine_ExtensionRule_HighConfidence(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "11.01",
	})

	suggestions, err := engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "11.01", suggestions[0].TargetFolder.Number)
	assert.Equal(t, models.ConfidenceHigh, suggestions[0].Confidence)
	assert.NotNil(t, suggestions[0].SourceRule)
}

func TestEngine_KeywordRule_FilenameVsPath(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "invoices", RuleType: models.RuleTypeKeyword, Pattern: "invoice",
		TargetType: models.TargetTypeFolder, TargetID: "12.03",
	})

	// Keyword in the filename is a strong signal
	suggestions, err := engine.MatchFile(pdfRecord("invoice_march.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, models.ConfidenceHigh, suggestions[0].Confidence)

	// Keyword only in the path is weaker
	rec := &models.FileRecord{
		Filename: "scan001.pdf", Path: "/home/user/invoices/scan001.pdf", Extension: "pdf",
	}
	suggestions, err = engine.MatchFile(rec)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, models.ConfidenceMedium, suggestions[0].Confidence)
}

func TestEngine_ExcludePattern_Vetoes(t *testing.T) {
	engine, db := setupEngineTest(t)
	exclude := "draft"
	addRule(t, db, &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "11.01",
		ExcludePattern: &exclude,
	})

	suggestions, err := engine.MatchFile(pdfRecord("draft_report.pdf"))
	require.NoError(t, err)
	for _, s := range suggestions {
		assert.Nil(t, s.SourceRule, "excluded rule must not produce a suggestion")
	}

	suggestions, err = engine.MatchFile(pdfRecord("final_report.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.NotNil(t, suggestions[0].SourceRule)
}

func TestEngine_ExcludePattern_Regex(t *testing.T) {
	engine, db := setupEngineTest(t)
	exclude := "/^tmp_/"
	addRule(t, db, &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "11.01",
		ExcludePattern: &exclude,
	})

	suggestions, err := engine.MatchFile(pdfRecord("tmp_scan.pdf"))
	require.NoError(t, err)
	for _, s := range suggestions {
		assert.Nil(t, s.SourceRule)
	}
}

func TestEngine_CompoundRule_AllClausesRequired(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "pdf invoices", RuleType: models.RuleTypeCompound,
		Pattern:    "ext:pdf, keyword:invoice",
		TargetType: models.TargetTypeFolder, TargetID: "12.03",
	})

	suggestions, err := engine.MatchFile(pdfRecord("invoice_march.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, models.ConfidenceHigh, suggestions[0].Confidence)

	// Extension matches but the keyword clause fails
	suggestions, err = engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	for _, s := range suggestions {
		assert.Nil(t, s.SourceRule)
	}
}

func TestEngine_DateRule(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "2024 files", RuleType: models.RuleTypeDate, Pattern: "year:2024",
		TargetType: models.TargetTypeFolder, TargetID: "11.01",
	})

	// ISO date with a year match ranks high
	suggestions, err := engine.MatchFile(pdfRecord("statement_2024-03-15.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, models.ConfidenceHigh, suggestions[0].Confidence)

	// Bare year ranks medium
	suggestions, err = engine.MatchFile(pdfRecord("summary 2024.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, models.ConfidenceMedium, suggestions[0].Confidence)

	// Wrong year does not match
	suggestions, err = engine.MatchFile(pdfRecord("statement_2023-03-15.pdf"))
	require.NoError(t, err)
	for _, s := range suggestions {
		assert.Nil(t, s.SourceRule)
	}
}

func TestEngine_MalformedRegex_NeverMatches(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "broken", RuleType: models.RuleTypeRegex, Pattern: "([unclosed",
		TargetType: models.TargetTypeFolder, TargetID: "11.01",
	})

	suggestions, err := engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	for _, s := range suggestions {
		assert.Nil(t, s.SourceRule)
	}
}

func TestEngine_PriorityBreaksConfidenceTies(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "invoices", RuleType: models.RuleTypeKeyword, Pattern: "invoice",
		TargetType: models.TargetTypeFolder, TargetID: "12.03", Priority: 10,
	})
	addRule(t, db, &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "11.01", Priority: 5,
	})

	suggestions, err := engine.MatchFile(pdfRecord("invoice_march.pdf"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(suggestions), 2)
	assert.Equal(t, "12.03", suggestions[0].TargetFolder.Number)
	assert.Equal(t, "11.01", suggestions[1].TargetFolder.Number)
}

func TestEngine_CategoryTargetResolution(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "billing", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeCategory, TargetID: "12",
	})

	suggestions, err := engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "12.03", suggestions[0].TargetFolder.Number)
}

func TestEngine_AreaTargetResolution(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "finance", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeArea, TargetID: "10-19",
	})

	suggestions, err := engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	// First folder in the area's category range, in number order
	assert.Equal(t, "11.01", suggestions[0].TargetFolder.Number)
}

func TestEngine_UnresolvableTargetDropped(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "ghost", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "99.99",
	})

	suggestions, err := engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	for _, s := range suggestions {
		assert.Nil(t, s.SourceRule)
	}
}

func TestEngine_DedupesByTargetFolder(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "12.03", Priority: 5,
	})
	addRule(t, db, &models.Rule{
		Name: "invoices", RuleType: models.RuleTypeKeyword, Pattern: "invoice",
		TargetType: models.TargetTypeFolder, TargetID: "12.03", Priority: 10,
	})

	suggestions, err := engine.MatchFile(pdfRecord("invoice_march.pdf"))
	require.NoError(t, err)

	seen := map[string]int{}
	for _, s := range suggestions {
		seen[s.TargetFolder.Number]++
	}
	for number, count := range seen {
		assert.Equal(t, 1, count, "folder %s suggested more than once", number)
	}
}

func TestEngine_HeuristicsSilencedByRuleMatch(t *testing.T) {
	engine, db := setupEngineTest(t)
	// The "Invoices" folder would attract pdf files heuristically
	addRule(t, db, &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "11.01",
	})

	suggestions, err := engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	for _, s := range suggestions {
		assert.NotNil(t, s.SourceRule, "folder %s suggested heuristically despite a rule match", s.TargetFolder.Number)
	}
}

func TestEngine_HeuristicFallback_ExtensionTheme(t *testing.T) {
	engine, db := setupEngineTest(t)
	keywords := "budget, finance"
	_, err := db.CreateFolder(&models.Folder{
		Number: "12.05", Name: "Budgets", CategoryNumber: 12, Keywords: &keywords,
	})
	require.NoError(t, err)

	rec := &models.FileRecord{
		Filename: "numbers.xlsx", Path: "/tmp/numbers.xlsx", Extension: "xlsx",
	}
	suggestions, err := engine.MatchFile(rec)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Nil(t, suggestions[0].SourceRule)
	assert.Equal(t, "12.05", suggestions[0].TargetFolder.Number)
	assert.Equal(t, models.ConfidenceMedium, suggestions[0].Confidence)
}

func TestEngine_HeuristicFallback_NameSimilarity(t *testing.T) {
	engine, db := setupEngineTest(t)
	keywords := "invoice"
	_, err := db.CreateFolder(&models.Folder{
		Number: "12.07", Name: "Receivables", CategoryNumber: 12, Keywords: &keywords,
	})
	require.NoError(t, err)

	rec := &models.FileRecord{
		Filename: "invoices.dat", Path: "/tmp/invoices.dat", Extension: "dat",
	}
	suggestions, err := engine.MatchFile(rec)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	// Both the "Invoices" folder name and the 12.07 keyword resemble the
	// filename
	var numbers []string
	for _, s := range suggestions {
		assert.Nil(t, s.SourceRule)
		assert.Equal(t, models.ConfidenceLow, s.Confidence)
		numbers = append(numbers, s.TargetFolder.Number)
	}
	assert.Contains(t, numbers, "12.07")
	assert.Contains(t, numbers, "12.03")
}

func TestTokenSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, tokenSimilarity("report", "report"))
	assert.Equal(t, 0.8, tokenSimilarity("invoices", "invoice"))
	// Character-set comparison scores anagrams as identical; accepted and
	// pinned here so a change is a conscious one.
	assert.Equal(t, 1.0, tokenSimilarity("listen", "silent"))
	assert.Less(t, tokenSimilarity("report", "zzz"), 0.3)
}

func TestEngine_SnapshotCaching(t *testing.T) {
	engine, db := setupEngineTest(t)

	// Prime the snapshot with no rules
	suggestions, err := engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	for _, s := range suggestions {
		assert.Nil(t, s.SourceRule)
	}

	addRule(t, db, &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "11.01",
	})

	// Still stale inside the TTL
	suggestions, err = engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	for _, s := range suggestions {
		assert.Nil(t, s.SourceRule)
	}

	engine.Invalidate()

	suggestions, err = engine.MatchFile(pdfRecord("report.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.NotNil(t, suggestions[0].SourceRule)
}

func TestEngine_RecordMatch(t *testing.T) {
	engine, db := setupEngineTest(t)
	id := addRule(t, db, &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "11.01",
	})

	require.NoError(t, engine.RecordMatch(id))

	rule, err := db.GetRule(id)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, 1, rule.MatchCount)
}

func TestEngine_BatchMatch_Aligned(t *testing.T) {
	engine, db := setupEngineTest(t)
	addRule(t, db, &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "11.01",
	})

	files := []*models.FileRecord{
		pdfRecord("a.pdf"),
		{Filename: "b.unknownext", Path: "/tmp/b.unknownext", Extension: "unknownext"},
	}

	results, err := engine.BatchMatch(files)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotEmpty(t, results[0])
	assert.NotNil(t, results[0][0].SourceRule)
	assert.Empty(t, results[1])
}

func TestExtractDate(t *testing.T) {
	d := extractDate("statement_2024-03-15.pdf")
	require.NotNil(t, d)
	assert.True(t, d.iso)
	assert.Equal(t, "2024", d.year)
	assert.Equal(t, "03", d.month)

	d = extractDate("IMG_20240315.jpg")
	require.NotNil(t, d)
	assert.False(t, d.iso)
	assert.Equal(t, "2024", d.year)

	d = extractDate("summary 2024.pdf")
	require.NotNil(t, d)
	assert.Equal(t, "2024", d.year)
	assert.Equal(t, "", d.month)

	assert.Nil(t, extractDate("report.pdf"))
}

func TestQuarterOf(t *testing.T) {
	assert.Equal(t, "Q1", quarterOf("03"))
	assert.Equal(t, "Q2", quarterOf("04"))
	assert.Equal(t, "Q4", quarterOf("12"))
	assert.Equal(t, "", quarterOf(""))
}
