package database

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitford/filecabinet/internal/models"
)

func setupTestDB(t *testing.T) *CabinetDB {
	os.Setenv("GO_ENV", "test")

	db, err := NewCabinetDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func seedTaxonomy(t *testing.T, db *CabinetDB) {
	_, err := db.CreateArea(&models.Area{Name: "Finance", RangeStart: 10, RangeEnd: 19})
	require.NoError(t, err)
	_, err = db.CreateCategory(&models.Category{Number: 12, Name: "Invoices"})
	require.NoError(t, err)
	_, err = db.CreateFolder(&models.Folder{Number: "12.03", Name: "Paid", CategoryNumber: 12})
	require.NoError(t, err)
}

func TestCabinetDB_TaxonomyRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	seedTaxonomy(t, db)

	areas, err := db.GetAreas()
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, "Finance", areas[0].Name)
	assert.Equal(t, 10, areas[0].RangeStart)

	folders, err := db.GetFolders()
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "12.03", folders[0].Number)
	assert.Equal(t, 12, folders[0].CategoryNumber)
}

func TestCabinetDB_GetFolderByNumber_Missing(t *testing.T) {
	db := setupTestDB(t)

	folder, err := db.GetFolderByNumber("99.99")
	require.NoError(t, err)
	assert.Nil(t, folder)
}

func TestCabinetDB_DeleteCategory_WithFolders(t *testing.T) {
	db := setupTestDB(t)
	seedTaxonomy(t, db)

	err := db.DeleteCategory(12)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 1 folders")
}

func TestCabinetDB_DefaultDrive_Switches(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.CreateDrive(&models.Drive{ID: "main", Name: "Main", BasePath: "/mnt/main", IsDefault: true}))
	require.NoError(t, db.CreateDrive(&models.Drive{ID: "backup", Name: "Backup", BasePath: "/mnt/backup", IsDefault: true}))

	drive, err := db.GetDefaultDrive()
	require.NoError(t, err)
	require.NotNil(t, drive)
	assert.Equal(t, "backup", drive.ID)

	// The old default lost its flag
	main, err := db.GetDrive("main")
	require.NoError(t, err)
	require.NotNil(t, main)
	assert.False(t, main.IsDefault)
}

func TestCabinetDB_GetDefaultDrive_None(t *testing.T) {
	db := setupTestDB(t)

	drive, err := db.GetDefaultDrive()
	require.NoError(t, err)
	assert.Nil(t, drive)
}

func TestValidateRule(t *testing.T) {
	valid := &models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "12.03",
	}
	assert.NoError(t, ValidateRule(valid))

	missing := *valid
	missing.Pattern = ""
	assert.Error(t, ValidateRule(&missing))

	badType := *valid
	badType.RuleType = "glob"
	assert.Error(t, ValidateRule(&badType))

	badTarget := *valid
	badTarget.TargetType = "drive"
	assert.Error(t, ValidateRule(&badTarget))
}

func TestCabinetDB_Rules_PriorityOrder(t *testing.T) {
	db := setupTestDB(t)

	for _, r := range []struct {
		name     string
		priority int
	}{
		{"low", 1}, {"high", 10}, {"mid", 5},
	} {
		_, err := db.CreateRule(&models.Rule{
			Name: r.name, RuleType: models.RuleTypeExtension, Pattern: "pdf",
			TargetType: models.TargetTypeFolder, TargetID: "12.03",
			Priority: r.priority, IsActive: true,
		})
		require.NoError(t, err)
	}

	rules, err := db.GetActiveRules()
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "high", rules[0].Name)
	assert.Equal(t, "mid", rules[1].Name)
	assert.Equal(t, "low", rules[2].Name)
}

func TestCabinetDB_Rules_ActiveFilter(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.CreateRule(&models.Rule{
		Name: "on", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "12.03", IsActive: true,
	})
	require.NoError(t, err)
	_, err = db.CreateRule(&models.Rule{
		Name: "off", RuleType: models.RuleTypeExtension, Pattern: "jpg",
		TargetType: models.TargetTypeFolder, TargetID: "12.03", IsActive: false,
	})
	require.NoError(t, err)

	active, err := db.GetActiveRules()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "on", active[0].Name)

	all, err := db.ListRules()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCabinetDB_IncrementRuleMatchCount(t *testing.T) {
	db := setupTestDB(t)

	id, err := db.CreateRule(&models.Rule{
		Name: "pdfs", RuleType: models.RuleTypeExtension, Pattern: "pdf",
		TargetType: models.TargetTypeFolder, TargetID: "12.03", IsActive: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.IncrementRuleMatchCount(id))
	require.NoError(t, db.IncrementRuleMatchCount(id))

	rule, err := db.GetRule(id)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, 2, rule.MatchCount)
}

func TestCabinetDB_ScannedFiles_SessionLifecycle(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 3; i++ {
		_, err := db.AddScannedFile(&models.FileRecord{
			Filename: fmt.Sprintf("file%d.pdf", i), Path: fmt.Sprintf("/tmp/file%d.pdf", i),
			Extension: "pdf", FileType: models.FileTypeDocument,
			SizeBytes: 100, ScanSessionID: "s1",
		})
		require.NoError(t, err)
	}
	_, err := db.AddScannedFile(&models.FileRecord{
		Filename: "other.txt", Path: "/tmp/other.txt",
		Extension: "txt", FileType: models.FileTypeDocument,
		SizeBytes: 10, ScanSessionID: "s2",
	})
	require.NoError(t, err)

	files, err := db.GetScannedFiles("s1")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	require.NoError(t, db.ClearScannedFiles("s1"))

	files, err = db.GetScannedFiles("s1")
	require.NoError(t, err)
	assert.Empty(t, files)

	// Other sessions are untouched
	files, err = db.GetScannedFiles("s2")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestCabinetDB_OrganizedFiles_StatusFlip(t *testing.T) {
	db := setupTestDB(t)

	id, err := db.RecordOrganizedFile(&models.OrganizedFileRecord{
		Filename: "report.pdf", OriginalPath: "/tmp/report.pdf",
		CurrentPath: "/cab/12.03/report.pdf", TargetFolderNumber: "12.03",
		Extension: "pdf", FileType: models.FileTypeDocument, SizeBytes: 42,
	})
	require.NoError(t, err)

	rec, err := db.GetOrganizedFile(id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.OrganizedStatusMoved, rec.Status)

	require.NoError(t, db.UpdateOrganizedFileStatus(id, models.OrganizedStatusUndone))

	rec, err = db.GetOrganizedFile(id)
	require.NoError(t, err)
	assert.Equal(t, models.OrganizedStatusUndone, rec.Status)
}

func TestCabinetDB_GetOrganizedFile_Missing(t *testing.T) {
	db := setupTestDB(t)

	rec, err := db.GetOrganizedFile(999)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCabinetDB_RenameBatch_RoundTrip(t *testing.T) {
	db := setupTestDB(t)

	batch := &models.RenameBatch{ID: "batch-1", Directory: "/tmp/photos"}
	entries := []*models.RenameEntry{
		{BatchID: "batch-1", OriginalPath: "/tmp/photos/a.jpg", RenamedPath: "/tmp/photos/trip_1.jpg", OriginalName: "a.jpg", NewName: "trip_1.jpg"},
		{BatchID: "batch-1", OriginalPath: "/tmp/photos/b.jpg", RenamedPath: "/tmp/photos/trip_2.jpg", OriginalName: "b.jpg", NewName: "trip_2.jpg"},
	}
	require.NoError(t, db.RecordRenameBatch(batch, entries))

	got, gotEntries, err := db.GetRenameBatch("batch-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/tmp/photos", got.Directory)
	require.Len(t, gotEntries, 2)
	assert.Equal(t, "a.jpg", gotEntries[0].OriginalName)
}

func TestCabinetDB_RenameBatch_Eviction(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < maxRenameBatches+1; i++ {
		batch := &models.RenameBatch{ID: fmt.Sprintf("batch-%02d", i), Directory: "/tmp"}
		entries := []*models.RenameEntry{{
			BatchID: batch.ID, OriginalPath: "/tmp/a", RenamedPath: "/tmp/b",
			OriginalName: "a", NewName: "b",
		}}
		require.NoError(t, db.RecordRenameBatch(batch, entries))
	}

	batches, err := db.ListRenameBatches()
	require.NoError(t, err)
	assert.Len(t, batches, maxRenameBatches)

	// The oldest batch was evicted along with its entries
	evicted, entries, err := db.GetRenameBatch("batch-00")
	require.NoError(t, err)
	assert.Nil(t, evicted)
	assert.Nil(t, entries)
}
