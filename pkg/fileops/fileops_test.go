package fileops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/apperr"
	"github.com/mwhitford/filecabinet/pkg/database"
)

func setupFileopsTest(t *testing.T) (*PathBuilder, *Executor, *database.CabinetDB, string) {
	os.Setenv("GO_ENV", "test")

	db, err := database.NewCabinetDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.CreateArea(&models.Area{Name: "Finance", RangeStart: 10, RangeEnd: 19})
	require.NoError(t, err)
	_, err = db.CreateCategory(&models.Category{Number: 12, Name: "Billing"})
	require.NoError(t, err)
	_, err = db.CreateFolder(&models.Folder{Number: "12.03", Name: "Invoices", CategoryNumber: 12})
	require.NoError(t, err)

	base := t.TempDir()
	builder := NewPathBuilder(db, base)
	executor := NewExecutor(builder, db)
	return builder, executor, db, base
}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPathBuilder_Build_Hierarchy(t *testing.T) {
	builder, _, _, base := setupFileopsTest(t)

	dest, err := builder.Build("12.03", "invoice_march.pdf", BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, base, dest.BasePath)
	assert.Equal(t, filepath.Join(base, "10-19 Finance", "12 Billing", "12.03 Invoices"), dest.FolderPath)
	assert.Equal(t, filepath.Join(dest.FolderPath, "invoice_march.pdf"), dest.FullPath)
	assert.Equal(t, "12.03", dest.Folder.Number)
}

func TestPathBuilder_Build_UnknownFolder(t *testing.T) {
	builder, _, _, _ := setupFileopsTest(t)

	_, err := builder.Build("99.99", "a.pdf", BuildOptions{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestPathBuilder_Build_SanitizesHostileFilename(t *testing.T) {
	builder, _, _, base := setupFileopsTest(t)

	dest, err := builder.Build("12.03", "../../../etc/passwd", BuildOptions{})
	require.NoError(t, err)

	// Traversal collapses into underscores and the result stays inside
	// the base
	rel, err := filepath.Rel(base, dest.FullPath)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(rel, ".."))
	assert.NotContains(t, filepath.Base(dest.FullPath), "..")
}

func TestPathBuilder_Build_SymlinkEscapeFails(t *testing.T) {
	builder, _, _, base := setupFileopsTest(t)

	outside := t.TempDir()
	areaDir := filepath.Join(base, "10-19 Finance")
	require.NoError(t, os.Symlink(outside, areaDir))

	_, err := builder.Build("12.03", "a.pdf", BuildOptions{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindPathSecurity))
}

func TestPathBuilder_Build_DriveSelection(t *testing.T) {
	builder, _, db, _ := setupFileopsTest(t)

	driveRoot := t.TempDir()
	require.NoError(t, db.CreateDrive(&models.Drive{ID: "ext", Name: "External", BasePath: driveRoot}))

	dest, err := builder.Build("12.03", "a.pdf", BuildOptions{DriveID: "ext"})
	require.NoError(t, err)
	assert.Equal(t, driveRoot, dest.BasePath)

	_, err = builder.Build("12.03", "a.pdf", BuildOptions{DriveID: "nope"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestPathBuilder_Build_DefaultDrive(t *testing.T) {
	builder, _, db, _ := setupFileopsTest(t)

	driveRoot := t.TempDir()
	require.NoError(t, db.CreateDrive(&models.Drive{ID: "main", Name: "Main", BasePath: driveRoot, IsDefault: true}))

	dest, err := builder.Build("12.03", "a.pdf", BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, driveRoot, dest.BasePath)
}

func TestExecutor_MoveAndRollbackRoundTrip(t *testing.T) {
	_, executor, db, _ := setupFileopsTest(t)

	src := filepath.Join(t.TempDir(), "invoice.pdf")
	writeFile(t, src, "contents")

	result, err := executor.MoveFile(MoveRequest{SourcePath: src, FolderNumber: "12.03"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.NoFileExists(t, src)
	assert.FileExists(t, result.DestinationPath)
	require.NotZero(t, result.RecordID)

	rec, err := db.GetOrganizedFile(result.RecordID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.OrganizedStatusMoved, rec.Status)

	require.NoError(t, executor.RollbackMove(result.RecordID))
	assert.FileExists(t, src)
	assert.NoFileExists(t, result.DestinationPath)

	rec, err = db.GetOrganizedFile(result.RecordID)
	require.NoError(t, err)
	assert.Equal(t, models.OrganizedStatusUndone, rec.Status)
}

func TestExecutor_DoubleRollbackFails(t *testing.T) {
	_, executor, _, _ := setupFileopsTest(t)

	src := filepath.Join(t.TempDir(), "invoice.pdf")
	writeFile(t, src, "contents")

	result, err := executor.MoveFile(MoveRequest{SourcePath: src, FolderNumber: "12.03"})
	require.NoError(t, err)

	require.NoError(t, executor.RollbackMove(result.RecordID))
	err = executor.RollbackMove(result.RecordID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestExecutor_RollbackOccupiedOriginal(t *testing.T) {
	_, executor, _, _ := setupFileopsTest(t)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "invoice.pdf")
	writeFile(t, src, "contents")

	result, err := executor.MoveFile(MoveRequest{SourcePath: src, FolderNumber: "12.03"})
	require.NoError(t, err)

	// Something else reappears at the original location
	writeFile(t, src, "impostor")

	err = executor.RollbackMove(result.RecordID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestExecutor_MissingSource(t *testing.T) {
	_, executor, _, _ := setupFileopsTest(t)

	result, err := executor.MoveFile(MoveRequest{
		SourcePath:   filepath.Join(t.TempDir(), "nope.pdf"),
		FolderNumber: "12.03",
	})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, apperr.IsKind(err, apperr.KindFilesystem))
}

func TestExecutor_ConflictSkip(t *testing.T) {
	builder, executor, _, _ := setupFileopsTest(t)

	dest, err := builder.Build("12.03", "invoice.pdf", BuildOptions{})
	require.NoError(t, err)
	writeFile(t, dest.FullPath, "existing")

	src := filepath.Join(t.TempDir(), "invoice.pdf")
	writeFile(t, src, "new")

	result, err := executor.MoveFile(MoveRequest{
		SourcePath: src, FolderNumber: "12.03", ConflictStrategy: ConflictSkip,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Zero(t, result.RecordID)
	// Source untouched, existing destination untouched
	assert.FileExists(t, src)
	content, err := os.ReadFile(dest.FullPath)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(content))
}

func TestExecutor_ConflictRename(t *testing.T) {
	builder, executor, _, _ := setupFileopsTest(t)

	dest, err := builder.Build("12.03", "invoice.pdf", BuildOptions{})
	require.NoError(t, err)
	writeFile(t, dest.FullPath, "existing")

	src := filepath.Join(t.TempDir(), "invoice.pdf")
	writeFile(t, src, "new")

	result, err := executor.MoveFile(MoveRequest{
		SourcePath: src, FolderNumber: "12.03", ConflictStrategy: ConflictRename,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, filepath.Join(dest.FolderPath, "invoice_1.pdf"), result.DestinationPath)
	assert.FileExists(t, result.DestinationPath)
}

func TestExecutor_ConflictOverwrite(t *testing.T) {
	builder, executor, _, _ := setupFileopsTest(t)

	dest, err := builder.Build("12.03", "invoice.pdf", BuildOptions{})
	require.NoError(t, err)
	writeFile(t, dest.FullPath, "existing")

	src := filepath.Join(t.TempDir(), "invoice.pdf")
	writeFile(t, src, "new")

	result, err := executor.MoveFile(MoveRequest{
		SourcePath: src, FolderNumber: "12.03", ConflictStrategy: ConflictOverwrite,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)

	content, err := os.ReadFile(dest.FullPath)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestExecutor_UnknownConflictStrategy(t *testing.T) {
	_, executor, _, _ := setupFileopsTest(t)

	// No conflict at the destination; the bad strategy must still fail
	src := filepath.Join(t.TempDir(), "invoice.pdf")
	writeFile(t, src, "contents")

	result, err := executor.MoveFile(MoveRequest{
		SourcePath: src, FolderNumber: "12.03", ConflictStrategy: "merge",
	})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.FileExists(t, src)
}

func TestExecutor_BatchMove_Counts(t *testing.T) {
	builder, executor, _, _ := setupFileopsTest(t)

	srcDir := t.TempDir()
	a := filepath.Join(srcDir, "a.pdf")
	b := filepath.Join(srcDir, "b.pdf")
	c := filepath.Join(srcDir, "c.pdf")
	writeFile(t, a, "a")
	writeFile(t, b, "b")
	writeFile(t, c, "c")

	// Pre-place a conflict for c.pdf
	dest, err := builder.Build("12.03", "c.pdf", BuildOptions{})
	require.NoError(t, err)
	writeFile(t, dest.FullPath, "existing")

	var progress int
	batch := executor.BatchMove([]MoveRequest{
		{SourcePath: a, FolderNumber: "12.03", ConflictStrategy: ConflictSkip},
		{SourcePath: b, FolderNumber: "12.03", ConflictStrategy: ConflictSkip},
		{SourcePath: c, FolderNumber: "12.03", ConflictStrategy: ConflictSkip},
	}, BatchOptions{
		OnProgress: func(done, total int, result *MoveResult) { progress++ },
	})

	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 2, batch.Success)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, 0, batch.Failed)
	assert.Len(t, batch.Operations, 3)
	assert.Equal(t, 3, progress)
}

func TestExecutor_BatchMove_StopOnError(t *testing.T) {
	_, executor, _, _ := setupFileopsTest(t)

	srcDir := t.TempDir()
	good := filepath.Join(srcDir, "good.pdf")
	writeFile(t, good, "x")

	batch := executor.BatchMove([]MoveRequest{
		{SourcePath: filepath.Join(srcDir, "missing.pdf"), FolderNumber: "12.03"},
		{SourcePath: good, FolderNumber: "12.03"},
	}, BatchOptions{StopOnError: true})

	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 0, batch.Success)
	assert.Len(t, batch.Operations, 1)
	// The second request never ran
	assert.FileExists(t, good)
}

func TestExecutor_BatchRollback(t *testing.T) {
	_, executor, _, _ := setupFileopsTest(t)

	srcDir := t.TempDir()
	a := filepath.Join(srcDir, "a.pdf")
	b := filepath.Join(srcDir, "b.pdf")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	batch := executor.BatchMove([]MoveRequest{
		{SourcePath: a, FolderNumber: "12.03"},
		{SourcePath: b, FolderNumber: "12.03"},
	}, BatchOptions{})
	require.Equal(t, 2, batch.Success)

	items := executor.BatchRollback([]int64{
		batch.Operations[0].RecordID,
		batch.Operations[1].RecordID,
		999,
	}, nil)

	require.Len(t, items, 3)
	assert.NoError(t, items[0].Err)
	assert.NoError(t, items[1].Err)
	assert.Error(t, items[2].Err)
	assert.FileExists(t, a)
	assert.FileExists(t, b)
}

func TestExecutor_PreviewTouchesNothing(t *testing.T) {
	builder, executor, _, base := setupFileopsTest(t)

	src := filepath.Join(t.TempDir(), "invoice.pdf")
	writeFile(t, src, "x")

	dest, err := builder.Build("12.03", "invoice.pdf", BuildOptions{})
	require.NoError(t, err)

	previews := executor.PreviewOperations([]MoveRequest{
		{SourcePath: src, FolderNumber: "12.03"},
		{SourcePath: filepath.Join(base, "ghost.pdf"), FolderNumber: "99.99"},
	})

	require.Len(t, previews, 2)
	assert.True(t, previews[0].SourceExists)
	assert.False(t, previews[0].DestinationExists)
	assert.Equal(t, dest.FullPath, previews[0].DestinationPath)
	assert.Error(t, previews[1].Err)

	// Dry run: nothing moved, nothing created
	assert.FileExists(t, src)
	assert.NoDirExists(t, dest.FolderPath)
}

func TestCopyAndDelete_VerifiesSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeFile(t, src, "payload")

	require.NoError(t, copyAndDelete(src, dst))
	assert.NoFileExists(t, src)

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))
}
