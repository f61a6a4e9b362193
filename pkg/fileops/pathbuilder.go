// Package fileops builds destination paths inside the organized storage
// tree and executes file moves against them.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/apperr"
	"github.com/mwhitford/filecabinet/pkg/logger"
	"github.com/mwhitford/filecabinet/pkg/sanitize"
)

// FallbackDirName is the storage root under ~/Documents used when no
// drive is configured
const FallbackDirName = "FileCabinet"

// TaxonomyStore is the slice of the persistence layer the builder needs
type TaxonomyStore interface {
	GetFolderByNumber(number string) (*models.Folder, error)
	GetCategories() ([]*models.Category, error)
	GetAreas() ([]*models.Area, error)
	GetDrive(id string) (*models.Drive, error)
	GetDefaultDrive() (*models.Drive, error)
}

// BuildOptions selects the storage root for one build
type BuildOptions struct {
	// DriveID forces a specific configured drive; empty selects the
	// default drive, falling back to ~/Documents/FileCabinet.
	DriveID string
}

// DestinationPath is a fully resolved target for a move
type DestinationPath struct {
	BasePath   string
	FolderPath string
	FullPath   string
	Folder     *models.Folder
}

// PathBuilder maps folder numbers onto physical directory paths.
// The layout under the base is Area/Category/Folder, each level named
// "<number> <sanitized name>".
type PathBuilder struct {
	db           TaxonomyStore
	fallbackRoot string
	log          *logrus.Entry
}

// NewPathBuilder creates a builder. fallbackRoot may be empty; it is then
// derived from the user's home directory on first use.
func NewPathBuilder(db TaxonomyStore, fallbackRoot string) *PathBuilder {
	return &PathBuilder{
		db:           db,
		fallbackRoot: fallbackRoot,
		log:          logger.WithName("pathbuilder"),
	}
}

// Build resolves the destination for filename inside the given folder.
// Both the lexical destination and its symlink-resolved form must stay
// under the base path; a violation is a hard failure.
func (b *PathBuilder) Build(folderNumber, filename string, opts BuildOptions) (*DestinationPath, error) {
	folder, err := b.db.GetFolderByNumber(folderNumber)
	if err != nil {
		return nil, apperr.Database("build_path", err)
	}
	if folder == nil {
		return nil, apperr.Validation("build_path", fmt.Sprintf("folder %s does not exist", folderNumber))
	}

	base, err := b.resolveBase(opts.DriveID, folder)
	if err != nil {
		return nil, err
	}

	segments, err := b.hierarchySegments(folder)
	if err != nil {
		return nil, err
	}

	folderPath := filepath.Join(append([]string{base}, segments...)...)
	fullPath := filepath.Join(folderPath, sanitize.Name(filename))

	if err := b.checkContainment(base, fullPath); err != nil {
		return nil, err
	}

	return &DestinationPath{
		BasePath:   base,
		FolderPath: folderPath,
		FullPath:   fullPath,
		Folder:     folder,
	}, nil
}

// resolveBase picks the storage root: explicit drive, folder override,
// default drive, then the fallback under the home directory.
func (b *PathBuilder) resolveBase(driveID string, folder *models.Folder) (string, error) {
	if driveID != "" {
		drive, err := b.db.GetDrive(driveID)
		if err != nil {
			return "", apperr.Database("resolve_drive", err)
		}
		if drive == nil {
			return "", apperr.Validation("resolve_drive", fmt.Sprintf("drive %s is not configured", driveID))
		}
		return filepath.Clean(drive.BasePath), nil
	}

	if folder.StoragePath != nil && *folder.StoragePath != "" {
		return filepath.Clean(*folder.StoragePath), nil
	}

	drive, err := b.db.GetDefaultDrive()
	if err != nil {
		return "", apperr.Database("resolve_drive", err)
	}
	if drive != nil {
		return filepath.Clean(drive.BasePath), nil
	}

	if b.fallbackRoot != "" {
		return filepath.Clean(b.fallbackRoot), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", apperr.Unavailable("resolve_drive", "no storage drive configured and home directory unknown")
	}
	return filepath.Join(home, "Documents", FallbackDirName), nil
}

// hierarchySegments derives the Area/Category/Folder directory names from
// the folder's number. Each name is sanitized independently.
func (b *PathBuilder) hierarchySegments(folder *models.Folder) ([]string, error) {
	areaStart := folder.CategoryNumber / 10 * 10
	areaEnd := areaStart + 9

	areaName := "Uncategorized"
	areas, err := b.db.GetAreas()
	if err != nil {
		return nil, apperr.Database("build_path", err)
	}
	for _, area := range areas {
		if folder.CategoryNumber >= area.RangeStart && folder.CategoryNumber <= area.RangeEnd {
			areaName = area.Name
			break
		}
	}

	categoryName := "Category"
	categories, err := b.db.GetCategories()
	if err != nil {
		return nil, apperr.Database("build_path", err)
	}
	for _, category := range categories {
		if category.Number == folder.CategoryNumber {
			categoryName = category.Name
			break
		}
	}

	return []string{
		fmt.Sprintf("%d-%d %s", areaStart, areaEnd, sanitize.Name(areaName)),
		fmt.Sprintf("%s %s", strconv.Itoa(folder.CategoryNumber), sanitize.Name(categoryName)),
		fmt.Sprintf("%s %s", folder.Number, sanitize.Name(folder.Name)),
	}, nil
}

// checkContainment enforces the path security invariant lexically and
// through symlinks. The symlink check resolves the nearest existing
// ancestor of the destination, since the leaf directories usually do not
// exist yet.
func (b *PathBuilder) checkContainment(base, fullPath string) error {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return apperr.Filesystem("build_path", "could not resolve base path", err)
	}
	absFull, err := filepath.Abs(fullPath)
	if err != nil {
		return apperr.Filesystem("build_path", "could not resolve destination path", err)
	}

	if !isWithin(absBase, absFull) {
		b.log.WithFields(logrus.Fields{
			"base":        absBase,
			"destination": absFull,
		}).Error("Destination escapes base path")
		return apperr.PathSecurity("build_path", "destination escapes the storage root")
	}

	resolvedBase, err := resolveExisting(absBase)
	if err != nil {
		return apperr.Filesystem("build_path", "could not resolve base path", err)
	}
	resolvedFull, err := resolveExisting(absFull)
	if err != nil {
		return apperr.Filesystem("build_path", "could not resolve destination path", err)
	}

	if !isWithin(resolvedBase, resolvedFull) {
		b.log.WithFields(logrus.Fields{
			"base":        resolvedBase,
			"destination": resolvedFull,
		}).Error("Destination escapes base path through a symlink")
		return apperr.PathSecurity("build_path", "destination escapes the storage root")
	}

	return nil
}

// resolveExisting evaluates symlinks on the nearest existing ancestor of
// path and rejoins the non-existing remainder.
func resolveExisting(path string) (string, error) {
	remainder := ""
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(resolved, remainder), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Join(current, remainder), nil
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}

func isWithin(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
