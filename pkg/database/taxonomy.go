package database

import (
	"database/sql"
	"fmt"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/sirupsen/logrus"
)

// Taxonomy Operations

// CreateArea creates a new area
func (d *CabinetDB) CreateArea(area *models.Area) (int64, error) {
	log.WithFields(logrus.Fields{
		"name":  area.Name,
		"start": area.RangeStart,
		"end":   area.RangeEnd,
	}).Info("Creating area")

	result, err := d.db.Exec(`
		INSERT INTO areas (name, range_start, range_end)
		VALUES (?, ?, ?)
	`, area.Name, area.RangeStart, area.RangeEnd)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetAreas retrieves all areas ordered by range start
func (d *CabinetDB) GetAreas() ([]*models.Area, error) {
	rows, err := d.db.Query(`SELECT id, name, range_start, range_end FROM areas ORDER BY range_start ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []*models.Area
	for rows.Next() {
		var area models.Area
		if err := rows.Scan(&area.ID, &area.Name, &area.RangeStart, &area.RangeEnd); err != nil {
			return nil, err
		}
		areas = append(areas, &area)
	}

	return areas, rows.Err()
}

// CreateCategory creates a new category
func (d *CabinetDB) CreateCategory(category *models.Category) (int64, error) {
	log.WithFields(logrus.Fields{
		"number": category.Number,
		"name":   category.Name,
	}).Info("Creating category")

	result, err := d.db.Exec(`
		INSERT INTO categories (number, name)
		VALUES (?, ?)
	`, category.Number, category.Name)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetCategories retrieves all categories ordered by number
func (d *CabinetDB) GetCategories() ([]*models.Category, error) {
	rows, err := d.db.Query(`SELECT id, number, name FROM categories ORDER BY number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Number, &category.Name); err != nil {
			return nil, err
		}
		categories = append(categories, &category)
	}

	return categories, rows.Err()
}

// DeleteCategory deletes a category by number. Deletion is refused while
// child folders exist.
func (d *CabinetDB) DeleteCategory(number int) error {
	var childCount int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM folders WHERE category_number = ?`, number).Scan(&childCount); err != nil {
		return err
	}
	if childCount > 0 {
		return fmt.Errorf("category %d has %d folders; delete them first", number, childCount)
	}

	log.WithField("number", number).Info("Deleting category")
	_, err := d.db.Exec(`DELETE FROM categories WHERE number = ?`, number)
	return err
}

// CreateFolder creates a new folder
func (d *CabinetDB) CreateFolder(folder *models.Folder) (int64, error) {
	log.WithFields(logrus.Fields{
		"number": folder.Number,
		"name":   folder.Name,
	}).Info("Creating folder")

	result, err := d.db.Exec(`
		INSERT INTO folders (number, name, category_number, keywords, storage_path)
		VALUES (?, ?, ?, ?, ?)
	`, folder.Number, folder.Name, folder.CategoryNumber, folder.Keywords, folder.StoragePath)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetFolders retrieves all folders ordered by number
func (d *CabinetDB) GetFolders() ([]*models.Folder, error) {
	rows, err := d.db.Query(`
		SELECT id, number, name, category_number, keywords, storage_path
		FROM folders ORDER BY number ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}

	return folders, rows.Err()
}

// GetFolderByNumber retrieves a folder by its dotted number ("12.03").
// Returns nil when no such folder exists.
func (d *CabinetDB) GetFolderByNumber(number string) (*models.Folder, error) {
	row := d.db.QueryRow(`
		SELECT id, number, name, category_number, keywords, storage_path
		FROM folders WHERE number = ?
	`, number)

	folder, err := scanFolder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return folder, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFolder(row rowScanner) (*models.Folder, error) {
	var folder models.Folder
	var keywords, storagePath sql.NullString

	if err := row.Scan(
		&folder.ID, &folder.Number, &folder.Name, &folder.CategoryNumber,
		&keywords, &storagePath,
	); err != nil {
		return nil, err
	}

	if keywords.Valid {
		folder.Keywords = &keywords.String
	}
	if storagePath.Valid {
		folder.StoragePath = &storagePath.String
	}

	return &folder, nil
}

// Drive Operations

// CreateDrive creates a new storage drive. Marking a drive default clears
// the flag from any previous default.
func (d *CabinetDB) CreateDrive(drive *models.Drive) error {
	log.WithFields(logrus.Fields{
		"id":       drive.ID,
		"basePath": drive.BasePath,
	}).Info("Creating drive")

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if drive.IsDefault {
		if _, err := tx.Exec(`UPDATE drives SET is_default = 0`); err != nil {
			return err
		}
	}

	isDefault := 0
	if drive.IsDefault {
		isDefault = 1
	}

	if _, err := tx.Exec(`
		INSERT INTO drives (id, name, base_path, is_default)
		VALUES (?, ?, ?, ?)
	`, drive.ID, drive.Name, drive.BasePath, isDefault); err != nil {
		return err
	}

	return tx.Commit()
}

// GetDrive retrieves a drive by id. Returns nil when not found.
func (d *CabinetDB) GetDrive(id string) (*models.Drive, error) {
	var drive models.Drive
	var isDefault int

	err := d.db.QueryRow(`
		SELECT id, name, base_path, is_default FROM drives WHERE id = ?
	`, id).Scan(&drive.ID, &drive.Name, &drive.BasePath, &isDefault)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	drive.IsDefault = isDefault == 1
	return &drive, nil
}

// GetDefaultDrive retrieves the default drive. Returns nil when none is set.
func (d *CabinetDB) GetDefaultDrive() (*models.Drive, error) {
	var drive models.Drive
	var isDefault int

	err := d.db.QueryRow(`
		SELECT id, name, base_path, is_default FROM drives WHERE is_default = 1
	`).Scan(&drive.ID, &drive.Name, &drive.BasePath, &isDefault)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	drive.IsDefault = true
	return &drive, nil
}
