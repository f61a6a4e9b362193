package database

import (
	"database/sql"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Scanned File Operations

// AddScannedFile persists one file record discovered during a scan
func (d *CabinetDB) AddScannedFile(rec *models.FileRecord) (int64, error) {
	if logger.IsLevelEnabled(logrus.TraceLevel) {
		log.WithFields(logrus.Fields{
			"path":    rec.Path,
			"session": rec.ScanSessionID,
		}).Trace("Persisting scanned file")
	}

	result, err := d.db.Exec(`
		INSERT INTO scanned_files (filename, path, extension, file_type, size_bytes, scan_session_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Filename, rec.Path, rec.Extension, rec.FileType, rec.SizeBytes, rec.ScanSessionID)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetScannedFiles retrieves all file records from one scan session
func (d *CabinetDB) GetScannedFiles(sessionID string) ([]*models.FileRecord, error) {
	rows, err := d.db.Query(`
		SELECT id, filename, path, extension, file_type, size_bytes, scan_session_id
		FROM scanned_files WHERE scan_session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.FileRecord
	for rows.Next() {
		var rec models.FileRecord
		if err := rows.Scan(
			&rec.ID, &rec.Filename, &rec.Path, &rec.Extension,
			&rec.FileType, &rec.SizeBytes, &rec.ScanSessionID,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// ClearScannedFiles drops the records of one scan session
func (d *CabinetDB) ClearScannedFiles(sessionID string) error {
	log.WithField("session", sessionID).Debug("Clearing scanned files")
	_, err := d.db.Exec(`DELETE FROM scanned_files WHERE scan_session_id = ?`, sessionID)
	return err
}

// Organized File Operations

// RecordOrganizedFile appends a performed move to the audit log
func (d *CabinetDB) RecordOrganizedFile(rec *models.OrganizedFileRecord) (int64, error) {
	log.WithFields(logrus.Fields{
		"filename": rec.Filename,
		"folder":   rec.TargetFolderNumber,
	}).Debug("Recording organized file")

	result, err := d.db.Exec(`
		INSERT INTO organized_files
			(filename, original_path, current_path, target_folder_number, extension, file_type, size_bytes, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Filename, rec.OriginalPath, rec.CurrentPath, rec.TargetFolderNumber,
		rec.Extension, rec.FileType, rec.SizeBytes, models.OrganizedStatusMoved)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetOrganizedFile retrieves one audit record by id. Returns nil when
// not found.
func (d *CabinetDB) GetOrganizedFile(id int64) (*models.OrganizedFileRecord, error) {
	var rec models.OrganizedFileRecord

	err := d.db.QueryRow(`
		SELECT id, filename, original_path, current_path, target_folder_number,
		       extension, file_type, size_bytes, status, timestamp
		FROM organized_files WHERE id = ?
	`, id).Scan(
		&rec.ID, &rec.Filename, &rec.OriginalPath, &rec.CurrentPath,
		&rec.TargetFolderNumber, &rec.Extension, &rec.FileType,
		&rec.SizeBytes, &rec.Status, &rec.Timestamp,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// UpdateOrganizedFileStatus flips the status of an audit record.
// Records are never hard-deleted.
func (d *CabinetDB) UpdateOrganizedFileStatus(id int64, status models.OrganizedStatus) error {
	log.WithFields(logrus.Fields{
		"id":     id,
		"status": status,
	}).Debug("Updating organized file status")

	_, err := d.db.Exec(`
		UPDATE organized_files SET status = ? WHERE id = ?
	`, status, id)
	return err
}

// ListOrganizedFiles retrieves audit records, newest first
func (d *CabinetDB) ListOrganizedFiles(limit int) ([]*models.OrganizedFileRecord, error) {
	query := `
		SELECT id, filename, original_path, current_path, target_folder_number,
		       extension, file_type, size_bytes, status, timestamp
		FROM organized_files ORDER BY timestamp DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.OrganizedFileRecord
	for rows.Next() {
		var rec models.OrganizedFileRecord
		if err := rows.Scan(
			&rec.ID, &rec.Filename, &rec.OriginalPath, &rec.CurrentPath,
			&rec.TargetFolderNumber, &rec.Extension, &rec.FileType,
			&rec.SizeBytes, &rec.Status, &rec.Timestamp,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}
