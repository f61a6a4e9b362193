package database

import (
	"database/sql"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/sirupsen/logrus"
)

// maxRenameBatches caps the undo log; the oldest batch is evicted when a
// new one pushes the count past the cap.
const maxRenameBatches = 10

// Rename Undo Log Operations

// RecordRenameBatch stores one batch-rename run and its entries, evicting
// the oldest batches past the retention cap.
func (d *CabinetDB) RecordRenameBatch(batch *models.RenameBatch, entries []*models.RenameEntry) error {
	log.WithFields(logrus.Fields{
		"batch":   batch.ID,
		"entries": len(entries),
	}).Debug("Recording rename batch")

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO rename_batches (id, directory) VALUES (?, ?)
	`, batch.ID, batch.Directory); err != nil {
		return err
	}

	for _, entry := range entries {
		if _, err := tx.Exec(`
			INSERT INTO rename_entries (batch_id, original_path, renamed_path, original_name, new_name)
			VALUES (?, ?, ?, ?, ?)
		`, batch.ID, entry.OriginalPath, entry.RenamedPath, entry.OriginalName, entry.NewName); err != nil {
			return err
		}
	}

	// Evict oldest batches beyond the cap (cascade removes their entries)
	if _, err := tx.Exec(`
		DELETE FROM rename_batches WHERE id NOT IN (
			SELECT id FROM rename_batches ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`, maxRenameBatches); err != nil {
		return err
	}

	return tx.Commit()
}

// GetRenameBatch retrieves one batch and its entries. Returns nil when
// the batch does not exist (evicted or unknown).
func (d *CabinetDB) GetRenameBatch(id string) (*models.RenameBatch, []*models.RenameEntry, error) {
	var batch models.RenameBatch

	err := d.db.QueryRow(`
		SELECT id, directory, created_at FROM rename_batches WHERE id = ?
	`, id).Scan(&batch.ID, &batch.Directory, &batch.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := d.db.Query(`
		SELECT id, batch_id, original_path, renamed_path, original_name, new_name
		FROM rename_entries WHERE batch_id = ? ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var entries []*models.RenameEntry
	for rows.Next() {
		var entry models.RenameEntry
		if err := rows.Scan(
			&entry.ID, &entry.BatchID, &entry.OriginalPath,
			&entry.RenamedPath, &entry.OriginalName, &entry.NewName,
		); err != nil {
			return nil, nil, err
		}
		entries = append(entries, &entry)
	}

	return &batch, entries, rows.Err()
}

// ListRenameBatches retrieves retained batches, newest first
func (d *CabinetDB) ListRenameBatches() ([]*models.RenameBatch, error) {
	rows, err := d.db.Query(`
		SELECT id, directory, created_at FROM rename_batches
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*models.RenameBatch
	for rows.Next() {
		var batch models.RenameBatch
		if err := rows.Scan(&batch.ID, &batch.Directory, &batch.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, &batch)
	}

	return batches, rows.Err()
}

// DeleteRenameBatch removes one batch from the undo log
func (d *CabinetDB) DeleteRenameBatch(id string) error {
	_, err := d.db.Exec(`DELETE FROM rename_batches WHERE id = ?`, id)
	return err
}
