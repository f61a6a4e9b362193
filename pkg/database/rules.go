package database

import (
	"database/sql"
	"fmt"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/sirupsen/logrus"
)

// Rule Operations

// ValidateRule checks a rule before it is written. A rule must carry a
// non-empty pattern; regex validity is checked lazily by the matching
// engine (a malformed regex degrades to never-matching, it is not
// rejected here so imports of historical rule sets cannot fail).
func ValidateRule(rule *models.Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if rule.Pattern == "" {
		return fmt.Errorf("rule pattern is required")
	}
	if rule.TargetID == "" {
		return fmt.Errorf("rule target is required")
	}
	switch rule.RuleType {
	case models.RuleTypeExtension, models.RuleTypeKeyword, models.RuleTypePath,
		models.RuleTypeRegex, models.RuleTypeCompound, models.RuleTypeDate:
	default:
		return fmt.Errorf("unknown rule type: %s", rule.RuleType)
	}
	switch rule.TargetType {
	case models.TargetTypeFolder, models.TargetTypeCategory, models.TargetTypeArea:
	default:
		return fmt.Errorf("unknown target type: %s", rule.TargetType)
	}
	return nil
}

// CreateRule creates a new rule in the database
func (d *CabinetDB) CreateRule(rule *models.Rule) (int64, error) {
	if err := ValidateRule(rule); err != nil {
		return 0, err
	}

	log.WithFields(logrus.Fields{
		"name":     rule.Name,
		"type":     rule.RuleType,
		"priority": rule.Priority,
	}).Info("Creating rule")

	active := 0
	if rule.IsActive {
		active = 1
	}

	result, err := d.db.Exec(`
		INSERT INTO rules (name, rule_type, pattern, target_type, target_id, priority, exclude_pattern, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.Name, rule.RuleType, rule.Pattern, rule.TargetType, rule.TargetID,
		rule.Priority, rule.ExcludePattern, active)

	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetRule retrieves a rule by id. Returns nil when not found.
func (d *CabinetDB) GetRule(id int64) (*models.Rule, error) {
	row := d.db.QueryRow(`
		SELECT id, name, rule_type, pattern, target_type, target_id, priority,
		       exclude_pattern, is_active, match_count, created_at, updated_at
		FROM rules WHERE id = ?
	`, id)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return rule, nil
}

// GetActiveRules retrieves active rules ordered by priority (highest
// first); ties keep insertion order via the id tiebreak.
func (d *CabinetDB) GetActiveRules() ([]*models.Rule, error) {
	return d.listRules(true)
}

// ListRules retrieves all rules ordered by priority
func (d *CabinetDB) ListRules() ([]*models.Rule, error) {
	return d.listRules(false)
}

func (d *CabinetDB) listRules(activeOnly bool) ([]*models.Rule, error) {
	query := `
		SELECT id, name, rule_type, pattern, target_type, target_id, priority,
		       exclude_pattern, is_active, match_count, created_at, updated_at
		FROM rules
	`
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY priority DESC, id ASC"

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

func scanRule(row rowScanner) (*models.Rule, error) {
	var rule models.Rule
	var excludePattern sql.NullString
	var active int

	if err := row.Scan(
		&rule.ID, &rule.Name, &rule.RuleType, &rule.Pattern, &rule.TargetType,
		&rule.TargetID, &rule.Priority, &excludePattern, &active,
		&rule.MatchCount, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if excludePattern.Valid {
		rule.ExcludePattern = &excludePattern.String
	}
	rule.IsActive = active == 1

	return &rule, nil
}

// UpdateRule updates an existing rule by id
func (d *CabinetDB) UpdateRule(rule *models.Rule) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}

	log.WithField("id", rule.ID).Info("Updating rule")

	active := 0
	if rule.IsActive {
		active = 1
	}

	_, err := d.db.Exec(`
		UPDATE rules
		SET name = ?, rule_type = ?, pattern = ?, target_type = ?, target_id = ?,
		    priority = ?, exclude_pattern = ?, is_active = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, rule.Name, rule.RuleType, rule.Pattern, rule.TargetType, rule.TargetID,
		rule.Priority, rule.ExcludePattern, active, rule.ID)

	return err
}

// IncrementRuleMatchCount bumps the confirmed-use counter for a rule
func (d *CabinetDB) IncrementRuleMatchCount(id int64) error {
	_, err := d.db.Exec(`
		UPDATE rules SET match_count = match_count + 1 WHERE id = ?
	`, id)
	return err
}

// DeleteRule deletes a rule by id
func (d *CabinetDB) DeleteRule(id int64) error {
	log.WithField("id", id).Info("Deleting rule")
	_, err := d.db.Exec(`DELETE FROM rules WHERE id = ?`, id)
	return err
}
