package models

// FileType categorizes a file by its extension
type FileType string

const (
	FileTypeDocument     FileType = "document"
	FileTypeSpreadsheet  FileType = "spreadsheet"
	FileTypePresentation FileType = "presentation"
	FileTypeImage        FileType = "image"
	FileTypeVideo        FileType = "video"
	FileTypeAudio        FileType = "audio"
	FileTypeArchive      FileType = "archive"
	FileTypeCode         FileType = "code"
	FileTypeData         FileType = "data"
	FileTypeFont         FileType = "font"
	FileTypeEbook        FileType = "ebook"
	FileTypeDesign       FileType = "design"
	FileTypeOther        FileType = "other"
)

// FileRecord represents one file discovered by a scan.
// Records are immutable once created and live for the duration of
// their scan session; a new scan with the same session id replaces them.
type FileRecord struct {
	ID            int64    `db:"id" json:"id,omitempty"`
	Filename      string   `db:"filename" json:"filename"`
	Path          string   `db:"path" json:"path"`           // absolute
	Extension     string   `db:"extension" json:"extension"` // lowercase, no dot
	FileType      FileType `db:"file_type" json:"file_type"`
	SizeBytes     int64    `db:"size_bytes" json:"size_bytes"`
	ScanSessionID string   `db:"scan_session_id" json:"scan_session_id"`
}

// RuleType identifies how a rule's pattern is interpreted
type RuleType string

const (
	RuleTypeExtension RuleType = "extension"
	RuleTypeKeyword   RuleType = "keyword"
	RuleTypePath      RuleType = "path"
	RuleTypeRegex     RuleType = "regex"
	RuleTypeCompound  RuleType = "compound"
	RuleTypeDate      RuleType = "date"
)

// TargetType identifies what a rule points at in the folder taxonomy
type TargetType string

const (
	TargetTypeFolder   TargetType = "folder"
	TargetTypeCategory TargetType = "category"
	TargetTypeArea     TargetType = "area"
)

// Rule is a persisted matching directive. The pattern string's semantics
// depend on RuleType; the matching engine parses it once per cache refresh.
type Rule struct {
	ID             int64      `db:"id" json:"id,omitempty"`
	Name           string     `db:"name" json:"name"`
	RuleType       RuleType   `db:"rule_type" json:"rule_type"`
	Pattern        string     `db:"pattern" json:"pattern"`
	TargetType     TargetType `db:"target_type" json:"target_type"`
	TargetID       string     `db:"target_id" json:"target_id"`
	Priority       int        `db:"priority" json:"priority"` // higher wins
	ExcludePattern *string    `db:"exclude_pattern" json:"exclude_pattern,omitempty"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	MatchCount     int        `db:"match_count" json:"match_count"`
	CreatedAt      int64      `db:"created_at" json:"created_at"`
	UpdatedAt      int64      `db:"updated_at" json:"updated_at"`
}

// Confidence expresses how certain a suggestion is
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Rank orders confidences for sorting (higher is better)
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Suggestion is a ranked destination proposal for a file.
// SourceRule is nil when the suggestion came from the heuristic fallback.
// Suggestions are never persisted; the caller decides what to act on.
type Suggestion struct {
	TargetFolder *Folder    `json:"target_folder"`
	SourceRule   *Rule      `json:"source_rule,omitempty"`
	Confidence   Confidence `json:"confidence"`
	Reason       string     `json:"reason"`
}

// Area is the top level of the taxonomy: a range of two-digit category
// numbers, e.g. 10-19 Finance.
type Area struct {
	ID         int64  `db:"id" json:"id,omitempty"`
	Name       string `db:"name" json:"name"`
	RangeStart int    `db:"range_start" json:"range_start"`
	RangeEnd   int    `db:"range_end" json:"range_end"`
}

// Category is a two-digit numbered bucket within an area
type Category struct {
	ID     int64  `db:"id" json:"id,omitempty"`
	Number int    `db:"number" json:"number"` // two digits, within exactly one area's range
	Name   string `db:"name" json:"name"`
}

// Folder is a dotted CC.NN destination within a category.
// The leading two digits of Number always equal the category number.
type Folder struct {
	ID             int64   `db:"id" json:"id,omitempty"`
	Number         string  `db:"number" json:"number"` // "12.03"
	Name           string  `db:"name" json:"name"`
	CategoryNumber int     `db:"category_number" json:"category_number"`
	Keywords       *string `db:"keywords" json:"keywords,omitempty"` // comma-separated
	StoragePath    *string `db:"storage_path" json:"storage_path,omitempty"`
}

// Drive is a configured storage root for organized files
type Drive struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	BasePath  string `db:"base_path" json:"base_path"`
	IsDefault bool   `db:"is_default" json:"is_default"`
}

// OrganizedStatus tracks the lifecycle of a performed move
type OrganizedStatus string

const (
	OrganizedStatusMoved  OrganizedStatus = "moved"
	OrganizedStatusUndone OrganizedStatus = "undone"
)

// OrganizedFileRecord is the durable log of a performed move.
// Records are never hard-deleted; rollback flips Status to undone.
type OrganizedFileRecord struct {
	ID                 int64           `db:"id" json:"id,omitempty"`
	Filename           string          `db:"filename" json:"filename"`
	OriginalPath       string          `db:"original_path" json:"original_path"`
	CurrentPath        string          `db:"current_path" json:"current_path"`
	TargetFolderNumber string          `db:"target_folder_number" json:"target_folder_number"`
	Extension          string          `db:"extension" json:"extension"`
	FileType           FileType        `db:"file_type" json:"file_type"`
	SizeBytes          int64           `db:"size_bytes" json:"size_bytes"`
	Status             OrganizedStatus `db:"status" json:"status"`
	Timestamp          int64           `db:"timestamp" json:"timestamp"`
}

// RenameBatch groups the entries of one batch-rename run under an undo id
type RenameBatch struct {
	ID        string `db:"id" json:"id"`
	Directory string `db:"directory" json:"directory"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// RenameEntry records a single rename inside a batch, enough to reverse it
type RenameEntry struct {
	ID           int64  `db:"id" json:"id,omitempty"`
	BatchID      string `db:"batch_id" json:"batch_id"`
	OriginalPath string `db:"original_path" json:"original_path"`
	RenamedPath  string `db:"renamed_path" json:"renamed_path"`
	OriginalName string `db:"original_name" json:"original_name"`
	NewName      string `db:"new_name" json:"new_name"`
}
