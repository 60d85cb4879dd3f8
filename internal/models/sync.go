package models

import "time"

// Sync directions.
const (
	SyncDirectionExport = "export"
	SyncDirectionImport = "import"
)

// SyncState is the coordinator's per-direction memory: when the
// direction last synced and, for imports, the workbook version token
// seen at that time.
type SyncState struct {
	LastSync time.Time `json:"last_sync"`
	Token    string    `json:"token"`
}

// SyncResult reports the outcome of one sync attempt.
type SyncResult struct {
	Success bool   `json:"success"`
	Cached  bool   `json:"cached"`
	Message string `json:"message"`
}

// SyncStatus describes coordinator state for both directions.
type SyncStatus struct {
	Configured    bool       `json:"configured"`
	LastExport    *time.Time `json:"last_export,omitempty"`
	LastImport    *time.Time `json:"last_import,omitempty"`
	WorkbookToken string     `json:"workbook_token,omitempty"`
	ExpirySeconds int        `json:"expiry_seconds"`
}
