package types

import "time"

// Snapshot is a saved copy of a conversation and its file set.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SavedAt     time.Time `json:"savedAt"`
	Files       []File    `json:"files"`
	Messages    []Message `json:"messages"`
}

// SnapshotInfo is the listing form of a Snapshot.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SavedAt     time.Time `json:"savedAt"`
	FileCount   int       `json:"fileCount"`
}

// Info returns the listing form of the snapshot.
func (s Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		SavedAt:     s.SavedAt,
		FileCount:   len(s.Files),
	}
}
