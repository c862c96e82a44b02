package types

import "time"

// ChangeKind classifies a detected file change
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// FileChangeInfo is the uniform record every change detector produces,
// so merging detector outputs is a dedup-by-path reduction regardless
// of which detector reported the change.
type FileChangeInfo struct {
	Path       string
	Kind       ChangeKind
	Hash       string // empty for deletions
	DetectedAt time.Time
}

// MetadataVersion tracks the persisted index metadata format
const MetadataVersion = "1.0.0"

// IndexMetadata is the durable record of what the index currently
// reflects. It is replaced wholesale on every save, never merged.
type IndexMetadata struct {
	Version       string            `json:"version"`
	LastIndexedAt time.Time         `json:"lastIndexedAt"`
	FileHashes    map[string]string `json:"fileHashes"`
	ProjectPath   string            `json:"projectPath"`
}

// NewIndexMetadata creates empty metadata for a project root
func NewIndexMetadata(projectPath string) *IndexMetadata {
	return &IndexMetadata{
		Version:       MetadataVersion,
		LastIndexedAt: time.Now(),
		FileHashes:    make(map[string]string),
		ProjectPath:   projectPath,
	}
}
