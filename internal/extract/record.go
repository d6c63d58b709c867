package extract

import (
	"fmt"
	"os"
	"time"
)

// Record is the structured result of running an extractor against one
// source file. At least one of Title, Tags, Content must be present for a
// record to be indexable.
type Record struct {
	// SourcePath is the slash-separated path relative to the collection root.
	SourcePath string `yaml:"source_path" json:"source_path"`

	Title   string   `yaml:"title,omitempty" json:"title,omitempty"`
	Tags    []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Content string   `yaml:"content,omitempty" json:"content,omitempty"`

	// Custom preserves extractor-supplied top-level keys beyond the typed
	// fields, verbatim and opaque.
	Custom map[string]any `yaml:"custom,omitempty" json:"custom,omitempty"`

	// ExtractedAt is when the extractor ran.
	ExtractedAt time.Time `yaml:"extracted_at" json:"extracted_at"`

	// Fingerprint is the change-detection signature of the source file at
	// extraction time.
	Fingerprint string `yaml:"fingerprint" json:"fingerprint"`
}

// Indexable reports whether the record carries any searchable field.
func (r *Record) Indexable() bool {
	return r.Title != "" || len(r.Tags) > 0 || r.Content != ""
}

// Fingerprint builds the change-detection signature for a source file:
// modification time (ns) plus size. Cheap but vulnerable to a content
// change that restores mtime and size; accepted tradeoff over hashing
// every file on every run.
func Fingerprint(info os.FileInfo) string {
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size())
}
