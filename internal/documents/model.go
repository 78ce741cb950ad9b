package documents

import "time"

// Document represents an uploaded file whose text has been extracted for analysis.
type Document struct {
	ID               string
	FileName         string
	MimeType         string
	SizeBytes        int64
	StorageKey       string
	ExtractedTextKey string
	WordCount        int
	CreatedAt        time.Time
}
