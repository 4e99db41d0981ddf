package models

import "time"

// FileRecord holds the metadata of an admitted transaction file.
// Raw bytes are never persisted; they live in the upload coordinator
// only until a remote session id has been obtained.
type FileRecord struct {
	Name       string    `json:"name" msgpack:"name"`
	SizeBytes  int64     `json:"sizeBytes" msgpack:"sizeBytes"`
	MimeHint   string    `json:"mimeHint,omitempty" msgpack:"mimeHint"`
	AdmittedAt time.Time `json:"admittedAt" msgpack:"admittedAt"`
}

// RejectedFile describes a file dropped at admission time.
type RejectedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}
