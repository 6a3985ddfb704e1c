package proof

import (
	"time"

	"github.com/vreid/dareme/internal/pkg/dare"
)

const indexFile = "index.json"

type ProofFile struct {
	Name   string    `json:"name"`
	Size   int64     `json:"size"`
	SHA256 dare.Hash `json:"sha256"`
}

// ProofIndex describes one upload. ProofHash commits to every file digest
// in upload order and is what a daree passes to the proof endpoint.
type ProofIndex struct {
	UploadID  string      `json:"upload_id"`
	Timestamp time.Time   `json:"timestamp"`
	Files     []ProofFile `json:"files"`
	ProofHash dare.Hash   `json:"proof_hash"`
}

type UploadResponse struct {
	UploadID  string    `json:"upload_id"`
	ProofHash dare.Hash `json:"proof_hash"`
}
