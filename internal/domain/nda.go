package domain

import "time"

// NDASetting is the per-subject gate configuration. SubjectID identifies
// the protected thing (an innovation or an invitation); OwnerID is the
// only subject allowed to change the flag.
type NDASetting struct {
	SubjectID   string    `json:"subject_id"`
	OwnerID     string    `json:"owner_id"`
	NDARequired bool      `json:"nda_required"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NDARecord is one accepted agreement scoped to (subject, viewer).
// Its existence is the whole gate check; there is no partial state.
type NDARecord struct {
	NDARecordID string    `json:"nda_record_id"`
	SubjectID   string    `json:"subject_id"`
	ViewerID    string    `json:"viewer_id"`
	DocumentURL string    `json:"document_url,omitempty"`
	AcceptedAt  time.Time `json:"accepted_at"`
}

// ParkedIntent is the original action held aside while the viewer completes
// the agreement step. Accepting the NDA resumes it; declining drops it.
type ParkedIntent struct {
	SubjectID string    `json:"subject_id"`
	ViewerID  string    `json:"viewer_id"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id,omitempty"`
	ParkedAt  time.Time `json:"parked_at"`
}
