package models

import "time"

type DocumentKind string

const (
	KindSale DocumentKind = "SALE"
	KindVoid DocumentKind = "VOID"
)

type DocumentStatus string

const (
	StatusPending      DocumentStatus = "PENDING"
	StatusAccepted     DocumentStatus = "ACCEPTED"
	StatusVoidAccepted DocumentStatus = "VOID_ACCEPTED"
	StatusRejected     DocumentStatus = "REJECTED"
	StatusError        DocumentStatus = "ERROR"
)

// Document is one legally-binding submission to the authority: a sale
// receipt or a void. Created PENDING; the status moves exactly once to a
// terminal value, except that a SALE later flips to VOID_ACCEPTED when its
// void succeeds. The idempotency key is globally unique and is the sole
// deduplication mechanism. Raw authority payloads are kept for audit/replay.
type Document struct {
	ID                     string
	BusinessID             string
	Kind                   DocumentKind
	IdempotencyKey         string
	Status                 DocumentStatus
	RequestPayload         []byte
	ResponsePayload        []byte
	AuthorityTransactionID string
	AuthorityProgressive   string
	// OriginalDocumentID links a VOID to the SALE it voids. Empty for sales.
	OriginalDocumentID string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DocumentLine is one ordered line item of a document. AuthorityLineID is
// the authority's own identifier for the line, persisted once known because
// void payloads must reference it.
type DocumentLine struct {
	ID              int64
	DocumentID      string
	Position        int
	Description     string
	Quantity        int
	UnitGrossCents  int64
	DiscountCents   int64
	VATCode         string
	AuthorityLineID string
}
