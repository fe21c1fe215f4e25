package models

import "time"

// Credential holds one business's portal credentials, encrypted at rest.
// One row per business. VerifiedAt is cleared on every save and set again
// only after a successful portal login probe. Decrypted values exist only
// transiently in memory and are never logged.
type Credential struct {
	BusinessID  string
	TaxCodeEnc  string
	PasswordEnc string
	PINEnc      string
	KeyVersion  int
	VerifiedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
