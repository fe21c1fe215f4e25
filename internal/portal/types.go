package portal

import "time"

// Credentials are the three secrets the portal's login form expects.
// There is no separate username; the tax code doubles as the login.
type Credentials struct {
	TaxCode  string
	Password string
	PIN      string
}

// Session is the ephemeral outcome of a successful login. It lives in
// memory only, owned by exactly one Client, and is destroyed on Logout or
// replaced by re-authentication.
type Session struct {
	Token         string
	SelectedTaxID string
	CreatedAt     time.Time
}

// DocumentKind selects the submission endpoint.
type DocumentKind string

const (
	KindSale DocumentKind = "SALE"
	KindVoid DocumentKind = "VOID"
)

// AuthorityResponse is the authority's answer to a document submission.
type AuthorityResponse struct {
	Success           bool     `json:"success"`
	TransactionID     string   `json:"transactionId"`
	ProgressiveNumber string   `json:"progressiveNumber"`
	Errors            []string `json:"errors"`
}

// FiscalIdentity is the authority-held identity record of the business the
// session acts as.
type FiscalIdentity struct {
	TaxID        string `json:"taxId"`
	TaxCode      string `json:"taxCode"`
	BusinessName string `json:"businessName"`
}

// DocumentDetail is the authority's own record of a previously submitted
// document. Its line identifiers are required when building a void payload.
type DocumentDetail struct {
	TransactionID     string       `json:"transactionId"`
	ProgressiveNumber string       `json:"progressiveNumber"`
	Date              string       `json:"date"`
	Lines             []DetailLine `json:"lines"`
}

// DetailLine is a line item as the authority stores it, including the
// authority-assigned line id.
type DetailLine struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Amount      string `json:"amount"`
}
