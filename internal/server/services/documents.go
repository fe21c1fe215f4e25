package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/avigliano/scontrino/internal/common"
	"github.com/avigliano/scontrino/internal/cryptox"
	"github.com/avigliano/scontrino/internal/dbx"
	"github.com/avigliano/scontrino/internal/fiscal"
	"github.com/avigliano/scontrino/internal/logging"
	"github.com/avigliano/scontrino/internal/portal"
	"github.com/avigliano/scontrino/internal/server/models"
	"github.com/avigliano/scontrino/internal/server/repositories/repomanager"
)

// DocumentService implements the idempotent emit/void lifecycle. Each call
// drives one full portal session (login, fetches, submit, logout); it never
// retries on its own — the caller retries explicitly, and the idempotency
// key keeps a retry from reaching the authority twice.
type DocumentService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	cipher    *cryptox.Cipher
	newPortal PortalFactory
	logger    logging.Logger
}

func NewDocumentService(db *sql.DB, repos repomanager.RepositoryManager, cipher *cryptox.Cipher, newPortal PortalFactory, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:        db,
		repos:     repos,
		cipher:    cipher,
		newPortal: newPortal,
		logger:    logger.With("service", "documents"),
	}
}

// EmitLine is one sale line as supplied by the caller. Monetary values are
// decimal strings.
type EmitLine struct {
	Description string
	Quantity    int
	UnitPrice   string
	Discount    string
	VATCode     string
}

// EmitPayment is one payment entry as supplied by the caller.
type EmitPayment struct {
	Type         string
	Amount       string
	VoucherCount int
}

// EmitInput describes an emission. IdempotencyKey is caller-generated and
// globally unique; it is the sole deduplication mechanism.
type EmitInput struct {
	UserID         string
	BusinessID     string
	IdempotencyKey string
	Date           string // ISO yyyy-MM-dd; today when empty
	Lines          []EmitLine
	Payments       []EmitPayment
}

// EmitResult is the outcome of an emission or its idempotent replay.
type EmitResult struct {
	DocumentID             string
	AuthorityTransactionID string
	AuthorityProgressive   string
	Status                 models.DocumentStatus
}

// VoidInput describes a void of a previously accepted sale.
type VoidInput struct {
	UserID         string
	BusinessID     string
	SaleDocumentID string
	IdempotencyKey string
	Date           string // ISO yyyy-MM-dd; today when empty
}

// VoidResult is the outcome of a void or its idempotent replay.
type VoidResult struct {
	VoidDocumentID         string
	AuthorityTransactionID string
	AuthorityProgressive   string
	Status                 models.DocumentStatus
}

// Emit validates the request, persists a PENDING SALE document under the
// idempotency key, and drives one portal session to submit it. A replayed
// key returns the stored outcome without contacting the authority. On any
// failure the document is marked ERROR and a user-safe error is returned;
// the raw failure is only logged.
func (s *DocumentService) Emit(ctx context.Context, in EmitInput) (*EmitResult, error) {
	if in.IdempotencyKey == "" || len(in.Lines) == 0 {
		return nil, common.ErrorValidation
	}
	if err := checkOwnership(ctx, s.repos, s.db, in.UserID, in.BusinessID); err != nil {
		return nil, err
	}

	saleReq, lines, err := s.buildSaleRequest(in)
	if err != nil {
		s.logger.Warn(ctx, "emit input rejected", "error", err.Error())
		return nil, common.ErrorValidation
	}
	// map before persisting anything: invalid input must not create a document
	payload, err := fiscal.MapSale(*saleReq)
	if err != nil {
		s.logger.Warn(ctx, "emit input rejected", "error", err.Error())
		return nil, common.ErrorValidation
	}

	docs := s.repos.Documents(s.db)
	doc, created, err := docs.CreatePending(ctx, &models.Document{
		ID:             uuid.NewString(),
		BusinessID:     in.BusinessID,
		Kind:           models.KindSale,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return nil, s.internal(ctx, "creating document", err)
	}
	if !created {
		// the key is globally unique; a hit for another tenant or another
		// document kind must not leak the stored outcome
		if doc.BusinessID != in.BusinessID {
			s.logger.Warn(ctx, "idempotency key reused across businesses",
				"business_id", in.BusinessID, "key", in.IdempotencyKey)
			return nil, common.ErrorUnauthorized
		}
		if doc.Kind != models.KindSale {
			return nil, common.ErrorInconsistentState
		}
		return s.replayEmit(ctx, doc)
	}

	log := s.logger.With("document_id", doc.ID, "business_id", in.BusinessID)
	if err := docs.AddLines(ctx, doc.ID, lines); err != nil {
		return nil, s.failDocument(ctx, log, doc.ID, nil, "persisting lines", err)
	}

	requestJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, s.failDocument(ctx, log, doc.ID, nil, "encoding payload", err)
	}

	resp, err := s.submit(ctx, log, in.BusinessID, portal.KindSale, payload, nil)
	if err != nil {
		return nil, s.failDocument(ctx, log, doc.ID, requestJSON, "submitting sale", err)
	}

	responseJSON, _ := json.Marshal(resp.authority)
	if !resp.authority.Success {
		log.Warn(ctx, "sale rejected by authority", "errors", resp.authority.Errors)
		if err := docs.MarkOutcome(ctx, doc.ID, models.StatusRejected, resp.authority.TransactionID, resp.authority.ProgressiveNumber, resp.requestJSON, responseJSON); err != nil {
			return nil, s.internal(ctx, "recording rejection", err)
		}
		return &EmitResult{DocumentID: doc.ID, Status: models.StatusRejected}, common.ErrorSubmissionRejected
	}

	if err := docs.MarkOutcome(ctx, doc.ID, models.StatusAccepted, resp.authority.TransactionID, resp.authority.ProgressiveNumber, resp.requestJSON, responseJSON); err != nil {
		return nil, s.internal(ctx, "recording acceptance", err)
	}
	log.Info(ctx, "sale accepted", "transaction_id", resp.authority.TransactionID, "progressive", resp.authority.ProgressiveNumber)

	return &EmitResult{
		DocumentID:             doc.ID,
		AuthorityTransactionID: resp.authority.TransactionID,
		AuthorityProgressive:   resp.authority.ProgressiveNumber,
		Status:                 models.StatusAccepted,
	}, nil
}

// Void validates the preconditions, persists a PENDING VOID document under
// its own idempotency key, and drives one portal session: it fetches the
// authority's stored version of the original document for its line
// identifiers, submits the void, and on success flips both the VOID and the
// original SALE to VOID_ACCEPTED.
func (s *DocumentService) Void(ctx context.Context, in VoidInput) (*VoidResult, error) {
	if in.IdempotencyKey == "" || in.SaleDocumentID == "" {
		return nil, common.ErrorValidation
	}
	if err := checkOwnership(ctx, s.repos, s.db, in.UserID, in.BusinessID); err != nil {
		return nil, err
	}

	docs := s.repos.Documents(s.db)
	orig, err := docs.GetByID(ctx, in.SaleDocumentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, s.internal(ctx, "loading original document", err)
	}
	if orig.BusinessID != in.BusinessID {
		return nil, common.ErrorUnauthorized
	}
	if orig.Kind != models.KindSale {
		return nil, common.ErrorValidation
	}
	if orig.Status == models.StatusVoidAccepted {
		// already voided: answer from the stored VOID document
		void, err := docs.GetAcceptedVoidFor(ctx, orig.ID)
		if err != nil {
			return nil, s.internal(ctx, "loading stored void", err)
		}
		return voidResult(void), nil
	}
	if orig.Status != models.StatusAccepted {
		return nil, common.ErrorValidation
	}
	if orig.AuthorityTransactionID == "" || orig.AuthorityProgressive == "" {
		return nil, common.ErrorInconsistentState
	}

	voidDoc, created, err := docs.CreatePending(ctx, &models.Document{
		ID:                 uuid.NewString(),
		BusinessID:         in.BusinessID,
		Kind:               models.KindVoid,
		IdempotencyKey:     in.IdempotencyKey,
		OriginalDocumentID: orig.ID,
	})
	if err != nil {
		return nil, s.internal(ctx, "creating void document", err)
	}
	if !created {
		if voidDoc.BusinessID != in.BusinessID {
			s.logger.Warn(ctx, "idempotency key reused across businesses",
				"business_id", in.BusinessID, "key", in.IdempotencyKey)
			return nil, common.ErrorUnauthorized
		}
		if voidDoc.Kind != models.KindVoid || voidDoc.OriginalDocumentID != orig.ID {
			return nil, common.ErrorInconsistentState
		}
		if voidDoc.Status == models.StatusVoidAccepted {
			return voidResult(voidDoc), nil
		}
		// partial progress from a previous attempt; never silently re-driven
		s.logger.Warn(ctx, "void replay found non-terminal document",
			"void_document_id", voidDoc.ID, "status", string(voidDoc.Status))
		return nil, common.ErrorInconsistentState
	}

	log := s.logger.With("document_id", voidDoc.ID, "original_document_id", orig.ID)

	resp, err := s.submit(ctx, log, in.BusinessID, portal.KindVoid, nil, func(ctx context.Context, client PortalClient) (any, []byte, error) {
		detail, err := client.GetDocument(ctx, orig.AuthorityTransactionID)
		if err != nil {
			return nil, nil, err
		}
		s.persistAuthorityLineIDs(ctx, log, orig.ID, detail)

		voidReq, err := s.buildVoidRequest(in, orig, detail)
		if err != nil {
			return nil, nil, err
		}
		payload, err := fiscal.MapVoid(*voidReq)
		if err != nil {
			return nil, nil, err
		}
		requestJSON, _ := json.Marshal(payload)
		return payload, requestJSON, nil
	})
	if err != nil {
		return nil, s.failDocument(ctx, log, voidDoc.ID, nil, "submitting void", err)
	}

	requestJSON := resp.requestJSON
	responseJSON, _ := json.Marshal(resp.authority)
	if !resp.authority.Success {
		log.Warn(ctx, "void rejected by authority", "errors", resp.authority.Errors)
		if err := docs.MarkOutcome(ctx, voidDoc.ID, models.StatusRejected, resp.authority.TransactionID, resp.authority.ProgressiveNumber, requestJSON, responseJSON); err != nil {
			return nil, s.internal(ctx, "recording rejection", err)
		}
		return &VoidResult{VoidDocumentID: voidDoc.ID, Status: models.StatusRejected}, common.ErrorSubmissionRejected
	}

	// two-document transition: the VOID becomes terminal and the original
	// SALE flips. A crash between the writes is operator-reconcilable; the
	// transaction makes the common case atomic.
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txDocs := s.repos.Documents(tx)
		if err := txDocs.MarkOutcome(ctx, voidDoc.ID, models.StatusVoidAccepted, resp.authority.TransactionID, resp.authority.ProgressiveNumber, requestJSON, responseJSON); err != nil {
			return err
		}
		return txDocs.SetStatus(ctx, orig.ID, models.StatusVoidAccepted)
	})
	if err != nil {
		return nil, s.internal(ctx, "recording void acceptance", err)
	}
	log.Info(ctx, "void accepted", "transaction_id", resp.authority.TransactionID, "progressive", resp.authority.ProgressiveNumber)

	return &VoidResult{
		VoidDocumentID:         voidDoc.ID,
		AuthorityTransactionID: resp.authority.TransactionID,
		AuthorityProgressive:   resp.authority.ProgressiveNumber,
		Status:                 models.StatusVoidAccepted,
	}, nil
}

// Get returns a stored document with its lines, for display. Purely local;
// never contacts the authority.
func (s *DocumentService) Get(ctx context.Context, userID, businessID, documentID string) (*models.Document, []models.DocumentLine, error) {
	if err := checkOwnership(ctx, s.repos, s.db, userID, businessID); err != nil {
		return nil, nil, err
	}

	docs := s.repos.Documents(s.db)
	doc, err := docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, s.internal(ctx, "loading document", err)
	}
	if doc.BusinessID != businessID {
		return nil, nil, common.ErrorUnauthorized
	}

	lines, err := docs.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, nil, s.internal(ctx, "loading lines", err)
	}
	return doc, lines, nil
}

// --- helpers below ---

type submission struct {
	authority   *portal.AuthorityResponse
	requestJSON []byte
}

// preparePayload runs inside the authenticated session, after login and the
// fiscal-data fetch, and returns the payload to submit. Emit passes nil and
// supplies the payload directly; Void uses it to fetch the original
// document's authority record first.
type preparePayload func(ctx context.Context, client PortalClient) (any, []byte, error)

// submit drives one full portal session: decrypt credentials, login, fetch
// fiscal data, optionally prepare the payload, submit, logout.
func (s *DocumentService) submit(ctx context.Context, log logging.Logger, businessID string, kind portal.DocumentKind, payload any, prepare preparePayload) (*submission, error) {
	creds, err := decryptCredentials(ctx, s.repos, s.db, s.cipher, businessID)
	if err != nil {
		return nil, err
	}
	defer creds.wipe()

	client := s.newPortal()
	defer client.Logout(ctx)

	session, err := client.Login(ctx, creds.portal())
	if err != nil {
		return nil, err
	}

	identity, err := client.GetFiscalData(ctx)
	if err != nil {
		return nil, err
	}
	if identity.TaxID != session.SelectedTaxID {
		// the login phase derives a placeholder identity from the tax code;
		// the authoritative value only arrives here
		log.Warn(ctx, "derived tax identity differs from authority record",
			"derived", session.SelectedTaxID, "authoritative", identity.TaxID)
	}

	var requestJSON []byte
	if prepare != nil {
		payload, requestJSON, err = prepare(ctx, client)
		if err != nil {
			return nil, err
		}
	} else {
		requestJSON, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	resp, err := client.SubmitDocument(ctx, kind, payload)
	if err != nil {
		return nil, err
	}
	return &submission{authority: resp, requestJSON: requestJSON}, nil
}

func (s *DocumentService) buildSaleRequest(in EmitInput) (*fiscal.SaleRequest, []models.DocumentLine, error) {
	req := &fiscal.SaleRequest{Date: dateOrToday(in.Date)}
	lines := make([]models.DocumentLine, 0, len(in.Lines))

	for _, l := range in.Lines {
		unit, err := fiscal.ParseAmount(l.UnitPrice)
		if err != nil {
			return nil, nil, err
		}
		discount := fiscal.Cents(0)
		if l.Discount != "" {
			if discount, err = fiscal.ParseAmount(l.Discount); err != nil {
				return nil, nil, err
			}
		}
		req.Lines = append(req.Lines, fiscal.SaleLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitGross:   unit,
			Discount:    discount,
			VATCode:     l.VATCode,
		})
		lines = append(lines, models.DocumentLine{
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitGrossCents: int64(unit),
			DiscountCents:  int64(discount),
			VATCode:        l.VATCode,
		})
	}

	for _, p := range in.Payments {
		amount, err := fiscal.ParseAmount(p.Amount)
		if err != nil {
			return nil, nil, err
		}
		req.Payments = append(req.Payments, fiscal.Payment{
			Type:         fiscal.PaymentType(p.Type),
			Amount:       amount,
			VoucherCount: p.VoucherCount,
		})
	}
	return req, lines, nil
}

func (s *DocumentService) buildVoidRequest(in VoidInput, orig *models.Document, detail *portal.DocumentDetail) (*fiscal.VoidRequest, error) {
	req := &fiscal.VoidRequest{
		Date:              dateOrToday(in.Date),
		TransactionID:     orig.AuthorityTransactionID,
		ProgressiveNumber: orig.AuthorityProgressive,
	}
	for _, dl := range detail.Lines {
		amount, err := fiscal.ParseAmount(dl.Amount)
		if err != nil {
			return nil, err
		}
		req.Lines = append(req.Lines, fiscal.VoidLine{
			AuthorityLineID: dl.ID,
			Description:     dl.Description,
			Quantity:        dl.Quantity,
			Amount:          amount,
		})
	}
	return req, nil
}

// persistAuthorityLineIDs stores the authority's line identifiers on our
// stored lines, matched by position. Best-effort: a mismatch is logged, not
// fatal, because the void payload is built from the authority's record
// anyway.
func (s *DocumentService) persistAuthorityLineIDs(ctx context.Context, log logging.Logger, docID string, detail *portal.DocumentDetail) {
	docs := s.repos.Documents(s.db)
	stored, err := docs.GetLines(ctx, docID)
	if err != nil {
		log.Warn(ctx, "loading stored lines failed", "error", err.Error())
		return
	}
	if len(stored) != len(detail.Lines) {
		log.Warn(ctx, "authority line count differs from stored lines",
			"stored", len(stored), "authority", len(detail.Lines))
		return
	}
	for i, ln := range stored {
		if ln.AuthorityLineID != "" {
			continue
		}
		if err := docs.SetLineAuthorityID(ctx, ln.ID, detail.Lines[i].ID); err != nil {
			log.Warn(ctx, "storing authority line id failed", "error", err.Error())
		}
	}
}

// replayEmit answers a repeated idempotency key from storage, with zero
// authority calls.
func (s *DocumentService) replayEmit(ctx context.Context, doc *models.Document) (*EmitResult, error) {
	res := &EmitResult{
		DocumentID:             doc.ID,
		AuthorityTransactionID: doc.AuthorityTransactionID,
		AuthorityProgressive:   doc.AuthorityProgressive,
		Status:                 doc.Status,
	}
	switch doc.Status {
	case models.StatusAccepted:
		return res, nil
	case models.StatusRejected:
		return res, common.ErrorSubmissionRejected
	case models.StatusError:
		return res, common.ErrorSubmissionFailed
	default: // PENDING: concurrent in-flight call or a crashed attempt
		return res, common.ErrorInconsistentState
	}
}

func voidResult(doc *models.Document) *VoidResult {
	return &VoidResult{
		VoidDocumentID:         doc.ID,
		AuthorityTransactionID: doc.AuthorityTransactionID,
		AuthorityProgressive:   doc.AuthorityProgressive,
		Status:                 doc.Status,
	}
}

// failDocument marks the document ERROR, logs the raw failure, and returns
// the user-safe translation.
func (s *DocumentService) failDocument(ctx context.Context, log logging.Logger, docID string, requestJSON []byte, op string, cause error) error {
	log.Error(ctx, op+" failed", "error", cause.Error())
	if err := s.repos.Documents(s.db).MarkError(ctx, docID, requestJSON, cause.Error()); err != nil {
		log.Error(ctx, "marking document failed", "error", err.Error())
	}
	return translateLifecycleError(cause)
}

func (s *DocumentService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op+" failed", "error", err.Error())
	return common.ErrorInternal
}

// translateLifecycleError maps raw failures to the user-safe sentinel set.
func translateLifecycleError(err error) error {
	if errors.Is(err, common.ErrorCredentialsMissing) {
		return common.ErrorCredentialsMissing
	}
	var authErr *portal.AuthError
	if errors.As(err, &authErr) {
		return common.ErrorPortalAuth
	}
	return common.ErrorSubmissionFailed
}

func dateOrToday(iso string) string {
	if iso != "" {
		return iso
	}
	return time.Now().Format("2006-01-02")
}
