// Package services contains the business use cases of the submission
// subsystem: the idempotent document lifecycle (emit/void) and portal
// credential management. Raw portal and database failures are logged with
// context here and translated to the user-safe sentinels in common before
// being returned.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avigliano/scontrino/internal/common"
	"github.com/avigliano/scontrino/internal/cryptox"
	"github.com/avigliano/scontrino/internal/logging"
	"github.com/avigliano/scontrino/internal/portal"
	"github.com/avigliano/scontrino/internal/server/models"
	"github.com/avigliano/scontrino/internal/server/repositories/repomanager"
)

// CredentialService stores, verifies, and decrypts a business's portal
// credentials. Decrypted values are transient and never logged.
type CredentialService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	cipher    *cryptox.Cipher
	newPortal PortalFactory
	logger    logging.Logger
}

func NewCredentialService(db *sql.DB, repos repomanager.RepositoryManager, cipher *cryptox.Cipher, newPortal PortalFactory, logger logging.Logger) *CredentialService {
	return &CredentialService{
		db:        db,
		repos:     repos,
		cipher:    cipher,
		newPortal: newPortal,
		logger:    logger.With("service", "credentials"),
	}
}

// Save encrypts and stores the portal credentials for a business the caller
// owns. Saving always clears the verified-at timestamp; a later Verify sets
// it again.
func (s *CredentialService) Save(ctx context.Context, userID, businessID, taxCode, password, pin string) error {
	if taxCode == "" || password == "" || pin == "" {
		return common.ErrorValidation
	}
	if err := s.checkOwnership(ctx, userID, businessID); err != nil {
		return err
	}

	taxCodeEnc, err := s.cipher.EncryptString(taxCode)
	if err != nil {
		return s.internal(ctx, "encrypting tax code", err)
	}
	passwordEnc, err := s.cipher.EncryptString(password)
	if err != nil {
		return s.internal(ctx, "encrypting password", err)
	}
	pinEnc, err := s.cipher.EncryptString(pin)
	if err != nil {
		return s.internal(ctx, "encrypting pin", err)
	}

	cred := &models.Credential{
		BusinessID:  businessID,
		TaxCodeEnc:  taxCodeEnc,
		PasswordEnc: passwordEnc,
		PINEnc:      pinEnc,
		KeyVersion:  int(s.cipher.ActiveVersion()),
	}
	if err := s.repos.Credentials(s.db).Upsert(ctx, cred); err != nil {
		return s.internal(ctx, "storing credentials", err)
	}
	s.logger.Info(ctx, "portal credentials saved", "business_id", businessID)
	return nil
}

// Verify performs a login/logout probe against the portal with the stored
// credentials and records the successful check.
func (s *CredentialService) Verify(ctx context.Context, userID, businessID string) error {
	if err := s.checkOwnership(ctx, userID, businessID); err != nil {
		return err
	}

	creds, err := s.decrypt(ctx, businessID)
	if err != nil {
		return err
	}
	defer creds.wipe()

	client := s.newPortal()
	if _, err := client.Login(ctx, creds.portal()); err != nil {
		client.Logout(ctx)
		return s.translatePortal(ctx, "credential verification", err)
	}
	client.Logout(ctx)

	if err := s.repos.Credentials(s.db).MarkVerified(ctx, businessID, time.Now()); err != nil {
		return s.internal(ctx, "marking credentials verified", err)
	}
	s.logger.Info(ctx, "portal credentials verified", "business_id", businessID)
	return nil
}

// Rotate re-encrypts the stored credentials under the cipher's active key.
// A no-op when every envelope already carries the active version. Old key
// versions must still be in the keyring or decryption fails.
func (s *CredentialService) Rotate(ctx context.Context, userID, businessID string) error {
	if err := s.checkOwnership(ctx, userID, businessID); err != nil {
		return err
	}

	cred, err := s.repos.Credentials(s.db).GetByBusiness(ctx, businessID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorCredentialsMissing
		}
		return s.internal(ctx, "loading credentials", err)
	}

	active := s.cipher.ActiveVersion()
	stale := false
	for _, enc := range []string{cred.TaxCodeEnc, cred.PasswordEnc, cred.PINEnc} {
		ver, err := cryptox.Version(enc)
		if err != nil {
			return s.internal(ctx, "inspecting envelope", err)
		}
		if ver != active {
			stale = true
		}
	}
	if !stale {
		s.logger.Info(ctx, "credentials already on active key", "business_id", businessID)
		return nil
	}

	plain, err := s.decrypt(ctx, businessID)
	if err != nil {
		return err
	}
	defer plain.wipe()

	taxCodeEnc, err := s.cipher.Encrypt(plain.taxCode)
	if err != nil {
		return s.internal(ctx, "re-encrypting tax code", err)
	}
	passwordEnc, err := s.cipher.Encrypt(plain.password)
	if err != nil {
		return s.internal(ctx, "re-encrypting password", err)
	}
	pinEnc, err := s.cipher.Encrypt(plain.pin)
	if err != nil {
		return s.internal(ctx, "re-encrypting pin", err)
	}

	cred.TaxCodeEnc = taxCodeEnc
	cred.PasswordEnc = passwordEnc
	cred.PINEnc = pinEnc
	cred.KeyVersion = int(active)
	if err := s.repos.Credentials(s.db).Rekey(ctx, cred); err != nil {
		return s.internal(ctx, "storing rotated credentials", err)
	}
	s.logger.Info(ctx, "credentials rotated", "business_id", businessID, "key_version", int(active))
	return nil
}

func (s *CredentialService) checkOwnership(ctx context.Context, userID, businessID string) error {
	return checkOwnership(ctx, s.repos, s.db, userID, businessID)
}

func (s *CredentialService) decrypt(ctx context.Context, businessID string) (*plainCredentials, error) {
	return decryptCredentials(ctx, s.repos, s.db, s.cipher, businessID)
}

func (s *CredentialService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op+" failed", "error", err.Error())
	return common.ErrorInternal
}

func (s *CredentialService) translatePortal(ctx context.Context, op string, err error) error {
	return translatePortalError(ctx, s.logger, op, err)
}

// plainCredentials hold decrypted portal secrets for the duration of one
// use case call.
type plainCredentials struct {
	taxCode  []byte
	password []byte
	pin      []byte
}

func (p *plainCredentials) portal() portal.Credentials {
	return portal.Credentials{
		TaxCode:  string(p.taxCode),
		Password: string(p.password),
		PIN:      string(p.pin),
	}
}

func (p *plainCredentials) wipe() {
	common.WipeByteArray(p.taxCode)
	common.WipeByteArray(p.password)
	common.WipeByteArray(p.pin)
}

func decryptCredentials(ctx context.Context, repos repomanager.RepositoryManager, db *sql.DB, cipher *cryptox.Cipher, businessID string) (*plainCredentials, error) {
	cred, err := repos.Credentials(db).GetByBusiness(ctx, businessID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorCredentialsMissing
		}
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	taxCode, err := cipher.Decrypt(cred.TaxCodeEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypting tax code: %w", err)
	}
	password, err := cipher.Decrypt(cred.PasswordEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypting password: %w", err)
	}
	pin, err := cipher.Decrypt(cred.PINEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypting pin: %w", err)
	}

	return &plainCredentials{taxCode: taxCode, password: password, pin: pin}, nil
}

func checkOwnership(ctx context.Context, repos repomanager.RepositoryManager, db *sql.DB, userID, businessID string) error {
	business, err := repos.Businesses(db).GetByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	if business.OwnerUserID != userID {
		return common.ErrorUnauthorized
	}
	return nil
}

// translatePortalError logs the raw portal failure and returns a user-safe
// sentinel. AuthError maps to ErrorPortalAuth; everything else (expiry,
// portal status, transport) to ErrorSubmissionFailed.
func translatePortalError(ctx context.Context, logger logging.Logger, op string, err error) error {
	logger.Error(ctx, op+" failed", "error", err.Error())

	var authErr *portal.AuthError
	if errors.As(err, &authErr) {
		return common.ErrorPortalAuth
	}
	return common.ErrorSubmissionFailed
}
