package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/avigliano/scontrino/internal/common"
	"github.com/avigliano/scontrino/internal/fiscal"
	"github.com/avigliano/scontrino/internal/flagx"
	"github.com/avigliano/scontrino/internal/server/services"
)

func newFlagSet(name string, rest []string, allowed []string) (*flag.FlagSet, []string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return fs, flagx.FilterArgs(rest, allowed)
}

func (a *App) addBusiness(ctx context.Context, rest []string) error {
	fs, args := newFlagSet("add-business", rest, []string{"-user", "-name"})
	user := fs.String("user", "", "owner user id")
	name := fs.String("name", "", "business name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b, err := a.businessService.Register(ctx, *user, *name)
	if err != nil {
		return err
	}
	fmt.Printf("business registered: %s\n", b.ID)
	return nil
}

func (a *App) saveCredentials(ctx context.Context, rest []string) error {
	fs, args := newFlagSet("save-credentials", rest, []string{"-user", "-business", "-taxcode"})
	user := fs.String("user", "", "owner user id")
	business := fs.String("business", "", "business id")
	taxCode := fs.String("taxcode", "", "portal tax code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := GetSecret(os.Stdout, "Portal password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pin, err := GetSecret(os.Stdout, "Portal PIN")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pin)

	if err := a.credentialService.Save(ctx, *user, *business, *taxCode, string(password), string(pin)); err != nil {
		return err
	}
	fmt.Println("credentials saved")
	return nil
}

func (a *App) verifyCredentials(ctx context.Context, rest []string) error {
	fs, args := newFlagSet("verify", rest, []string{"-user", "-business"})
	user := fs.String("user", "", "owner user id")
	business := fs.String("business", "", "business id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.credentialService.Verify(ctx, *user, *business); err != nil {
		return err
	}
	fmt.Println("credentials verified")
	return nil
}

func (a *App) rotateCredentials(ctx context.Context, rest []string) error {
	fs, args := newFlagSet("rotate", rest, []string{"-user", "-business"})
	user := fs.String("user", "", "owner user id")
	business := fs.String("business", "", "business id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.credentialService.Rotate(ctx, *user, *business); err != nil {
		return err
	}
	fmt.Println("credentials rotated")
	return nil
}

// ensureKey returns the caller-supplied idempotency key, or generates and
// prints one. Retrying a failed submission needs the printed key: a fresh
// invocation without it gets a fresh key and a fresh document.
func ensureKey(key string) (string, error) {
	if key != "" {
		return key, nil
	}
	generated, err := common.MakeRandHexString(16)
	if err != nil {
		return "", fmt.Errorf("generating idempotency key: %w", err)
	}
	fmt.Printf("idempotency key: %s\n", generated)
	return generated, nil
}

func (a *App) emit(ctx context.Context, rest []string) error {
	fs, args := newFlagSet("emit", rest, []string{"-user", "-business", "-key", "-file"})
	user := fs.String("user", "", "owner user id")
	business := fs.String("business", "", "business id")
	key := fs.String("key", "", "idempotency key (generated when omitted)")
	file := fs.String("file", "", "receipt JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, err := readEmitFile(*file)
	if err != nil {
		return err
	}
	in.UserID = *user
	in.BusinessID = *business
	if in.IdempotencyKey, err = ensureKey(*key); err != nil {
		return err
	}

	res, err := a.documentService.Emit(ctx, *in)
	if res != nil {
		fmt.Printf("document %s: %s", res.DocumentID, res.Status)
		if res.AuthorityTransactionID != "" {
			fmt.Printf(" (transaction %s, progressive %s)", res.AuthorityTransactionID, res.AuthorityProgressive)
		}
		fmt.Println()
	}
	return err
}

func (a *App) void(ctx context.Context, rest []string) error {
	fs, args := newFlagSet("void", rest, []string{"-user", "-business", "-sale", "-key", "-date"})
	user := fs.String("user", "", "owner user id")
	business := fs.String("business", "", "business id")
	sale := fs.String("sale", "", "sale document id")
	key := fs.String("key", "", "idempotency key (generated when omitted)")
	date := fs.String("date", "", "void date (yyyy-MM-dd, default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	idemKey, err := ensureKey(*key)
	if err != nil {
		return err
	}

	res, err := a.documentService.Void(ctx, services.VoidInput{
		UserID:         *user,
		BusinessID:     *business,
		SaleDocumentID: *sale,
		IdempotencyKey: idemKey,
		Date:           *date,
	})
	if res != nil {
		fmt.Printf("void %s: %s", res.VoidDocumentID, res.Status)
		if res.AuthorityTransactionID != "" {
			fmt.Printf(" (transaction %s, progressive %s)", res.AuthorityTransactionID, res.AuthorityProgressive)
		}
		fmt.Println()
	}
	return err
}

func (a *App) show(ctx context.Context, rest []string) error {
	fs, args := newFlagSet("show", rest, []string{"-user", "-business", "-id"})
	user := fs.String("user", "", "owner user id")
	business := fs.String("business", "", "business id")
	id := fs.String("id", "", "document id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, lines, err := a.documentService.Get(ctx, *user, *business, *id)
	if err != nil {
		return err
	}

	fmt.Printf("document %s\n", doc.ID)
	fmt.Printf("  kind:        %s\n", doc.Kind)
	fmt.Printf("  status:      %s\n", doc.Status)
	fmt.Printf("  key:         %s\n", doc.IdempotencyKey)
	if doc.AuthorityTransactionID != "" {
		fmt.Printf("  transaction: %s\n", doc.AuthorityTransactionID)
		fmt.Printf("  progressive: %s\n", doc.AuthorityProgressive)
	}
	if doc.OriginalDocumentID != "" {
		fmt.Printf("  voids:       %s\n", doc.OriginalDocumentID)
	}
	for _, l := range lines {
		fmt.Printf("  line %d: %s x%d unit=%s vat=%s\n",
			l.Position, l.Description, l.Quantity,
			fiscal.Cents(l.UnitGrossCents).String(), l.VATCode)
	}
	return nil
}
