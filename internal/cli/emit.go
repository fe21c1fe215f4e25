package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/avigliano/scontrino/internal/server/services"
)

// emitFile is the on-disk JSON shape of a receipt. Monetary values are
// decimal strings with at most two fraction digits.
type emitFile struct {
	Date  string `json:"date"`
	Lines []struct {
		Description string `json:"description"`
		Quantity    int    `json:"quantity"`
		UnitPrice   string `json:"unit_price"`
		Discount    string `json:"discount"`
		VATCode     string `json:"vat_code"`
	} `json:"lines"`
	Payments []struct {
		Type         string `json:"type"`
		Amount       string `json:"amount"`
		VoucherCount int    `json:"voucher_count"`
	} `json:"payments"`
}

func readEmitFile(path string) (*services.EmitInput, error) {
	if path == "" {
		return nil, fmt.Errorf("missing -file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading receipt file: %w", err)
	}

	var f emitFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing receipt file: %w", err)
	}

	in := &services.EmitInput{Date: f.Date}
	for _, l := range f.Lines {
		in.Lines = append(in.Lines, services.EmitLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Discount:    l.Discount,
			VATCode:     l.VATCode,
		})
	}
	for _, p := range f.Payments {
		in.Payments = append(in.Payments, services.EmitPayment{
			Type:         p.Type,
			Amount:       p.Amount,
			VoucherCount: p.VoucherCount,
		})
	}
	return in, nil
}
