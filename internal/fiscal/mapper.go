package fiscal

import (
	"fmt"
	"time"
)

// SaleLine is one domestic sale line item.
type SaleLine struct {
	Description string
	Quantity    int
	UnitGross   Cents // gross (VAT-inclusive) unit price
	Discount    Cents // gross discount applied to the whole line
	VATCode     string
}

// Payment is one domestic payment entry.
type Payment struct {
	Type         PaymentType
	Amount       Cents
	VoucherCount int // meal vouchers only
}

// SaleRequest is the mapper input for an emission.
type SaleRequest struct {
	Date     string // ISO yyyy-MM-dd
	Lines    []SaleLine
	Payments []Payment
}

// VoidLine references an authority-stored line of the original document.
type VoidLine struct {
	AuthorityLineID string
	Description     string
	Quantity        int
	Amount          Cents
}

// VoidRequest is the mapper input for a void. TransactionID and
// ProgressiveNumber identify the original sale at the authority.
type VoidRequest struct {
	Date              string // ISO yyyy-MM-dd
	TransactionID     string
	ProgressiveNumber string
	Lines             []VoidLine
}

// ItemPayload is one line as the authority accepts it. All monetary fields
// are fixed 2-decimal strings.
type ItemPayload struct {
	Description   string `json:"description"`
	Quantity      int    `json:"quantity"`
	UnitPrice     string `json:"unitPrice"`
	Discount      string `json:"discount"`
	VATRate       string `json:"vatRate,omitempty"`
	Nature        string `json:"nature,omitempty"`
	GrossAmount   string `json:"grossAmount"`
	TaxableAmount string `json:"taxableAmount"`
	VATAmount     string `json:"vatAmount"`
}

// PaymentSlot is one entry of the positional payment vector.
type PaymentSlot struct {
	Code         PaymentType `json:"code"`
	Amount       string      `json:"amount"`
	VoucherCount int         `json:"voucherCount"`
}

// SalePayload is the document submission body for a sale.
type SalePayload struct {
	Date             string        `json:"date"` // dd/MM/yyyy
	Items            []ItemPayload `json:"items"`
	Payments         []PaymentSlot `json:"payments"` // always exactly 6
	Subtotal         string        `json:"subtotal"`
	VATTotal         string        `json:"vatTotal"`
	DiscountTotal    string        `json:"discountTotal"`
	UncollectedTotal string        `json:"uncollectedTotal"`
	Total            string        `json:"total"`
}

// ReturnItem references one original line by its authority-assigned id.
type ReturnItem struct {
	LineID      string `json:"lineId"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Amount      string `json:"amount"`
}

// ReturnBlock carries the void reference to the original document.
type ReturnBlock struct {
	OriginalProgressive string       `json:"originalProgressiveNumber"`
	Items               []ReturnItem `json:"items"`
}

// VoidPayload is the document submission body for a void. It carries a
// return block instead of items and never contains a payment vector.
type VoidPayload struct {
	TransactionID string      `json:"transactionId"`
	Date          string      `json:"date"` // dd/MM/yyyy
	Return        ReturnBlock `json:"return"`
}

// MapSale converts a domestic sale request into the authority payload.
//
// Per line: gross total = unit gross × quantity; the discounted gross is the
// amount the tax math runs on. For numeric VAT codes the taxable amount is
// gross / (1 + rate/100) rounded half-up, and the VAT amount is derived as
// the remainder rather than from the rate, so the two figures always sum
// back to the gross. Nature-coded lines carry zero VAT and treat gross as
// net verbatim. Document totals are sums of the per-line fields, never
// recomputed independently.
func MapSale(req SaleRequest) (*SalePayload, error) {
	date, err := mapDate(req.Date)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("sale has no lines")
	}

	var subtotal, vatTotal, discountTotal Cents
	items := make([]ItemPayload, 0, len(req.Lines))
	for i, ln := range req.Lines {
		if ln.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if ln.UnitGross < 0 || ln.Discount < 0 {
			return nil, fmt.Errorf("line %d: negative amount", i+1)
		}
		if !ValidCode(ln.VATCode) {
			return nil, fmt.Errorf("line %d: unknown VAT/nature code %q", i+1, ln.VATCode)
		}

		gross := ln.UnitGross * Cents(ln.Quantity)
		if ln.Discount > gross {
			return nil, fmt.Errorf("line %d: discount exceeds line total", i+1)
		}
		grossAfter := gross - ln.Discount

		item := ItemPayload{
			Description: ln.Description,
			Quantity:    ln.Quantity,
			UnitPrice:   ln.UnitGross.String(),
			Discount:    ln.Discount.String(),
			GrossAmount: grossAfter.String(),
		}

		var taxable, vat Cents
		if IsNature(ln.VATCode) {
			taxable, vat = grossAfter, 0
			item.Nature = ln.VATCode
		} else {
			rate, _ := RateFor(ln.VATCode)
			taxable = netFromGross(grossAfter, rate)
			vat = grossAfter - taxable
			item.VATRate = ln.VATCode
		}
		item.TaxableAmount = taxable.String()
		item.VATAmount = vat.String()
		items = append(items, item)

		subtotal += grossAfter
		vatTotal += vat
		discountTotal += ln.Discount
	}

	payments, uncollectedTotal, err := mapPayments(req.Payments)
	if err != nil {
		return nil, err
	}

	return &SalePayload{
		Date:             date,
		Items:            items,
		Payments:         payments,
		Subtotal:         subtotal.String(),
		VATTotal:         vatTotal.String(),
		DiscountTotal:    discountTotal.String(),
		UncollectedTotal: uncollectedTotal.String(),
		Total:            subtotal.String(),
	}, nil
}

// mapPayments folds the supplied payments into the fixed 6-slot positional
// vector. Every slot is always present, zero-defaulted.
func mapPayments(payments []Payment) ([]PaymentSlot, Cents, error) {
	amounts := make(map[PaymentType]Cents, len(paymentSlotOrder))
	counts := make(map[PaymentType]int)
	for i, p := range payments {
		if !ValidPaymentType(p.Type) {
			return nil, 0, fmt.Errorf("payment %d: unknown type %q", i+1, p.Type)
		}
		if p.Amount < 0 {
			return nil, 0, fmt.Errorf("payment %d: negative amount", i+1)
		}
		amounts[p.Type] += p.Amount
		if p.Type == PaymentMealVoucher {
			counts[p.Type] += p.VoucherCount
		}
	}

	var uncollectedTotal Cents
	slots := make([]PaymentSlot, 0, len(paymentSlotOrder))
	for _, t := range paymentSlotOrder {
		slots = append(slots, PaymentSlot{
			Code:         t,
			Amount:       amounts[t].String(),
			VoucherCount: counts[t],
		})
		if uncollected(t) {
			uncollectedTotal += amounts[t]
		}
	}
	return slots, uncollectedTotal, nil
}

// MapVoid converts a void request into the authority payload. The original
// transaction id travels at the top level and the return block references
// the original progressive number and the authority's own line identifiers.
func MapVoid(req VoidRequest) (*VoidPayload, error) {
	date, err := mapDate(req.Date)
	if err != nil {
		return nil, err
	}
	if req.TransactionID == "" {
		return nil, fmt.Errorf("void is missing the original transaction id")
	}
	if req.ProgressiveNumber == "" {
		return nil, fmt.Errorf("void is missing the original progressive number")
	}
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("void has no lines")
	}

	items := make([]ReturnItem, 0, len(req.Lines))
	for i, ln := range req.Lines {
		if ln.AuthorityLineID == "" {
			return nil, fmt.Errorf("void line %d: missing authority line id", i+1)
		}
		items = append(items, ReturnItem{
			LineID:      ln.AuthorityLineID,
			Description: ln.Description,
			Quantity:    ln.Quantity,
			Amount:      ln.Amount.String(),
		})
	}

	return &VoidPayload{
		TransactionID: req.TransactionID,
		Date:          date,
		Return: ReturnBlock{
			OriginalProgressive: req.ProgressiveNumber,
			Items:               items,
		},
	}, nil
}

// mapDate reformats an ISO yyyy-MM-dd date into the authority's dd/MM/yyyy.
func mapDate(iso string) (string, error) {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected yyyy-MM-dd", iso)
	}
	return t.Format("02/01/2006"), nil
}
