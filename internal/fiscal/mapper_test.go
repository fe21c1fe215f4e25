package fiscal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleFixture() SaleRequest {
	return SaleRequest{
		Date: "2026-03-15",
		Lines: []SaleLine{
			{Description: "caffè", Quantity: 2, UnitGross: 850, VATCode: "10"},
		},
		Payments: []Payment{
			{Type: PaymentCash, Amount: 1700},
		},
	}
}

func TestMapSale_LineMath(t *testing.T) {
	p, err := MapSale(saleFixture())
	require.NoError(t, err)
	require.Len(t, p.Items, 1)

	it := p.Items[0]
	assert.Equal(t, "8.50", it.UnitPrice)
	assert.Equal(t, "17.00", it.GrossAmount)
	// 17.00 / 1.10 = 15.4545 -> 15.45 half-up; VAT is the remainder
	assert.Equal(t, "15.45", it.TaxableAmount)
	assert.Equal(t, "1.55", it.VATAmount)
	assert.Equal(t, "10", it.VATRate)
	assert.Empty(t, it.Nature)

	assert.Equal(t, "17.00", p.Subtotal)
	assert.Equal(t, "1.55", p.VATTotal)
	assert.Equal(t, "0.00", p.DiscountTotal)
	assert.Equal(t, "17.00", p.Total)
	assert.Equal(t, "15/03/2026", p.Date)
}

func TestMapSale_DiscountAppliedBeforeTax(t *testing.T) {
	req := saleFixture()
	req.Lines[0].Discount = 200 // 2.00 off the 17.00 line
	p, err := MapSale(req)
	require.NoError(t, err)

	it := p.Items[0]
	assert.Equal(t, "15.00", it.GrossAmount)
	// 15.00 / 1.10 = 13.636 -> 13.64; VAT = 15.00 - 13.64
	assert.Equal(t, "13.64", it.TaxableAmount)
	assert.Equal(t, "1.36", it.VATAmount)
	assert.Equal(t, "2.00", p.DiscountTotal)
	assert.Equal(t, "15.00", p.Subtotal)
}

func TestMapSale_VATPlusTaxableEqualsGross(t *testing.T) {
	// the invariant must hold for every line regardless of rate or amount
	for _, code := range []string{"4", "5", "10", "22"} {
		for unit := Cents(1); unit < 1000; unit += 13 {
			req := SaleRequest{
				Date:  "2026-01-02",
				Lines: []SaleLine{{Description: "x", Quantity: 3, UnitGross: unit, VATCode: code}},
			}
			p, err := MapSale(req)
			require.NoError(t, err)
			gross, _ := ParseAmount(p.Items[0].GrossAmount)
			taxable, _ := ParseAmount(p.Items[0].TaxableAmount)
			vat, _ := ParseAmount(p.Items[0].VATAmount)
			require.Equal(t, gross, taxable+vat, "code=%s unit=%d", code, unit)
		}
	}
}

func TestMapSale_NatureLineCarriesZeroVAT(t *testing.T) {
	req := SaleRequest{
		Date:  "2026-03-15",
		Lines: []SaleLine{{Description: "esente", Quantity: 1, UnitGross: 1000, VATCode: "N4"}},
	}
	p, err := MapSale(req)
	require.NoError(t, err)

	it := p.Items[0]
	assert.Equal(t, "N4", it.Nature)
	assert.Empty(t, it.VATRate)
	assert.Equal(t, "10.00", it.TaxableAmount) // gross treated as net verbatim
	assert.Equal(t, "0.00", it.VATAmount)
	assert.Equal(t, "0.00", p.VATTotal)
}

func TestMapSale_PaymentVectorAlwaysSixSlots(t *testing.T) {
	cases := [][]Payment{
		nil,
		{{Type: PaymentCash, Amount: 100}},
		{
			{Type: PaymentCash, Amount: 100},
			{Type: PaymentElectronic, Amount: 200},
			{Type: PaymentMealVoucher, Amount: 300, VoucherCount: 2},
			{Type: PaymentNotCollectedGoods, Amount: 50},
			{Type: PaymentNotCollectedServices, Amount: 60},
			{Type: PaymentNotCollectedInvoice, Amount: 70},
		},
	}
	for _, payments := range cases {
		req := saleFixture()
		req.Payments = payments
		p, err := MapSale(req)
		require.NoError(t, err)
		require.Len(t, p.Payments, 6)
		// fixed slot order
		assert.Equal(t, PaymentCash, p.Payments[0].Code)
		assert.Equal(t, PaymentElectronic, p.Payments[1].Code)
		assert.Equal(t, PaymentMealVoucher, p.Payments[2].Code)
		assert.Equal(t, PaymentNotCollectedGoods, p.Payments[3].Code)
		assert.Equal(t, PaymentNotCollectedServices, p.Payments[4].Code)
		assert.Equal(t, PaymentNotCollectedInvoice, p.Payments[5].Code)
	}
}

func TestMapSale_PaymentAggregationAndUncollected(t *testing.T) {
	req := saleFixture()
	req.Payments = []Payment{
		{Type: PaymentCash, Amount: 500},
		{Type: PaymentCash, Amount: 300},
		{Type: PaymentMealVoucher, Amount: 400, VoucherCount: 1},
		{Type: PaymentMealVoucher, Amount: 400, VoucherCount: 1},
		{Type: PaymentNotCollectedServices, Amount: 100},
	}
	p, err := MapSale(req)
	require.NoError(t, err)

	assert.Equal(t, "8.00", p.Payments[0].Amount)
	assert.Equal(t, "8.00", p.Payments[2].Amount)
	assert.Equal(t, 2, p.Payments[2].VoucherCount)
	assert.Equal(t, "1.00", p.Payments[4].Amount)
	assert.Equal(t, "1.00", p.UncollectedTotal)
}

func TestMapSale_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mut    func(*SaleRequest)
	}{
		{"no lines", func(r *SaleRequest) { r.Lines = nil }},
		{"bad date", func(r *SaleRequest) { r.Date = "15/03/2026" }},
		{"zero quantity", func(r *SaleRequest) { r.Lines[0].Quantity = 0 }},
		{"unknown code", func(r *SaleRequest) { r.Lines[0].VATCode = "21" }},
		{"negative price", func(r *SaleRequest) { r.Lines[0].UnitGross = -1 }},
		{"discount exceeds line", func(r *SaleRequest) { r.Lines[0].Discount = 9999 }},
		{"unknown payment type", func(r *SaleRequest) { r.Payments[0].Type = "CHEQUE" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := saleFixture()
			tt.mut(&req)
			_, err := MapSale(req)
			assert.Error(t, err)
		})
	}
}

func TestMapVoid(t *testing.T) {
	p, err := MapVoid(VoidRequest{
		Date:              "2026-03-16",
		TransactionID:     "tx-9",
		ProgressiveNumber: "0042-0001",
		Lines: []VoidLine{
			{AuthorityLineID: "L1", Description: "caffè", Quantity: 2, Amount: 1700},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-9", p.TransactionID)
	assert.Equal(t, "16/03/2026", p.Date)
	assert.Equal(t, "0042-0001", p.Return.OriginalProgressive)
	require.Len(t, p.Return.Items, 1)
	assert.Equal(t, "L1", p.Return.Items[0].LineID)
	assert.Equal(t, "17.00", p.Return.Items[0].Amount)
}

func TestMapVoid_NeverContainsPayments(t *testing.T) {
	p, err := MapVoid(VoidRequest{
		Date:              "2026-03-16",
		TransactionID:     "tx-9",
		ProgressiveNumber: "0042-0001",
		Lines:             []VoidLine{{AuthorityLineID: "L1", Quantity: 1, Amount: 100}},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	_, hasPayments := m["payments"]
	assert.False(t, hasPayments, "void payload must not contain a payment vector")
	_, hasReturn := m["return"]
	assert.True(t, hasReturn)
}

func TestMapVoid_Validation(t *testing.T) {
	base := VoidRequest{
		Date:              "2026-03-16",
		TransactionID:     "tx-9",
		ProgressiveNumber: "0042-0001",
		Lines:             []VoidLine{{AuthorityLineID: "L1", Quantity: 1, Amount: 100}},
	}

	r := base
	r.TransactionID = ""
	_, err := MapVoid(r)
	assert.Error(t, err)

	r = base
	r.ProgressiveNumber = ""
	_, err = MapVoid(r)
	assert.Error(t, err)

	r = base
	r.Lines = []VoidLine{{AuthorityLineID: "", Quantity: 1, Amount: 100}}
	_, err = MapVoid(r)
	assert.Error(t, err)

	r = base
	r.Lines = nil
	_, err = MapVoid(r)
	assert.Error(t, err)
}
