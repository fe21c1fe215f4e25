package fiscal

// The VAT/nature code set is closed: a document line carries either a
// numeric VAT rate code or a nature (exemption) code, never anything else.

// vatRates maps numeric VAT rate codes to their whole-percent rate.
var vatRates = map[string]int{
	"4":  4,
	"5":  5,
	"10": 10,
	"22": 22,
}

// natureCodes are the no-VAT exemption classifications. Lines tagged with a
// nature carry zero VAT and treat the gross price as net verbatim.
var natureCodes = map[string]struct{}{
	"N1": {}, // excluded (art. 15)
	"N2": {}, // not subject
	"N3": {}, // non-taxable
	"N4": {}, // exempt
	"N5": {}, // margin scheme
	"N6": {}, // reverse charge
}

// IsNature reports whether code is a nature (no-VAT) code.
func IsNature(code string) bool {
	_, ok := natureCodes[code]
	return ok
}

// RateFor returns the whole-percent rate for a numeric VAT code.
func RateFor(code string) (int, bool) {
	r, ok := vatRates[code]
	return r, ok
}

// ValidCode reports whether code belongs to the closed VAT/nature set.
func ValidCode(code string) bool {
	if _, ok := vatRates[code]; ok {
		return true
	}
	return IsNature(code)
}

// PaymentType enumerates the domestic payment methods a sale can carry.
type PaymentType string

const (
	PaymentCash                 PaymentType = "CASH"
	PaymentElectronic           PaymentType = "ELECTRONIC"
	PaymentMealVoucher          PaymentType = "MEAL_VOUCHER"
	PaymentNotCollectedGoods    PaymentType = "NOT_COLLECTED_GOODS"
	PaymentNotCollectedServices PaymentType = "NOT_COLLECTED_SERVICES"
	PaymentNotCollectedInvoice  PaymentType = "NOT_COLLECTED_INVOICE"
)

// paymentSlotOrder is the authority's fixed 6-slot positional payment
// vector. All six slots are always emitted, zero-defaulted; the schema is
// positional, not sparse.
var paymentSlotOrder = []PaymentType{
	PaymentCash,
	PaymentElectronic,
	PaymentMealVoucher,
	PaymentNotCollectedGoods,
	PaymentNotCollectedServices,
	PaymentNotCollectedInvoice,
}

// uncollected reports whether t is one of the three "not collected"
// categories.
func uncollected(t PaymentType) bool {
	switch t {
	case PaymentNotCollectedGoods, PaymentNotCollectedServices, PaymentNotCollectedInvoice:
		return true
	}
	return false
}

// ValidPaymentType reports whether t is a known payment type.
func ValidPaymentType(t PaymentType) bool {
	for _, s := range paymentSlotOrder {
		if s == t {
			return true
		}
	}
	return false
}
