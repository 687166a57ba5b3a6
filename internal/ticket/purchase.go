package ticket

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"linkhub-ops/internal/store"
)

type PaymentMethod string

const (
	MethodPayPal  PaymentMethod = "paypal"
	MethodCashApp PaymentMethod = "cashapp"
	MethodVenmo   PaymentMethod = "venmo"
	MethodCrypto  PaymentMethod = "crypto"
)

var PaymentMethods = []PaymentMethod{MethodPayPal, MethodCashApp, MethodVenmo, MethodCrypto}

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(v)
	for _, m := range PaymentMethods {
		if string(m) == v {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidPurchase, raw)
}

func (m PaymentMethod) Label() string {
	switch m {
	case MethodPayPal:
		return "PayPal"
	case MethodCashApp:
		return "Cash App"
	case MethodVenmo:
		return "Venmo"
	case MethodCrypto:
		return "Crypto"
	default:
		return string(m)
	}
}

const (
	maxPaymentTagLen = 64
	maxNotesLen      = 500
)

type Actor struct {
	ID   string
	Name string
}

// PurchaseRequest is the validated form of the purchase modal.
type PurchaseRequest struct {
	Requester  Actor
	Method     PaymentMethod
	PaymentTag string
	Handle     string
	Notes      string
}

func (r PurchaseRequest) Validate() error {
	if strings.TrimSpace(r.Requester.ID) == "" {
		return fmt.Errorf("%w: requester is required", ErrInvalidPurchase)
	}
	if _, err := ParsePaymentMethod(string(r.Method)); err != nil {
		return err
	}
	tag := strings.TrimSpace(r.PaymentTag)
	if tag == "" {
		return fmt.Errorf("%w: payment tag is required", ErrInvalidPurchase)
	}
	if utf8.RuneCountInString(tag) > maxPaymentTagLen {
		return fmt.Errorf("%w: payment tag longer than %d characters", ErrInvalidPurchase, maxPaymentTagLen)
	}
	if utf8.RuneCountInString(r.Notes) > maxNotesLen {
		return fmt.Errorf("%w: notes longer than %d characters", ErrInvalidPurchase, maxNotesLen)
	}
	return nil
}

type LookupOutcome string

const (
	LookupSkipped       LookupOutcome = ""
	LookupFound         LookupOutcome = "found"
	LookupNotFound      LookupOutcome = "not_found"
	LookupFailed        LookupOutcome = "lookup_failed"
	LookupInvalidFormat LookupOutcome = "invalid_format"
)

type HandleLookup struct {
	Outcome LookupOutcome
	Raw     string
	Handle  string
	Account *store.Account
}
