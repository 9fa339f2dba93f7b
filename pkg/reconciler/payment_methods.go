package reconciler

import (
	"strings"

	"github.com/avoqado/possync/pkg/models"
)

// debitBrandMarkers are card-brand fragments that indicate a debit instrument
// when the catalog category does not say which kind of card it is.
var debitBrandMarkers = []string{"debit", "debito", "débito", "maestro", "electron"}

// MapPaymentMethod resolves a terminal-local payment-method id into a
// canonical method using the catalog the terminal sent along with the event.
// When the catalog category only says "card", the free-text description is
// inspected for debit brand markers; cards default to credit otherwise.
// Unknown method ids map to OTHER.
func MapPaymentMethod(methodID string, catalog []models.PaymentMethodEntry) models.PaymentMethod {
	var entry *models.PaymentMethodEntry
	for i := range catalog {
		if catalog[i].MethodID == methodID {
			entry = &catalog[i]
			break
		}
	}
	if entry == nil {
		return models.PaymentMethodOther
	}

	category := strings.ToLower(strings.TrimSpace(entry.Category))
	switch category {
	case "cash", "efectivo":
		return models.PaymentMethodCash
	case "credit", "credito", "crédito":
		return models.PaymentMethodCredit
	case "debit", "debito", "débito":
		return models.PaymentMethodDebit
	case "card", "tarjeta":
		if isDebitDescription(entry.Description) {
			return models.PaymentMethodDebit
		}
		return models.PaymentMethodCredit
	default:
		return models.PaymentMethodOther
	}
}

func isDebitDescription(description string) bool {
	d := strings.ToLower(description)
	for _, marker := range debitBrandMarkers {
		if strings.Contains(d, marker) {
			return true
		}
	}
	return false
}
