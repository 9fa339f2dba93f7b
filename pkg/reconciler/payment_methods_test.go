package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avoqado/possync/pkg/models"
)

func TestMapPaymentMethod(t *testing.T) {
	catalog := []models.PaymentMethodEntry{
		{MethodID: "1", Category: "cash", Description: "Efectivo"},
		{MethodID: "2", Category: "credit", Description: "Visa Credito"},
		{MethodID: "3", Category: "debit", Description: "Tarjeta"},
		{MethodID: "4", Category: "card", Description: "Maestro"},
		{MethodID: "5", Category: "card", Description: "Visa"},
		{MethodID: "6", Category: "tarjeta", Description: "VISA ELECTRON"},
		{MethodID: "7", Category: "Efectivo", Description: ""},
		{MethodID: "8", Category: "voucher", Description: "Sodexo"},
		{MethodID: "9", Category: " CARD ", Description: "debito"},
	}

	tests := []struct {
		name     string
		methodID string
		want     models.PaymentMethod
	}{
		{"cash category", "1", models.PaymentMethodCash},
		{"credit category", "2", models.PaymentMethodCredit},
		{"debit category wins over description", "3", models.PaymentMethodDebit},
		{"card with debit brand marker", "4", models.PaymentMethodDebit},
		{"card without marker defaults to credit", "5", models.PaymentMethodCredit},
		{"spanish card with electron marker", "6", models.PaymentMethodDebit},
		{"spanish cash category", "7", models.PaymentMethodCash},
		{"unmapped category", "8", models.PaymentMethodOther},
		{"category is trimmed and lowercased", "9", models.PaymentMethodDebit},
		{"method id missing from catalog", "99", models.PaymentMethodOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapPaymentMethod(tt.methodID, catalog))
		})
	}
}

func TestMapPaymentMethodEmptyCatalog(t *testing.T) {
	assert.Equal(t, models.PaymentMethodOther, MapPaymentMethod("1", nil))
}
