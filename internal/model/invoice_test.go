package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/finvoice-processor/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code       string
		kind       model.MoveKind
		originCode string
	}{
		{"INV01", model.MoveKindInvoice, "Original"},
		{"INV03", model.MoveKindInvoice, "Original"},
		{"INV04", model.MoveKindInvoice, "Original"},
		{"INV05", model.MoveKindInvoice, "Original"},
		{"INV08", model.MoveKindInvoice, "Original"},
		{"INV02", model.MoveKindRefund, "Cancel"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			info, err := model.Classify(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.code, info.Code)
			assert.Equal(t, tt.kind, info.Kind)
			assert.Equal(t, tt.originCode, info.OriginCode)
			assert.NotEmpty(t, info.Label)
		})
	}
}

func TestClassify_Unsupported(t *testing.T) {
	for _, code := range []string{"QUO01", "ORD01", "TES01", "INV06", ""} {
		_, err := model.Classify(code)
		require.Error(t, err, code)

		var typeErr *model.UnsupportedTypeCodeError
		require.ErrorAs(t, err, &typeErr)
		assert.Equal(t, code, typeErr.Code)
	}
}

func TestTypeCodeFor(t *testing.T) {
	inv := model.TypeCodeFor(model.MoveKindInvoice)
	assert.Equal(t, "INV01", inv.Code)
	assert.Equal(t, "Original", inv.OriginCode)

	refund := model.TypeCodeFor(model.MoveKindRefund)
	assert.Equal(t, "INV02", refund.Code)
	assert.Equal(t, "Cancel", refund.OriginCode)
}

func TestInvoiceLine_IsComment(t *testing.T) {
	comment := model.InvoiceLine{FreeText: "Delivery week 12"}
	assert.True(t, comment.IsComment())

	named := model.InvoiceLine{Name: "Coffee"}
	assert.False(t, named.IsComment())

	coded := model.InvoiceLine{ArticleID: "A-100"}
	assert.False(t, coded.IsComment())
}

func TestInvoiceLine_Calculate(t *testing.T) {
	line := model.InvoiceLine{
		Quantity:  dec("3"),
		UnitPrice: dec("10.50"),
	}
	line.Calculate()
	assert.True(t, line.Subtotal.Equal(dec("31.50")), line.Subtotal.String())
}

func TestInvoiceLine_Calculate_Discount(t *testing.T) {
	line := model.InvoiceLine{
		Quantity:        dec("2"),
		UnitPrice:       dec("100"),
		DiscountPercent: dec("10"),
	}
	line.Calculate()
	assert.True(t, line.Subtotal.Equal(dec("180")), line.Subtotal.String())
}

func TestInvoiceLine_Calculate_KeepsExistingSubtotal(t *testing.T) {
	line := model.InvoiceLine{
		Quantity:  dec("2"),
		UnitPrice: dec("100"),
		Subtotal:  dec("150"),
	}
	line.Calculate()
	assert.True(t, line.Subtotal.Equal(dec("150")))
}

func TestInvoiceLine_VATAmount(t *testing.T) {
	line := model.InvoiceLine{
		Subtotal:       dec("200"),
		VATRatePercent: dec("25.5"),
	}
	assert.True(t, line.VATAmount().Equal(dec("51")), line.VATAmount().String())
}

func TestInvoice_CalculateTotals(t *testing.T) {
	inv := model.Invoice{
		Lines: []model.InvoiceLine{
			{Quantity: dec("2"), UnitPrice: dec("100"), VATRatePercent: dec("25.5")},
			{Quantity: dec("1"), UnitPrice: dec("50"), VATRatePercent: dec("14")},
			{FreeText: "comment row", Note: true},
		},
	}
	inv.CalculateTotals()

	assert.True(t, inv.AmountUntaxed.Equal(dec("250")), inv.AmountUntaxed.String())
	assert.True(t, inv.AmountTax.Equal(dec("58")), inv.AmountTax.String())
	assert.True(t, inv.AmountTotal.Equal(dec("308")), inv.AmountTotal.String())
}

func TestInvoice_PaymentReference(t *testing.T) {
	inv := model.Invoice{
		SellersBuyerIdentifier: "CUST-42",
	}
	assert.Equal(t, "CUST-42", inv.PaymentReference())

	inv.Payment.Reference = "13"
	assert.Equal(t, "13", inv.PaymentReference())
}

func TestInvoice_ExportFilename(t *testing.T) {
	inv := model.Invoice{Number: "INV-2026/001"}
	assert.Equal(t, "INV-2026_001_finvoice_3_0.xml", inv.ExportFilename())

	plain := model.Invoice{Number: "12345"}
	assert.Equal(t, "12345_finvoice_3_0.xml", plain.ExportFilename())
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "LASKU", model.TypeLabel("INV01"))
	assert.Equal(t, "HYVITYSLASKU", model.TypeLabel("INV02"))
	assert.Empty(t, model.TypeLabel("NOPE"))
}
