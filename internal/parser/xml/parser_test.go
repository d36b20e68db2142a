package xml_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/finvoice-processor/internal/model"
	xmlparser "github.com/rezonia/finvoice-processor/internal/parser/xml"
)

const sampleFinvoice = `<?xml version="1.0" encoding="UTF-8"?>
<Finvoice Version="3.0">
  <SellerPartyDetails>
    <SellerPartyIdentifier>1234567-8</SellerPartyIdentifier>
    <SellerOrganisationName>Pohjola Tukku Oy</SellerOrganisationName>
    <SellerPostalAddressDetails>
      <SellerStreetName>Mannerheimintie 12</SellerStreetName>
      <SellerTownName>Helsinki</SellerTownName>
      <SellerPostCodeIdentifier>00 100</SellerPostCodeIdentifier>
      <CountryCode>FI</CountryCode>
    </SellerPostalAddressDetails>
  </SellerPartyDetails>
  <BuyerPartyDetails>
    <BuyerOrganisationName>Asiakas Oy</BuyerOrganisationName>
    <BuyerOrganisationTaxCode>7654321-0</BuyerOrganisationTaxCode>
  </BuyerPartyDetails>
  <InvoiceDetails>
    <InvoiceTypeCode>INV01</InvoiceTypeCode>
    <InvoiceTypeText>LASKU</InvoiceTypeText>
    <OriginCode>Original</OriginCode>
    <InvoiceNumber>INV-2026/001</InvoiceNumber>
    <InvoiceDate Format="CCYYMMDD">20260215</InvoiceDate>
    <SellerReferenceIdentifier>REF-88</SellerReferenceIdentifier>
    <SellersBuyerIdentifier>CUST-42</SellersBuyerIdentifier>
    <InvoiceTotalVatExcludedAmount AmountCurrencyIdentifier="EUR">200,00</InvoiceTotalVatExcludedAmount>
    <InvoiceTotalVatAmount AmountCurrencyIdentifier="EUR">51,00</InvoiceTotalVatAmount>
    <InvoiceTotalVatIncludedAmount AmountCurrencyIdentifier="EUR">251,00</InvoiceTotalVatIncludedAmount>
    <InvoiceFreeText>Kiitos tilauksesta</InvoiceFreeText>
    <PaymentTermsDetails>
      <PaymentTermsFreeText>14 pv netto</PaymentTermsFreeText>
      <InvoiceDueDate Format="CCYYMMDD">20260301</InvoiceDueDate>
      <PaymentOverDueFineDetails>
        <PaymentOverDueFinePercent>8,5</PaymentOverDueFinePercent>
      </PaymentOverDueFineDetails>
    </PaymentTermsDetails>
  </InvoiceDetails>
  <InvoiceRow>
    <ArticleIdentifier>A-100</ArticleIdentifier>
    <ArticleName>Kahvipaketti</ArticleName>
    <InvoicedQuantity QuantityUnitCode="kpl">2</InvoicedQuantity>
    <UnitPriceAmount AmountCurrencyIdentifier="EUR">100,00</UnitPriceAmount>
    <RowVatRatePercent>25,5</RowVatRatePercent>
    <RowVatAmount AmountCurrencyIdentifier="EUR">51,00</RowVatAmount>
    <RowVatExcludedAmount AmountCurrencyIdentifier="EUR">200,00</RowVatExcludedAmount>
  </InvoiceRow>
  <EpiDetails>
    <EpiIdentificationDetails>
      <EpiDate Format="CCYYMMDD">20260215</EpiDate>
      <EpiReference>13</EpiReference>
    </EpiIdentificationDetails>
    <EpiPartyDetails>
      <EpiBfiPartyDetails>
        <EpiBfiIdentifier IdentificationSchemeName="BIC">NDEAFIHH</EpiBfiIdentifier>
      </EpiBfiPartyDetails>
      <EpiBeneficiaryPartyDetails>
        <EpiNameText>Pohjola Tukku Oy</EpiNameText>
        <EpiAccountID IdentificationSchemeName="IBAN">FI21 1234 5600 0007 85</EpiAccountID>
      </EpiBeneficiaryPartyDetails>
    </EpiPartyDetails>
    <EpiPaymentInstructionDetails>
      <EpiRemittanceInfoIdentifier>13</EpiRemittanceInfoIdentifier>
      <EpiInstructedAmount AmountCurrencyIdentifier="EUR">251,00</EpiInstructedAmount>
      <EpiDateOptionDate Format="CCYYMMDD">20260301</EpiDateOptionDate>
    </EpiPaymentInstructionDetails>
  </EpiDetails>
</Finvoice>`

func TestFinvoiceAdapter_Parse(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	inv, err := adapter.Parse(ctx, strings.NewReader(sampleFinvoice))
	require.NoError(t, err)
	require.NotNil(t, inv)

	assert.Equal(t, "INV-2026/001", inv.Number)
	assert.Equal(t, "REF-88", inv.Ref)
	assert.Equal(t, "INV01", inv.TypeCode)
	assert.Equal(t, "LASKU", inv.TypeText)
	assert.Equal(t, "Original", inv.OriginCode)
	assert.Equal(t, model.MoveKindInvoice, inv.Kind)
	assert.Equal(t, "3.0", inv.Version)
	assert.Equal(t, "EUR", inv.Currency)

	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), inv.Date)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), inv.DueDate)

	assert.Equal(t, "200", inv.AmountUntaxed.String())
	assert.Equal(t, "51", inv.AmountTax.String())
	assert.Equal(t, "251", inv.AmountTotal.String())

	assert.Equal(t, "CUST-42", inv.SellersBuyerIdentifier)
	assert.Equal(t, "8.5", inv.OverdueFinePercent.String())
	assert.Contains(t, inv.FreeText, "Kiitos tilauksesta")
	assert.Contains(t, inv.FreeText, "14 pv netto")
}

func TestFinvoiceAdapter_Parse_Seller(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	inv, err := adapter.Parse(ctx, strings.NewReader(sampleFinvoice))
	require.NoError(t, err)

	seller := inv.Seller
	assert.Equal(t, "Pohjola Tukku Oy", seller.Name)
	assert.Equal(t, "1234567-8", seller.BusinessID)
	// No tax code given: the VAT is reconstructed from the business id
	assert.Equal(t, "FI12345678", seller.VAT)
	assert.True(t, seller.VATDerived)

	assert.Equal(t, "Mannerheimintie 12", seller.Address.Street)
	assert.Equal(t, "Helsinki", seller.Address.City)
	assert.Equal(t, "00100", seller.Address.Zip)
	assert.Equal(t, "FI", seller.Address.CountryCode)
}

func TestFinvoiceAdapter_Parse_BuyerVATHoldsBusinessID(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	inv, err := adapter.Parse(ctx, strings.NewReader(sampleFinvoice))
	require.NoError(t, err)

	// The tax code field held a business id; both fields are corrected
	buyer := inv.Buyer
	assert.Equal(t, "FI76543210", buyer.VAT)
	assert.Equal(t, "7654321-0", buyer.BusinessID)
	assert.True(t, buyer.VATDerived)
}

func TestFinvoiceAdapter_Parse_Payment(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	inv, err := adapter.Parse(ctx, strings.NewReader(sampleFinvoice))
	require.NoError(t, err)

	assert.Equal(t, "FI21 1234 5600 0007 85", inv.Payment.IBAN)
	assert.Equal(t, "NDEAFIHH", inv.Payment.BIC)
	assert.Equal(t, "Pohjola Tukku Oy", inv.Payment.BeneficiaryName)
	assert.Equal(t, "13", inv.Payment.Reference)
	assert.Equal(t, "251", inv.Payment.Amount.String())
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), inv.Payment.DueDate)
}

func TestFinvoiceAdapter_Parse_Rows(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	inv, err := adapter.Parse(ctx, strings.NewReader(sampleFinvoice))
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)

	line := inv.Lines[0]
	assert.Equal(t, "A-100", line.ArticleID)
	assert.Equal(t, "Kahvipaketti", line.Name)
	assert.Equal(t, "2", line.Quantity.String())
	assert.Equal(t, "kpl", line.UnitCode)
	assert.Equal(t, "100", line.UnitPrice.String())
	assert.False(t, line.UnitPriceDerived)
	assert.Equal(t, "25.5", line.VATRatePercent.String())
	assert.Equal(t, "200", line.Subtotal.String())
	assert.False(t, line.Note)
}

func rowDoc(row string) string {
	return `<Finvoice Version="3.0">
  <SellerPartyDetails><SellerOrganisationName>Myyja Oy</SellerOrganisationName></SellerPartyDetails>
  <BuyerPartyDetails><BuyerOrganisationName>Ostaja Oy</BuyerOrganisationName></BuyerPartyDetails>
  <InvoiceDetails>
    <InvoiceTypeCode>INV01</InvoiceTypeCode>
    <InvoiceNumber>77</InvoiceNumber>
    <InvoiceDate Format="CCYYMMDD">20260110</InvoiceDate>
  </InvoiceDetails>
  ` + row + `
</Finvoice>`
}

func TestFinvoiceAdapter_Parse_DerivedUnitPrice(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	// No quantity and no unit price: quantity defaults to one and the
	// price is derived from the untaxed subtotal
	doc := rowDoc(`<InvoiceRow>
    <ArticleName>Rahti</ArticleName>
    <RowVatRatePercent>24</RowVatRatePercent>
    <RowVatExcludedAmount>100,00</RowVatExcludedAmount>
  </InvoiceRow>`)

	inv, err := adapter.Parse(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)

	line := inv.Lines[0]
	assert.Equal(t, "1", line.Quantity.String())
	assert.Equal(t, "100", line.UnitPrice.String())
	assert.True(t, line.UnitPriceDerived)
}

func TestFinvoiceAdapter_Parse_SubtotalFromRowAmount(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	doc := rowDoc(`<InvoiceRow>
    <ArticleName>Palvelu</ArticleName>
    <InvoicedQuantity>2</InvoicedQuantity>
    <RowVatRatePercent>24</RowVatRatePercent>
    <RowVatAmount>24,00</RowVatAmount>
    <RowAmount>124,00</RowAmount>
  </InvoiceRow>`)

	inv, err := adapter.Parse(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)

	line := inv.Lines[0]
	assert.Equal(t, "100", line.Subtotal.String())
	assert.Equal(t, "50", line.UnitPrice.String())
	assert.True(t, line.UnitPriceDerived)
}

func TestFinvoiceAdapter_Parse_DeliveredQuantityFallback(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	doc := rowDoc(`<InvoiceRow>
    <ArticleName>Maito</ArticleName>
    <DeliveredQuantity QuantityUnitCode="ltr">6</DeliveredQuantity>
    <UnitPriceAmount>1,50</UnitPriceAmount>
    <RowVatRatePercent>14</RowVatRatePercent>
  </InvoiceRow>`)

	inv, err := adapter.Parse(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)

	line := inv.Lines[0]
	assert.Equal(t, "6", line.Quantity.String())
	assert.Equal(t, "ltr", line.UnitCode)
}

func TestFinvoiceAdapter_Parse_CommentRow(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	doc := rowDoc(`<InvoiceRow>
    <RowFreeText>Toimitus viikolla 12</RowFreeText>
  </InvoiceRow>`)

	inv, err := adapter.Parse(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)

	assert.True(t, inv.Lines[0].Note)
	assert.Equal(t, "Toimitus viikolla 12", inv.Lines[0].FreeText)
}

func TestFinvoiceAdapter_Parse_UnsupportedTypeCode(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	doc := `<Finvoice Version="3.0">
  <SellerPartyDetails><SellerOrganisationName>Myyja Oy</SellerOrganisationName></SellerPartyDetails>
  <BuyerPartyDetails><BuyerOrganisationName>Ostaja Oy</BuyerOrganisationName></BuyerPartyDetails>
  <InvoiceDetails>
    <InvoiceTypeCode>QUO01</InvoiceTypeCode>
    <InvoiceNumber>1</InvoiceNumber>
    <InvoiceDate Format="CCYYMMDD">20260110</InvoiceDate>
  </InvoiceDetails>
</Finvoice>`

	_, err := adapter.Parse(ctx, strings.NewReader(doc))
	require.Error(t, err)

	var typeErr *model.UnsupportedTypeCodeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "QUO01", typeErr.Code)
}

func TestFinvoiceAdapter_Parse_Attachment(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewFinvoiceAdapter()

	content := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake"))
	doc := rowDoc(`<InvoiceRow><ArticleName>X</ArticleName></InvoiceRow>
  <AttachmentDetails>
    <AttachmentName>liite</AttachmentName>
    <AttachmentContent mimeCode="application/pdf">` + content + `</AttachmentContent>
  </AttachmentDetails>`)

	inv, err := adapter.Parse(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, inv.Attachments, 1)

	att := inv.Attachments[0]
	assert.Equal(t, "liite.pdf", att.Name)
	assert.Equal(t, "application/pdf", att.MimeType)
	assert.Equal(t, []byte("%PDF-1.4 fake"), att.Content)
}

func TestSOAPAdapter_Parse(t *testing.T) {
	ctx := context.Background()
	adapter := xmlparser.NewSOAPAdapter()

	framed := `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>` + strings.TrimPrefix(sampleFinvoice, `<?xml version="1.0" encoding="UTF-8"?>`) + `
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

	require.True(t, adapter.CanParse([]byte(framed)))

	inv, err := adapter.Parse(ctx, strings.NewReader(framed))
	require.NoError(t, err)
	assert.Equal(t, "INV-2026/001", inv.Number)
	assert.Equal(t, "Pohjola Tukku Oy", inv.Seller.Name)
}

func TestRegistry_Detect(t *testing.T) {
	registry := xmlparser.NewRegistry()

	bare, err := registry.Detect([]byte(sampleFinvoice))
	require.NoError(t, err)
	assert.Equal(t, "finvoice", bare.Name())

	framed := `<Envelope><Body><Finvoice Version="3.0"/></Body></Envelope>`
	soap, err := registry.Detect([]byte(framed))
	require.NoError(t, err)
	assert.Equal(t, "finvoice-soap", soap.Name())

	_, err = registry.Detect([]byte(`<Invoice><Number>1</Number></Invoice>`))
	require.Error(t, err)
}

func TestRegistry_Parse(t *testing.T) {
	ctx := context.Background()
	registry := xmlparser.NewRegistry()

	inv, err := registry.Parse(ctx, []byte(sampleFinvoice))
	require.NoError(t, err)
	assert.Equal(t, "INV-2026/001", inv.Number)
}
