package schema_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/finvoice-processor/internal/finvoice/schema"
	"github.com/rezonia/finvoice-processor/internal/model"
)

const validDoc = `<Finvoice Version="3.0">
  <SellerPartyDetails>
    <SellerPartyIdentifier>1234567-8</SellerPartyIdentifier>
    <SellerOrganisationName>Myyja Oy</SellerOrganisationName>
  </SellerPartyDetails>
  <BuyerPartyDetails>
    <BuyerOrganisationName>Ostaja Oy</BuyerOrganisationName>
  </BuyerPartyDetails>
  <InvoiceDetails>
    <InvoiceTypeCode>INV01</InvoiceTypeCode>
    <InvoiceNumber>1</InvoiceNumber>
    <InvoiceDate Format="CCYYMMDD">20260110</InvoiceDate>
  </InvoiceDetails>
  <InvoiceRow>
    <ArticleName>Tuote</ArticleName>
    <InvoicedQuantity QuantityUnitCode="kpl">1</InvoicedQuantity>
  </InvoiceRow>
</Finvoice>`

func TestValidator_Valid(t *testing.T) {
	v := schema.NewValidator()

	result := v.ValidateBytes([]byte(validDoc))
	assert.True(t, result.Valid, result.Violations)
	assert.Equal(t, "3.0", result.Version)
	assert.Empty(t, result.Violations)
	assert.NoError(t, result.Err())
}

func TestValidator_MissingRequiredElements(t *testing.T) {
	v := schema.NewValidator()

	// No InvoiceDetails and no InvoiceRow
	doc := `<Finvoice Version="3.0">
  <SellerPartyDetails><SellerOrganisationName>X</SellerOrganisationName></SellerPartyDetails>
  <BuyerPartyDetails><BuyerOrganisationName>Y</BuyerOrganisationName></BuyerPartyDetails>
</Finvoice>`

	result := v.ValidateBytes([]byte(doc))
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Violations)

	var schemaErr *model.SchemaError
	require.ErrorAs(t, result.Err(), &schemaErr)
	assert.Equal(t, "3.0", schemaErr.Version)
}

func TestValidator_UnknownElement(t *testing.T) {
	v := schema.NewValidator()

	doc := `<Finvoice Version="3.0">
  <SellerPartyDetails><SellerOrganisationName>X</SellerOrganisationName></SellerPartyDetails>
  <BuyerPartyDetails><BuyerOrganisationName>Y</BuyerOrganisationName></BuyerPartyDetails>
  <InvoiceDetails>
    <InvoiceTypeCode>INV01</InvoiceTypeCode>
    <InvoiceNumber>1</InvoiceNumber>
    <InvoiceDate Format="CCYYMMDD">20260110</InvoiceDate>
    <MadeUpElement>zzz</MadeUpElement>
  </InvoiceDetails>
  <InvoiceRow><ArticleName>Tuote</ArticleName></InvoiceRow>
</Finvoice>`

	result := v.ValidateBytes([]byte(doc))
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Violations)
	assert.Contains(t, result.Violations[0], "MadeUpElement")
}

func TestValidator_WrongOrder(t *testing.T) {
	v := schema.NewValidator()

	// InvoiceNumber before InvoiceTypeCode
	doc := `<Finvoice Version="3.0">
  <SellerPartyDetails><SellerOrganisationName>X</SellerOrganisationName></SellerPartyDetails>
  <BuyerPartyDetails><BuyerOrganisationName>Y</BuyerOrganisationName></BuyerPartyDetails>
  <InvoiceDetails>
    <InvoiceNumber>1</InvoiceNumber>
    <InvoiceTypeCode>INV01</InvoiceTypeCode>
    <InvoiceDate Format="CCYYMMDD">20260110</InvoiceDate>
  </InvoiceDetails>
  <InvoiceRow><ArticleName>Tuote</ArticleName></InvoiceRow>
</Finvoice>`

	result := v.ValidateBytes([]byte(doc))
	assert.False(t, result.Valid)
}

func TestValidator_UnexpectedAttribute(t *testing.T) {
	v := schema.NewValidator()

	doc := `<Finvoice Version="3.0">
  <SellerPartyDetails><SellerOrganisationName>X</SellerOrganisationName></SellerPartyDetails>
  <BuyerPartyDetails><BuyerOrganisationName>Y</BuyerOrganisationName></BuyerPartyDetails>
  <InvoiceDetails>
    <InvoiceTypeCode>INV01</InvoiceTypeCode>
    <InvoiceNumber Bogus="true">1</InvoiceNumber>
    <InvoiceDate Format="CCYYMMDD">20260110</InvoiceDate>
  </InvoiceDetails>
  <InvoiceRow><ArticleName>Tuote</ArticleName></InvoiceRow>
</Finvoice>`

	result := v.ValidateBytes([]byte(doc))
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Violations)
	assert.Contains(t, result.Violations[0], "Bogus")
}

func TestValidator_UnknownVersion(t *testing.T) {
	v := schema.NewValidator()

	result := v.ValidateBytes([]byte(`<Finvoice Version="9.9"><InvoiceDetails/></Finvoice>`))
	assert.False(t, result.Valid)
	assert.Equal(t, "9.9", result.Version)
}

func TestValidator_MalformedXML(t *testing.T) {
	v := schema.NewValidator()

	result := v.ValidateBytes([]byte(`<Finvoice><Unclosed>`))
	assert.False(t, result.Valid)
}

func TestValidator_ConcurrentFirstUse(t *testing.T) {
	v := schema.NewValidator()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := v.ValidateBytes([]byte(validDoc))
			assert.True(t, result.Valid)
		}()
	}
	wg.Wait()
}

func TestCompile_RejectsNonXSD(t *testing.T) {
	_, err := schema.Compile("3.0", []byte(`<NotASchema/>`))
	require.Error(t, err)

	_, err = schema.Compile("3.0", []byte(`not xml at all`))
	require.Error(t, err)
}
