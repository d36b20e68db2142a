package xml

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/finvoice-processor/internal/finvoice"
	"github.com/rezonia/finvoice-processor/internal/model"
)

// businessIDPattern is the Finnish business id (Y-tunnus): seven digits,
// hyphen, one check digit
var (
	businessIDPattern = regexp.MustCompile(`^[0-9]{7}-[0-9]$`)
	nonDigits         = regexp.MustCompile(`[^0-9]`)
)

// resolveParty extracts a party block. partyType is the element name
// prefix, "Seller" or "Buyer".
func resolveParty(root *etree.Element, partyType string) model.Party {
	pd := "./" + partyType + "PartyDetails"

	party := model.Party{
		Name:       finvoice.TextFrom(root, pd+"/"+partyType+"OrganisationName"),
		BusinessID: finvoice.TextFrom(root, pd+"/"+partyType+"PartyIdentifier"),
		VAT:        finvoice.TextFrom(root, pd+"/"+partyType+"OrganisationTaxCode"),
		Phone:      finvoice.TextFrom(root, pd+"/"+partyType+"PhoneNumberIdentifier"),
		Email:      finvoice.TextFrom(root, pd+"/"+partyType+"EmailaddressIdentifier"),
	}

	pad := pd + "/" + partyType + "PostalAddressDetails"
	party.Address = model.Address{
		Street:      finvoice.TextFrom(root, pad+"/"+partyType+"StreetName"),
		City:        finvoice.TextFrom(root, pad+"/"+partyType+"TownName"),
		Zip:         strings.ReplaceAll(finvoice.TextFrom(root, pad+"/"+partyType+"PostCodeIdentifier"), " ", ""),
		CountryCode: finvoice.TextFrom(root, pad+"/CountryCode"),
		CountryName: finvoice.TextFrom(root, pad+"/CountryName"),
	}

	reconcileVAT(&party)
	return party
}

// reconcileVAT applies the VAT/business-id disambiguation heuristic for
// insufficient or defective Finvoice XML. The result is a best-effort
// correction and is flagged as derived, never silently trusted.
func reconcileVAT(p *model.Party) {
	switch {
	case p.VAT == "" && businessIDPattern.MatchString(p.BusinessID):
		// No VAT given, reconstruct it from the business id
		p.VAT = "FI" + nonDigits.ReplaceAllString(p.BusinessID, "")
		p.VATDerived = true
	case businessIDPattern.MatchString(p.VAT):
		// Business id incorrectly given in the VAT field (this happens)
		if p.BusinessID == "" {
			p.BusinessID = p.VAT
		}
		p.VAT = "FI" + nonDigits.ReplaceAllString(p.VAT, "")
		p.VATDerived = true
	}
}
