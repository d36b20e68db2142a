package model

// TypeInfo is the classification of a Finvoice InvoiceTypeCode
type TypeInfo struct {
	Code       string
	Label      string
	Kind       MoveKind
	OriginCode string
}

// typeLabels maps every Finvoice message type code to its Finnish label.
// Only a subset of these are importable as accounting documents.
var typeLabels = map[string]string{
	"REQ01":    "TARJOUSPYYNTÖ",
	"QUO01":    "TARJOUS",
	"ORD01":    "TILAUS",
	"ORC01":    "TILAUSVAHVISTUS",
	"DEV01":    "TOIMITUSILMOITUS",
	"INV01":    "LASKU",
	"INV02":    "HYVITYSLASKU",
	"INV03":    "KORKOLASKU",
	"INV04":    "SISÄINEN LASKU",
	"INV05":    "PERINTÄLASKU",
	"INV06":    "PROFORMALASKU",
	"INV07":    "ITSELASKUTUS",
	"INV08":    "HUOMAUTUSLASKU",
	"INV09":    "SUORAMAKSU",
	"TES01":    "TESTILASKU",
	"PRI01":    "HINNASTO",
	"INF01":    "TIEDOTE",
	"DEN01":    "TOIMITUSVIRHEILMOITUS",
	"SEI01-09": "TURVALASKU",
	"REC01-09": "KUITTI",
	"RES01-09": "TURVAKUITTI",
	"SDD01":    "Suoraveloituksen ennakkoilmoitus",
}

// TypeLabel returns the Finnish label for a type code, or empty
func TypeLabel(code string) string {
	return typeLabels[code]
}

// Classify maps an InvoiceTypeCode to a move classification.
// Codes outside the invoice/refund set (offers, orders, receipts...) are
// rejected: they must never be materialized as accounting documents.
func Classify(code string) (TypeInfo, error) {
	info := TypeInfo{Code: code, Label: typeLabels[code]}

	switch code {
	case "INV01", "INV03", "INV04", "INV05", "INV08":
		// INV01 Invoice (Lasku)
		// INV03 Interest Invoice (Korkolasku)
		// INV04 Internal Invoice (Sisäinen lasku)
		// INV05 Collection Bill (Perintälasku)
		// INV08 Notification Invoice (Huomautuslasku)
		info.Kind = MoveKindInvoice
		info.OriginCode = "Original"
	case "INV02":
		// INV02 Refund (Hyvityslasku)
		info.Kind = MoveKindRefund
		info.OriginCode = "Cancel"
	default:
		return TypeInfo{}, NewUnsupportedTypeCodeError(code)
	}

	return info, nil
}

// TypeCodeFor returns the type code and origin code used when exporting
// a document of the given kind
func TypeCodeFor(kind MoveKind) TypeInfo {
	if kind == MoveKindRefund {
		return TypeInfo{Code: "INV02", Label: typeLabels["INV02"], Kind: kind, OriginCode: "Cancel"}
	}
	return TypeInfo{Code: "INV01", Label: typeLabels["INV01"], Kind: MoveKindInvoice, OriginCode: "Original"}
}
