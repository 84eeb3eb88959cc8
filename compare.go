package efaktur

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fieldKind selects the equality semantics for a field.
type fieldKind int

const (
	kindExact  fieldKind = iota // IDs and invoice numbers
	kindName                    // party names
	kindDate                    // calendar dates
	kindAmount                  // decimal magnitudes
)

var fieldKinds = map[string]fieldKind{
	FieldNPWPPenjual:   kindExact,
	FieldNamaPenjual:   kindName,
	FieldNPWPPembeli:   kindExact,
	FieldNamaPembeli:   kindName,
	FieldNomorFaktur:   kindExact,
	FieldTanggalFaktur: kindDate,
	FieldJumlahDPP:     kindAmount,
	FieldJumlahPPN:     kindAmount,
}

// amountTolerance absorbs negligible rounding differences between sources.
var amountTolerance = decimal.NewFromFloat(0.01)

// CompareOptions tunes name comparison. The DJP side does not document its
// exact normalization, so the rules stay configurable; the default is
// case-insensitive with collapsed whitespace, diacritics preserved.
type CompareOptions struct {
	// FoldDiacritics strips combining marks before comparing names, so
	// "Chandra Angkasa" matches "Chandra Angkása".
	FoldDiacritics bool
}

// Compare reduces the extracted and authoritative field sets to an ordered
// deviation list plus the reconciled validated view. It is pure data
// reduction and never fails: for each field independently, absence on both
// sides yields nothing, presence on one side yields a missing_in_* deviation,
// and unequal values yield a mismatch with the authoritative value adopted.
func Compare(extracted, authoritative InvoiceFields, opts CompareOptions) *ValidationOutcome {
	var deviations []Deviation
	var validated InvoiceFields

	for _, name := range fieldOrder {
		pdfField := extracted.Get(name)
		djpField := authoritative.Get(name)

		switch {
		case !pdfField.Present() && !djpField.Present():
			// nothing to compare
		case !pdfField.Present():
			validated.Set(name, djpField)
			deviations = append(deviations, Deviation{
				Field: name, PDFValue: pdfField, DJPValue: djpField,
				Kind: DeviationMissingInPDF,
			})
		case !djpField.Present():
			deviations = append(deviations, Deviation{
				Field: name, PDFValue: pdfField, DJPValue: djpField,
				Kind: DeviationMissingInAPI,
			})
		case fieldsEqual(fieldKinds[name], pdfField.Value(), djpField.Value(), opts):
			validated.Set(name, djpField)
		default:
			// The DJP record is the trusted source.
			validated.Set(name, djpField)
			deviations = append(deviations, Deviation{
				Field: name, PDFValue: pdfField, DJPValue: djpField,
				Kind: DeviationMismatch,
			})
		}
	}

	outcome := &ValidationOutcome{
		Results: &ValidationResults{
			Deviations:    deviations,
			ValidatedData: validated,
			ExtractedData: extracted,
		},
	}
	if len(deviations) == 0 {
		outcome.Status = StatusValidated
		outcome.Message = "E-Faktur data matches DJP records"
	} else {
		outcome.Status = StatusWithDeviations
		outcome.Message = fmt.Sprintf("Found %d deviation(s) in e-Faktur data", len(deviations))
	}
	return outcome
}

// fieldsEqual applies the kind's equality semantics, falling back to exact
// textual comparison when a value resists structural interpretation.
func fieldsEqual(kind fieldKind, pdfValue, djpValue string, opts CompareOptions) bool {
	switch kind {
	case kindName:
		return normalizeName(pdfValue, opts) == normalizeName(djpValue, opts)
	case kindDate:
		pdfDate, errP := parseDate(pdfValue)
		djpDate, errD := parseDate(djpValue)
		if errP != nil || errD != nil {
			return pdfValue == djpValue
		}
		py, pm, pd := pdfDate.Date()
		dy, dm, dd := djpDate.Date()
		return py == dy && pm == dm && pd == dd
	case kindAmount:
		pdfAmount, errP := decimal.NewFromString(pdfValue)
		djpAmount, errD := decimal.NewFromString(djpValue)
		if errP != nil || errD != nil {
			return pdfValue == djpValue
		}
		return pdfAmount.Sub(djpAmount).Abs().LessThanOrEqual(amountTolerance)
	default:
		return pdfValue == djpValue
	}
}

var nameSpaceRe = regexp.MustCompile(`\s+`)

// normalizeName lowercases and collapses whitespace, optionally folding
// diacritics.
func normalizeName(s string, opts CompareOptions) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nameSpaceRe.ReplaceAllString(s, " ")
	if opts.FoldDiacritics {
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if folded, _, err := transform.String(t, s); err == nil {
			s = folded
		}
	}
	return s
}
