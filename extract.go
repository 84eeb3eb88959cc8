package efaktur

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Label-anchored pattern rules. One rule per field; captured text must pass
// the field's shape validation or the field stays absent.
var (
	npwpRe         = regexp.MustCompile(`NPWP[\s:|\-]*([0-9.\-]+)`)
	namaRe         = regexp.MustCompile(`Nama[\s:|\-]*([A-Z0-9 .,&-]+)`)
	nomorFakturRe  = regexp.MustCompile(`(?i)(?:Kode dan Nomor Seri Faktur Pajak|Nomor[\s:|\-]*Faktur)[\s:|\-]*([0-9.\-]+[ ]*[0-9]+)`)
	tanggalRe      = regexp.MustCompile(`(?i)(?:Tanggal[\s:|\-]*Faktur[\s:|\-]*|,\s*)(\d{1,2}/\d{1,2}/\d{4})`)
	longDateRe     = regexp.MustCompile(`(?i),\s*(\d{1,2})\s+([A-Z]+)\s+(\d{4})`)
	jumlahDppRe    = regexp.MustCompile(`(?i)Dasar Pengenaan Pajak[\s:|\-]*([0-9.,]+)`)
	jumlahPpnRe    = regexp.MustCompile(`(?i)Total PPN[\s:|\-]*([0-9.,]+)`)
	nonDigitRe     = regexp.MustCompile(`[^0-9]`)
	amountNoiseRe  = regexp.MustCompile(`[\s.,]`)
	currencyPrefix = regexp.MustCompile(`(?i)^(?:Rp\.?|IDR)\s*`)
)

// sellerSectionRe and buyerSectionRe split the document into the seller and
// buyer blocks so the repeated NPWP/Nama labels land on the right party.
var (
	sellerSectionRe = regexp.MustCompile(`(?i)Pengusaha Kena Pajak`)
	buyerSectionRe  = regexp.MustCompile(`(?i)Pembeli Barang Kena Pajak`)
)

// indoMonths maps Indonesian month names for the long-date fallback
// ("Jakarta, 1 April 2022").
var indoMonths = map[string]string{
	"JANUARI": "01", "FEBRUARI": "02", "MARET": "03", "APRIL": "04",
	"MEI": "05", "JUNI": "06", "JULI": "07", "AGUSTUS": "08",
	"SEPTEMBER": "09", "OKTOBER": "10", "NOVEMBER": "11", "DESEMBER": "12",
}

// ocrFixups repairs recognition errors that recur on e-Faktur scans.
var ocrFixups = [][2]string{
	{"Sen Faktur", "Seri Faktur"},
	{"NPWP |", "NPWP :"},
	{"NPWP :", "NPWP:"},
	{"NIKPaspor", "NIK/Paspor"},
	{"Palak", "Pajak"},
}

// preprocessText normalizes whitespace and repairs common OCR confusions
// before pattern matching.
func preprocessText(text string) string {
	text = regexp.MustCompile(`[\r\n]+`).ReplaceAllString(text, "\n")
	text = regexp.MustCompile(`[ \t]+`).ReplaceAllString(text, " ")
	for _, fix := range ocrFixups {
		text = strings.ReplaceAll(text, fix[0], fix[1])
	}
	// Strip non-ASCII noise (curly quotes, OCR artifacts)
	text = regexp.MustCompile(`[^\x00-\x7F]+`).ReplaceAllString(text, "")
	text = regexp.MustCompile(` +`).ReplaceAllString(text, " ")
	return text
}

// ExtractFields applies the fixed pattern rules to the normalized plain text.
// Fields whose label is not found, or whose captured text fails shape
// validation, stay absent. Extraction never fails: OCR noise is the dominant
// failure mode and degrades to absence.
func ExtractFields(plainText string) InvoiceFields {
	text := preprocessText(plainText)

	var fields InvoiceFields

	sellerSection, buyerSection := splitSections(text)

	// Seller identity, preferring the seller section and falling back to the
	// first occurrence in the whole document.
	if npwp := extractNPWP(sellerSection); npwp != "" {
		fields.NPWPPenjual = NewField(npwp)
	} else if npwp := extractNPWP(text); npwp != "" {
		fields.NPWPPenjual = NewField(npwp)
	}
	if nama := extractNama(sellerSection); nama != "" {
		fields.NamaPenjual = NewField(nama)
	} else if nama := extractNama(text); nama != "" {
		fields.NamaPenjual = NewField(nama)
	}

	// Buyer identity, falling back to the second occurrence when the section
	// split failed.
	if npwp := extractNPWP(buyerSection); npwp != "" {
		fields.NPWPPembeli = NewField(npwp)
	} else if npwp := nthNPWP(text, 1); npwp != "" {
		fields.NPWPPembeli = NewField(npwp)
	}
	if nama := extractNama(buyerSection); nama != "" {
		fields.NamaPembeli = NewField(nama)
	} else if nama := nthNama(text, 1); nama != "" {
		fields.NamaPembeli = NewField(nama)
	}

	if m := nomorFakturRe.FindStringSubmatch(text); len(m) > 1 {
		nomor := nonDigitRe.ReplaceAllString(m[1], "")
		if len(nomor) == 16 {
			fields.NomorFaktur = NewField(nomor)
		}
	}

	if tanggal := extractTanggal(text); tanggal != "" {
		fields.TanggalFaktur = NewField(tanggal)
	}

	if m := jumlahDppRe.FindStringSubmatch(text); len(m) > 1 {
		if amount, ok := normalizeAmount(m[1]); ok {
			fields.JumlahDPP = NewField(amount)
		}
	}
	if m := jumlahPpnRe.FindStringSubmatch(text); len(m) > 1 {
		if amount, ok := normalizeAmount(m[1]); ok {
			fields.JumlahPPN = NewField(amount)
		}
	}

	return fields
}

// splitSections divides the text at the seller and buyer headings. Either
// section may come back empty when its heading was not recognized.
func splitSections(text string) (seller, buyer string) {
	sellerLoc := sellerSectionRe.FindStringIndex(text)
	buyerLoc := buyerSectionRe.FindStringIndex(text)

	switch {
	case sellerLoc != nil && buyerLoc != nil && sellerLoc[0] < buyerLoc[0]:
		return text[sellerLoc[0]:buyerLoc[0]], text[buyerLoc[0]:]
	case sellerLoc != nil && buyerLoc != nil:
		return text[sellerLoc[0]:], text[buyerLoc[0]:sellerLoc[0]]
	case sellerLoc != nil:
		return text[sellerLoc[0]:], ""
	case buyerLoc != nil:
		return "", text[buyerLoc[0]:]
	}
	return "", ""
}

// extractNPWP pulls the first NPWP from the section and validates its shape:
// stripped of grouping it must be the 15-digit tax ID.
func extractNPWP(section string) string {
	if section == "" {
		return ""
	}
	m := npwpRe.FindStringSubmatch(section)
	if len(m) < 2 {
		return ""
	}
	digits := nonDigitRe.ReplaceAllString(m[1], "")
	if len(digits) != 15 {
		return ""
	}
	return digits
}

// nthNPWP returns the n-th (0-based) shape-valid NPWP in the text.
func nthNPWP(text string, n int) string {
	matches := npwpRe.FindAllStringSubmatch(text, -1)
	count := 0
	for _, m := range matches {
		digits := nonDigitRe.ReplaceAllString(m[1], "")
		if len(digits) != 15 {
			continue
		}
		if count == n {
			return digits
		}
		count++
	}
	return ""
}

func extractNama(section string) string {
	if section == "" {
		return ""
	}
	m := namaRe.FindStringSubmatch(section)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// nthNama returns the n-th (0-based) Nama occurrence in the text.
func nthNama(text string, n int) string {
	matches := namaRe.FindAllStringSubmatch(text, -1)
	if n >= len(matches) {
		return ""
	}
	return strings.TrimSpace(matches[n][1])
}

// extractTanggal extracts the invoice date, first as DD/MM/YYYY, then via
// the Indonesian long-date fallback ("PLACE, DD MONTH YYYY"). The result is
// canonical DD/MM/YYYY, shape-validated by parsing.
func extractTanggal(text string) string {
	if m := tanggalRe.FindStringSubmatch(text); len(m) > 1 {
		if _, err := parseDate(m[1]); err == nil {
			return m[1]
		}
	}

	if m := longDateRe.FindStringSubmatch(text); len(m) > 3 {
		month, ok := indoMonths[strings.ToUpper(m[2])]
		if ok {
			day := m[1]
			if len(day) == 1 {
				day = "0" + day
			}
			candidate := fmt.Sprintf("%s/%s/%s", day, month, m[3])
			if _, err := parseDate(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// parseDate parses an invoice date, trying the display formats that appear on
// e-Faktur documents. Day comes before month.
func parseDate(dateStr string) (time.Time, error) {
	formats := []string{
		"02/01/2006",
		"2/1/2006",
		"02-01-2006",
		"02.01.2006",
	}
	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %s", dateStr)
}

// normalizeAmount strips an optional currency prefix and the thousands and
// decimal-group separators, leaving a bare decimal magnitude. Formatting
// differences between sources must never produce spurious mismatches.
func normalizeAmount(raw string) (string, bool) {
	s := currencyPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	s = amountNoiseRe.ReplaceAllString(s, "")
	if s == "" || nonDigitRe.MatchString(s) {
		return "", false
	}
	return s, true
}
