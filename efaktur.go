// Package efaktur validates Indonesian electronic tax invoices (e-Faktur).
//
// The pipeline extracts a fixed set of invoice fields from an uploaded PDF or
// image, decodes the embedded QR code pointing at the DJP (Direktorat Jenderal
// Pajak) validation record, fetches that record, and reports every deviation
// between the two sources.
package efaktur

import (
	"encoding/json"
)

// Canonical field names shared by extracted and authoritative data. The wire
// names match the DJP validation response elements.
const (
	FieldNPWPPenjual   = "npwpPenjual"
	FieldNamaPenjual   = "namaPenjual"
	FieldNPWPPembeli   = "npwpPembeli"
	FieldNamaPembeli   = "namaPembeli"
	FieldNomorFaktur   = "nomorFaktur"
	FieldTanggalFaktur = "tanggalFaktur"
	FieldJumlahDPP     = "jumlahDpp"
	FieldJumlahPPN     = "jumlahPpn"
)

// fieldOrder fixes the comparison and serialization order of the schema.
var fieldOrder = []string{
	FieldNPWPPenjual,
	FieldNamaPenjual,
	FieldNPWPPembeli,
	FieldNamaPembeli,
	FieldNomorFaktur,
	FieldTanggalFaktur,
	FieldJumlahDPP,
	FieldJumlahPPN,
}

// FieldNames returns the schema field names in comparison order.
func FieldNames() []string {
	names := make([]string, len(fieldOrder))
	copy(names, fieldOrder)
	return names
}

// Field is an optional string value. Absence is distinct from the empty
// string: a field that was not found in a source stays absent and is never
// defaulted.
type Field struct {
	value   string
	present bool
}

// NewField returns a present field holding value.
func NewField(value string) Field {
	return Field{value: value, present: true}
}

// Present reports whether the field carries a value.
func (f Field) Present() bool { return f.present }

// Value returns the field value, or "" when absent.
func (f Field) Value() string { return f.value }

// MarshalJSON encodes a present field as its string value and an absent field
// as null, matching the original service's response shape.
func (f Field) MarshalJSON() ([]byte, error) {
	if !f.present {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON decodes null as absence.
func (f *Field) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Field{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = NewField(s)
	return nil
}

// InvoiceFields is the eight-field schema shared by document-extracted and
// DJP-authoritative data.
type InvoiceFields struct {
	NPWPPenjual   Field `json:"npwpPenjual"`
	NamaPenjual   Field `json:"namaPenjual"`
	NPWPPembeli   Field `json:"npwpPembeli"`
	NamaPembeli   Field `json:"namaPembeli"`
	NomorFaktur   Field `json:"nomorFaktur"`
	TanggalFaktur Field `json:"tanggalFaktur"`
	JumlahDPP     Field `json:"jumlahDpp"`
	JumlahPPN     Field `json:"jumlahPpn"`
}

// Get returns the field with the given canonical name.
func (inv *InvoiceFields) Get(name string) Field {
	switch name {
	case FieldNPWPPenjual:
		return inv.NPWPPenjual
	case FieldNamaPenjual:
		return inv.NamaPenjual
	case FieldNPWPPembeli:
		return inv.NPWPPembeli
	case FieldNamaPembeli:
		return inv.NamaPembeli
	case FieldNomorFaktur:
		return inv.NomorFaktur
	case FieldTanggalFaktur:
		return inv.TanggalFaktur
	case FieldJumlahDPP:
		return inv.JumlahDPP
	case FieldJumlahPPN:
		return inv.JumlahPPN
	}
	return Field{}
}

// Set stores the field under the given canonical name.
func (inv *InvoiceFields) Set(name string, f Field) {
	switch name {
	case FieldNPWPPenjual:
		inv.NPWPPenjual = f
	case FieldNamaPenjual:
		inv.NamaPenjual = f
	case FieldNPWPPembeli:
		inv.NPWPPembeli = f
	case FieldNamaPembeli:
		inv.NamaPembeli = f
	case FieldNomorFaktur:
		inv.NomorFaktur = f
	case FieldTanggalFaktur:
		inv.TanggalFaktur = f
	case FieldJumlahDPP:
		inv.JumlahDPP = f
	case FieldJumlahPPN:
		inv.JumlahPPN = f
	}
}

// DeviationKind classifies a detected discrepancy.
type DeviationKind string

const (
	// DeviationMismatch means both sources carry the field with different values.
	DeviationMismatch DeviationKind = "mismatch"
	// DeviationMissingInPDF means only the DJP record carries the field.
	DeviationMissingInPDF DeviationKind = "missing_in_pdf"
	// DeviationMissingInAPI means only the document carries the field.
	DeviationMissingInAPI DeviationKind = "missing_in_api"
)

// Deviation records one discrepancy between the document and the DJP record.
// A field never produces more than one deviation.
type Deviation struct {
	Field    string        `json:"field"`
	PDFValue Field         `json:"pdf_value"`
	DJPValue Field         `json:"djp_api_value"`
	Kind     DeviationKind `json:"deviation_type"`
}

// Status is the top-level result state of a validation run.
type Status string

const (
	StatusValidated      Status = "validated_successfully"
	StatusWithDeviations Status = "validated_with_deviations"
	StatusError          Status = "error"
)

// ValidationResults holds the detailed outcome of a completed run.
type ValidationResults struct {
	Deviations    []Deviation   `json:"deviations"`
	ValidatedData InvoiceFields `json:"validated_data"`
	ExtractedData InvoiceFields `json:"extracted_data"`
	RawOCRText    string        `json:"raw_ocr_text,omitempty"`
	QRURL         string        `json:"qr_url,omitempty"`
}

// ValidationOutcome is the result of one validation request. It is built once
// by the deviation engine and not mutated afterwards.
type ValidationOutcome struct {
	Status  Status             `json:"status"`
	Message string             `json:"message"`
	Results *ValidationResults `json:"validation_results,omitempty"`
}
