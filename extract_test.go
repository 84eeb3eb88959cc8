package efaktur

import (
	"strings"
	"testing"
)

const sampleInvoiceText = `Faktur Pajak
Kode dan Nomor Seri Faktur Pajak: 0700002212345678
Pengusaha Kena Pajak
Nama: PT ABC
Alamat: Jalan Gatot Subroto No. 40A, Jakarta Selatan
NPWP: 01.234.567.8-012.000
Pembeli Barang Kena Pajak
Nama: PT XYZ
Alamat: Jalan Kuda Laut No. 1, Batam
NPWP: 02.345.678.9-217.000
Dasar Pengenaan Pajak: 15.000.000
Total PPN: 1.650.000
Jakarta, 01/04/2022
`

func TestExtractFieldsFullDocument(t *testing.T) {
	fields := ExtractFields(sampleInvoiceText)

	want := map[string]string{
		FieldNPWPPenjual:   "012345678012000",
		FieldNamaPenjual:   "PT ABC",
		FieldNPWPPembeli:   "023456789217000",
		FieldNamaPembeli:   "PT XYZ",
		FieldNomorFaktur:   "0700002212345678",
		FieldTanggalFaktur: "01/04/2022",
		FieldJumlahDPP:     "15000000",
		FieldJumlahPPN:     "1650000",
	}

	for name, wantValue := range want {
		got := fields.Get(name)
		if !got.Present() {
			t.Errorf("field %s: absent, want %q", name, wantValue)
			continue
		}
		if got.Value() != wantValue {
			t.Errorf("field %s = %q, want %q", name, got.Value(), wantValue)
		}
	}
}

func TestExtractFieldsAbsence(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		absent []string
	}{
		{
			name:   "empty text leaves every field absent",
			text:   "",
			absent: FieldNames(),
		},
		{
			name:   "missing buyer name label",
			text:   strings.Replace(sampleInvoiceText, "Nama: PT XYZ\n", "", 1),
			absent: []string{FieldNamaPembeli},
		},
		{
			name:   "NPWP failing 15-digit shape stays absent",
			text:   "Pengusaha Kena Pajak\nNPWP: 01.234.567\n",
			absent: []string{FieldNPWPPenjual},
		},
		{
			name:   "invoice number failing 16-digit shape stays absent",
			text:   "Kode dan Nomor Seri Faktur Pajak: 070000221234\n",
			absent: []string{FieldNomorFaktur},
		},
		{
			name:   "impossible date stays absent",
			text:   "Tanggal Faktur: 45/13/2022\n",
			absent: []string{FieldTanggalFaktur},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := ExtractFields(tt.text)
			for _, name := range tt.absent {
				if f := fields.Get(name); f.Present() {
					t.Errorf("field %s = %q, want absent", name, f.Value())
				}
			}
		})
	}
}

func TestExtractTanggalIndonesianMonthFallback(t *testing.T) {
	text := "Faktur Pajak\nJakarta, 1 April 2022\n"
	fields := ExtractFields(text)

	got := fields.Get(FieldTanggalFaktur)
	if !got.Present() {
		t.Fatal("tanggalFaktur absent, want 01/04/2022")
	}
	if got.Value() != "01/04/2022" {
		t.Errorf("tanggalFaktur = %q, want 01/04/2022", got.Value())
	}
}

func TestPreprocessTextFixups(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"seri faktur confusion", "Kode dan Nomor Sen Faktur", "Kode dan Nomor Seri Faktur"},
		{"npwp pipe separator", "NPWP | 01.234", "NPWP: 01.234"},
		{"pajak confusion", "Faktur Palak", "Faktur Pajak"},
		{"whitespace collapse", "Nama   :  PT ABC", "Nama : PT ABC"},
		{"non-ascii stripped", "Faktur”Pajak", "FakturPajak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessText(tt.in); got != tt.want {
				t.Errorf("preprocessText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"dotted thousands", "1.234.567", "1234567", true},
		{"plain digits", "1234567", "1234567", true},
		{"comma separators", "15,000,000", "15000000", true},
		{"currency prefix", "Rp 1.650.000", "1650000", true},
		{"idr prefix", "IDR 500", "500", true},
		{"inner spaces", "15 000 000", "15000000", true},
		{"letters rejected", "abc", "", false},
		{"empty rejected", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeAmount(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("normalizeAmount(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		dateStr string
		wantErr bool
	}{
		{"01/04/2022", false},
		{"1/4/2022", false},
		{"01-04-2022", false},
		{"01.04.2022", false},
		{"2022/04/01", true},
		{"45/13/2022", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.dateStr, func(t *testing.T) {
			_, err := parseDate(tt.dateStr)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseDate(%q) error = %v, wantErr %v", tt.dateStr, err, tt.wantErr)
			}
		})
	}
}
