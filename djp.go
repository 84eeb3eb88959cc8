package efaktur

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultDJPTimeout bounds the authoritative fetch, the pipeline's only
// unbounded-latency dependency.
const DefaultDJPTimeout = 15 * time.Second

// DJPClient fetches the authoritative invoice record from the validation URL
// embedded in the document's QR code. It does not retry; retry policy belongs
// to the surrounding service.
type DJPClient struct {
	httpClient *http.Client
}

// NewDJPClient creates a client with the given fetch timeout. A zero timeout
// falls back to DefaultDJPTimeout.
func NewDJPClient(timeout time.Duration) *DJPClient {
	if timeout <= 0 {
		timeout = DefaultDJPTimeout
	}
	return &DJPClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch performs one GET against the validation URL and returns the raw XML
// body. Transport failures surface as *NetworkError, non-2xx responses as
// *HTTPError.
func (c *DJPClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return body, nil
}

// resValidateFakturPm mirrors the DJP validation response elements the
// pipeline consumes. The buyer is "lawan transaksi" (transaction counterpart)
// in the DJP schema.
type resValidateFakturPm struct {
	XMLName            xml.Name `xml:"resValidateFakturPm"`
	NomorFaktur        string   `xml:"nomorFaktur"`
	TanggalFaktur      string   `xml:"tanggalFaktur"`
	NPWPPenjual        string   `xml:"npwpPenjual"`
	NamaPenjual        string   `xml:"namaPenjual"`
	NPWPLawanTransaksi string   `xml:"npwpLawanTransaksi"`
	NamaLawanTransaksi string   `xml:"namaLawanTransaksi"`
	JumlahDPP          string   `xml:"jumlahDpp"`
	JumlahPPN          string   `xml:"jumlahPpn"`
}

// ParseDJPResponse parses the DJP XML payload into the shared field schema.
// A missing or empty element is an absent field, never an empty string; only
// a payload that is not well-formed XML at all is an error.
func ParseDJPResponse(data []byte) (InvoiceFields, error) {
	var res resValidateFakturPm
	if err := xml.Unmarshal(data, &res); err != nil {
		return InvoiceFields{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var fields InvoiceFields
	set := func(name, value string) {
		if value != "" {
			fields.Set(name, NewField(value))
		}
	}
	setAmount := func(name, value string) {
		if amount, ok := normalizeAmount(value); ok {
			fields.Set(name, NewField(amount))
		} else {
			// Keep an unexpected non-numeric value verbatim; the deviation
			// engine falls back to textual comparison.
			set(name, value)
		}
	}

	set(FieldNPWPPenjual, res.NPWPPenjual)
	set(FieldNamaPenjual, res.NamaPenjual)
	set(FieldNPWPPembeli, res.NPWPLawanTransaksi)
	set(FieldNamaPembeli, res.NamaLawanTransaksi)
	set(FieldNomorFaktur, res.NomorFaktur)
	set(FieldTanggalFaktur, res.TanggalFaktur)
	setAmount(FieldJumlahDPP, res.JumlahDPP)
	setAmount(FieldJumlahPPN, res.JumlahPPN)

	return fields, nil
}
