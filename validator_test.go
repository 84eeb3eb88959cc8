package efaktur

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// stubRecognizer returns a fixed transcription, standing in for the OCR
// engine.
type stubRecognizer struct {
	text string
	err  error
}

func (s stubRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	return s.text, s.err
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestValidateMatchingInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockDJPXML))
	}))
	defer srv.Close()

	v := NewValidator(stubRecognizer{text: sampleInvoiceText}, nil)
	upload := pngBytes(t, qrImage(t, srv.URL+"/validasi", 256))

	outcome, err := v.Validate(context.Background(), upload, MediaTypePNG)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if outcome.Status != StatusValidated {
		t.Errorf("status = %q, want %q (deviations: %v)",
			outcome.Status, StatusValidated, outcome.Results.Deviations)
	}
	if outcome.Results.QRURL != srv.URL+"/validasi" {
		t.Errorf("qr_url = %q, want %q", outcome.Results.QRURL, srv.URL+"/validasi")
	}
	if outcome.Results.RawOCRText == "" {
		t.Error("raw_ocr_text empty, want transcription")
	}
}

func TestValidateWithDeviation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockDJPXML))
	}))
	defer srv.Close()

	// Document shows a different VAT total than the DJP record.
	text := strings.Replace(sampleInvoiceText, "Total PPN: 1.650.000", "Total PPN: 1.500.000", 1)
	v := NewValidator(stubRecognizer{text: text}, nil)
	upload := pngBytes(t, qrImage(t, srv.URL, 256))

	outcome, err := v.Validate(context.Background(), upload, MediaTypePNG)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if outcome.Status != StatusWithDeviations {
		t.Fatalf("status = %q, want %q", outcome.Status, StatusWithDeviations)
	}
	if len(outcome.Results.Deviations) != 1 {
		t.Fatalf("got %d deviations, want 1: %v", len(outcome.Results.Deviations), outcome.Results.Deviations)
	}
	dev := outcome.Results.Deviations[0]
	if dev.Field != FieldJumlahPPN || dev.Kind != DeviationMismatch {
		t.Errorf("deviation = %+v, want mismatch on %s", dev, FieldJumlahPPN)
	}
	if got := outcome.Results.ValidatedData.JumlahPPN.Value(); got != "1650000" {
		t.Errorf("validated jumlahPpn = %q, want authoritative 1650000", got)
	}
}

func TestValidateNoQRCode(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
	}))
	defer srv.Close()

	v := NewValidator(stubRecognizer{text: sampleInvoiceText}, nil)
	upload := pngBytes(t, blankImage(200, 200))

	_, err := v.Validate(context.Background(), upload, MediaTypePNG)
	if !errors.Is(err, ErrQRNotFound) {
		t.Errorf("error = %v, want ErrQRNotFound", err)
	}
	if fetches.Load() != 0 {
		t.Errorf("DJP fetched %d times, want none without a QR code", fetches.Load())
	}
}

func TestValidateDJPFailure(t *testing.T) {
	t.Run("non-2xx status discards extraction", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusInternalServerError)
		}))
		defer srv.Close()

		v := NewValidator(stubRecognizer{text: sampleInvoiceText}, nil)
		upload := pngBytes(t, qrImage(t, srv.URL, 256))

		outcome, err := v.Validate(context.Background(), upload, MediaTypePNG)
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("error = %v, want *HTTPError", err)
		}
		if outcome != nil {
			t.Errorf("outcome = %+v, want nil on terminal error", outcome)
		}
	})

	t.Run("malformed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not xml <"))
		}))
		defer srv.Close()

		v := NewValidator(stubRecognizer{text: sampleInvoiceText}, nil)
		upload := pngBytes(t, qrImage(t, srv.URL, 256))

		_, err := v.Validate(context.Background(), upload, MediaTypePNG)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestValidateUnsupportedFormat(t *testing.T) {
	v := NewValidator(stubRecognizer{}, nil)
	_, err := v.Validate(context.Background(), []byte("%!"), "application/zip")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}
