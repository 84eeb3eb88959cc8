package efaktur

import (
	"errors"
	"fmt"
)

// Terminal pipeline errors. All of them end the current request; none is
// retried inside the pipeline. Field-level absence or mismatch is not an
// error, it surfaces as a deviation.
var (
	// ErrUnsupportedFormat is returned for media types other than PDF, JPEG
	// and PNG.
	ErrUnsupportedFormat = errors.New("only PDF and JPG/PNG files are supported")

	// ErrCorruptInput is returned when the document container cannot be
	// opened at all.
	ErrCorruptInput = errors.New("failed to open document")

	// ErrQRNotFound is returned when no raster region yields a decodable
	// validation URL.
	ErrQRNotFound = errors.New("no QR code found in document")

	// ErrMalformedResponse is returned when the DJP payload is not
	// well-formed XML. Missing individual elements are not an error.
	ErrMalformedResponse = errors.New("failed to parse DJP response")
)

// NetworkError wraps a transport failure while fetching the DJP record.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to reach DJP service at %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response from the DJP service.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("DJP service at %s returned status %d", e.URL, e.Status)
}
