package efaktur

import (
	"context"
	"log"
)

// Validator sequences the full pipeline: normalize the document, extract the
// invoice fields, locate the QR validation URL, fetch and parse the DJP
// record, and compare the two field sets.
//
// A Validator holds no per-request state and is safe for concurrent use.
type Validator struct {
	recognizer TextRecognizer
	djp        *DJPClient
	compare    CompareOptions
	debug      bool
}

// NewValidator creates a Validator. A nil recognizer falls back to the
// tesseract CLI; a nil client gets the default fetch timeout.
func NewValidator(recognizer TextRecognizer, djp *DJPClient) *Validator {
	if recognizer == nil {
		recognizer = NewTesseractRecognizer()
	}
	if djp == nil {
		djp = NewDJPClient(0)
	}
	return &Validator{recognizer: recognizer, djp: djp}
}

// SetDebug enables decode and extraction logging.
func (v *Validator) SetDebug(debug bool) {
	v.debug = debug
}

// SetCompareOptions overrides the name comparison rules.
func (v *Validator) SetCompareOptions(opts CompareOptions) {
	v.compare = opts
}

// Validate runs the pipeline over one uploaded file. mediaType is one of the
// MediaType constants (see DetectMediaType). On success the outcome status is
// validated_successfully or validated_with_deviations; terminal failures
// (unsupported format, corrupt input, no QR, DJP fetch or parse failure)
// return a typed error instead, and any partial extraction is discarded.
func (v *Validator) Validate(ctx context.Context, data []byte, mediaType string) (*ValidationOutcome, error) {
	doc, err := v.Normalize(ctx, data, mediaType)
	if err != nil {
		return nil, err
	}

	extracted := ExtractFields(doc.PlainText)
	if v.debug {
		log.Printf("Extracted fields: %+v", extracted)
	}

	qrURL, err := v.LocateQR(doc.Regions)
	if err != nil {
		return nil, err
	}

	body, err := v.djp.Fetch(ctx, qrURL)
	if err != nil {
		return nil, err
	}

	authoritative, err := ParseDJPResponse(body)
	if err != nil {
		return nil, err
	}

	outcome := Compare(extracted, authoritative, v.compare)
	outcome.Results.RawOCRText = doc.PlainText
	outcome.Results.QRURL = qrURL
	return outcome, nil
}
