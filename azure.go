package efaktur

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

// AzureRecognizer performs text recognition through the Azure Cognitive
// Services computer vision OCR API. Useful where installing tesseract is not
// an option.
type AzureRecognizer struct {
	client *computervision.BaseClient
}

// NewAzureRecognizer creates a recognizer for the given Azure endpoint and
// API key.
func NewAzureRecognizer(endpoint, apiKey string) *AzureRecognizer {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &AzureRecognizer{client: &client}
}

// Recognize sends the image to the OCR endpoint and joins the recognized
// words back into lines in reading order.
func (r *AzureRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	result, err := r.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(buf.Bytes())),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return "", fmt.Errorf("azure OCR request failed: %w", err)
	}

	var text strings.Builder
	if result.Regions == nil {
		return "", nil
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var words []string
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			text.WriteString(strings.Join(words, " "))
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}
