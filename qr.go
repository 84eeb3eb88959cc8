package efaktur

import (
	"image"
	"log"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/sunshineplan/imgconv"
)

// qrVariant is one pre-processing attempt before a decode. Low-resolution
// embedded QR images frequently fail a naive decode but succeed after
// upscaling, so a bounded, fixed list of variants is tried in priority order.
type qrVariant struct {
	name      string
	transform func(image.Image) image.Image
}

var qrVariants = []qrVariant{
	{"as-is", func(img image.Image) image.Image { return img }},
	{"2x-upscale", upscale2x},
	{"grayscale-contrast", grayscaleContrast},
}

func upscale2x(img image.Image) image.Image {
	bounds := img.Bounds()
	return imgconv.Resize(img, &imgconv.ResizeOption{
		Width:  bounds.Dx() * 2,
		Height: bounds.Dy() * 2,
	})
}

func grayscaleContrast(img image.Image) image.Image {
	return imaging.AdjustContrast(imaging.Grayscale(img), 30)
}

// LocateQR scans raster regions in document order for a decodable QR payload
// and returns the first validation URL found. Returns ErrQRNotFound when no
// region decodes under any variant; that is an expected outcome, not a
// pipeline failure.
func (v *Validator) LocateQR(regions []RasterRegion) (string, error) {
	for _, region := range regions {
		for _, variant := range qrVariants {
			text, err := decodeQR(variant.transform(region.Image))
			if err != nil {
				continue
			}
			if v.debug {
				log.Printf("QR decoded from region %d (%s): %s", region.Index, variant.name, text)
			}
			if strings.Contains(text, "http") {
				return text, nil
			}
		}
	}
	return "", ErrQRNotFound
}

// decodeQR attempts a single QR decode on the image.
func decodeQR(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", err
	}

	reader := qrcode.NewQRCodeReader()
	result, err := reader.Decode(bmp, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
	if err != nil {
		return "", err
	}
	return result.GetText(), nil
}
