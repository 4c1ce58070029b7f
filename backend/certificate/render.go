package certificate

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"time"

	"ecoguardian/backend/models"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	Width  = 1000
	Height = 700

	qrX    = 750
	qrY    = 450
	qrSize = 200
)

var (
	background = color.RGBA{46, 139, 87, 255}
	white      = color.RGBA{255, 255, 255, 255}
	yellow     = color.RGBA{255, 255, 0, 255}

	regularFont = mustParseFont(goregular.TTF)
	boldFont    = mustParseFont(gobold.TTF)
)

func mustParseFont(ttf []byte) *truetype.Font {
	f, err := truetype.Parse(ttf)
	if err != nil {
		panic(err)
	}
	return f
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size})
}

// VerifyURL is the link encoded in the certificate QR code.
func VerifyURL(baseURL, certID string) string {
	return fmt.Sprintf("%s/verify-cert/%s", strings.TrimRight(baseURL, "/"), certID)
}

// Render draws the certificate as a PNG with a QR code linking to verifyURL.
// The action date is printed as it falls in loc.
func Render(c *models.Certificate, loc *time.Location, verifyURL string) ([]byte, error) {
	dc := gg.NewContext(Width, Height)
	dc.SetColor(background)
	dc.Clear()

	dc.SetColor(white)
	dc.SetLineWidth(5)
	dc.DrawRectangle(20, 20, Width-40, Height-40)
	dc.Stroke()

	dc.SetFontFace(face(boldFont, 40))
	dc.DrawString("CERTIFICATE OF ENVIRONMENTAL IMPACT", 100, 140)

	dc.SetFontFace(face(regularFont, 30))
	dc.DrawString("Awarded to: "+c.UserID, 100, 230)
	dc.DrawString("For verified action: "+c.Category, 100, 330)

	dc.SetFontFace(face(regularFont, 25))
	dc.DrawString("Date: "+FormatDate(c.ActionTimestamp, loc), 100, 425)
	dc.SetColor(yellow)
	dc.DrawString("Certificate ID: "+c.ID, 100, 525)

	qr, err := qrcode.New(verifyURL, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	dc.DrawImage(qr.Image(qrSize), qrX, qrY)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode certificate: %w", err)
	}
	return buf.Bytes(), nil
}
