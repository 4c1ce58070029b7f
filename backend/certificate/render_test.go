package certificate

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"ecoguardian/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	c := &models.Certificate{
		ID:              "CERT-1A2B3C4D",
		ReportID:        1,
		UserID:          "alice",
		Category:        "Organic & Composting",
		ActionTimestamp: actionTime,
	}
	data, err := Render(c, time.UTC, VerifyURL("https://eco.example", c.ID))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())

	r, g, b, _ := img.At(5, 5).RGBA()
	assert.Equal(t, []uint32{46, 139, 87}, []uint32{r >> 8, g >> 8, b >> 8}, "background")

	r, g, b, _ = img.At(20, Height/2).RGBA()
	assert.Equal(t, []uint32{255, 255, 255}, []uint32{r >> 8, g >> 8, b >> 8}, "border")

	// The QR quiet zone is white.
	r, g, b, _ = img.At(qrX+2, qrY+2).RGBA()
	assert.Equal(t, []uint32{255, 255, 255}, []uint32{r >> 8, g >> 8, b >> 8}, "qr code")
}

func TestVerifyURL(t *testing.T) {
	url := VerifyURL("http://localhost:8080", "CERT-1A2B3C4D")
	assert.Equal(t, "http://localhost:8080/verify-cert/CERT-1A2B3C4D", url)
	assert.Equal(t, url, VerifyURL("http://localhost:8080/", "CERT-1A2B3C4D"))
}
