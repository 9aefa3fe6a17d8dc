package labels

import "github.com/skip2/go-qrcode"

// qrSize is the pixel edge of generated QR PNGs
const qrSize = 256

// QRPNG encodes the payload as a PNG QR code. Medium error correction so
// labels survive scuffed printouts.
func QRPNG(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, qrSize)
}
