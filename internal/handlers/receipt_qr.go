package handlers

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

const receiptQRSize = 256

// ReceiptQRPayload is the text encoded in a receipt QR code.
func ReceiptQRPayload(receipt models.Receipt) string {
	return fmt.Sprintf("%s|%s", receipt.ID, receipt.Total.String())
}

// EncodeReceiptQR renders the receipt QR as a PNG data URI.
func EncodeReceiptQR(receipt models.Receipt) (string, error) {
	png, err := qrcode.Encode(ReceiptQRPayload(receipt), qrcode.Medium, receiptQRSize)
	if err != nil {
		return "", fmt.Errorf("failed to encode receipt qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
