package pkpass

import (
	"encoding/json"
	"errors"
)

// BarcodePayload is the barcode message printed on every pass. Anyone
// holding the pass can decode it and look the pass up again, so the JSON
// layout (key order included) must stay stable.
type BarcodePayload struct {
	PassTypeID          string `json:"pass_type_id"`
	SerialNumber        string `json:"serial_number"`
	AuthenticationToken string `json:"authentication_token"`
}

func (b BarcodePayload) Encode() string {
	data, _ := json.Marshal(b) // plain strings, cannot fail
	return string(data)
}

// DecodeBarcode parses a barcode message; all three fields are required.
func DecodeBarcode(message string) (BarcodePayload, error) {
	var b BarcodePayload
	if err := json.Unmarshal([]byte(message), &b); err != nil {
		return BarcodePayload{}, err
	}
	if b.PassTypeID == "" || b.SerialNumber == "" || b.AuthenticationToken == "" {
		return BarcodePayload{}, errors.New("barcode is missing pass fields")
	}
	return b, nil
}
