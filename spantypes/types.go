package spantypes

import (
	"encoding/hex"
)

// BinData is used to hold raw binary blob information in beans. The default swaps
// render it as a hex string in the neutral tree, so it survives text formats such as
// JSON, YAML and CSV.
type BinData []byte

// Hex returns the lower case hex form of the data.
func (data BinData) Hex() string {
	return hex.EncodeToString(data)
}

// BinDataFromHex parses the output of BinData.Hex.
func BinDataFromHex(text string) (BinData, error) {
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return nil, err
	}
	return BinData(decoded), nil
}
