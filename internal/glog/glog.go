// Package glog contains small slog helpers.
package glog

import (
	"encoding/hex"
	"log/slog"
)

// Hex is a byte slice that is logged as a hex string.
type Hex []byte

func (h Hex) LogValue() slog.Value {
	return slog.StringValue(hex.EncodeToString(h))
}
