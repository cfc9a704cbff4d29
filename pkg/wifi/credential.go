package wifi

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// CheckWEPKey validates a WEP key. Keys of length 5, 13, 16 or 29 are ASCII
// keys. Keys of length 10, 26, 32 or 58 must consist of hex digits only.
func CheckWEPKey(key string) (valid, isHex bool) {
	switch len(key) {
	case 5, 13, 16, 29:
		return true, false
	case 10, 26, 32, 58:
		if isHexString(key) {
			return true, true
		}
	}
	return false, false
}

func isHexString(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// HexEncode returns the upper-case hex form of the passphrase bytes.
func HexEncode(s string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(s)))
}

// WirePassphrase returns the passphrase in the form a device expects when it
// is told about a network. Hex WEP keys pass through unchanged; every other
// passphrase is hex encoded, since the device hex-decodes all non-WEP keys.
func WirePassphrase(n Network) (string, error) {
	switch {
	case n.Auth == AuthOpen:
		return "", nil
	case n.Auth == AuthWEP:
		ok, isHex := CheckWEPKey(n.Passphrase)
		if !ok {
			return "", ErrInvalidWEPKey
		}
		if isHex {
			return n.Passphrase, nil
		}
	}

	out := HexEncode(n.Passphrase)
	if len(out) > MaxPassphraseLen {
		return "", fmt.Errorf("wifi: passphrase too long (%d encoded chars)", len(out))
	}
	return out, nil
}
