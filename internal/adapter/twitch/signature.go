package twitch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const signaturePrefix = "sha256="

var ErrMalformedSignature = errors.New("malformed signature header")

// VerifySignature reports whether expected is the HMAC-SHA256 of message under key.
// The comparison runs in constant time.
func VerifySignature(key, message []byte, expected [sha256.Size]byte) bool {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hmac.Equal(mac.Sum(nil), expected[:])
}

// ParseSignatureHeader decodes a "sha256=<64 hex chars>" header value.
func ParseSignatureHeader(header string) ([sha256.Size]byte, error) {
	var sig [sha256.Size]byte

	encoded, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok || len(encoded) != hex.EncodedLen(sha256.Size) {
		return sig, ErrMalformedSignature
	}

	if _, err := hex.Decode(sig[:], []byte(encoded)); err != nil {
		return sig, ErrMalformedSignature
	}
	return sig, nil
}

// signedMessage builds the byte sequence Twitch signs: id || timestamp || body.
func signedMessage(messageID, timestamp string, body []byte) []byte {
	msg := make([]byte, 0, len(messageID)+len(timestamp)+len(body))
	msg = append(msg, messageID...)
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	return msg
}
