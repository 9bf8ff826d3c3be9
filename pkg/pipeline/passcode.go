package pipeline

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	passcodeSalt = []byte("amadeus-passcode-salt")
	passcodeInfo = []byte("confirmation")
)

// PasscodeDigest derives the stored digest for a confirmation
// passcode: HKDF-SHA256 over the passcode, then SHA-256 of the derived
// key, hex-encoded. Profiles store the digest, never the passcode.
func PasscodeDigest(passcode string) string {
	reader := hkdf.New(sha256.New, []byte(passcode), passcodeSalt, passcodeInfo)
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		// The HKDF reader cannot fail for a 32-byte read.
		return ""
	}
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:])
}

// verifyPasscode compares a supplied passcode against the configured
// digest in constant time. An empty digest disables passcodes and
// never verifies.
func verifyPasscode(digest, passcode string) bool {
	if digest == "" || passcode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(digest), []byte(PasscodeDigest(passcode))) == 1
}
