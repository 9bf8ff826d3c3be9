package manifest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/hkdf"
)

const publisherKDFInfo = "amadeus-publisher-kdf"

// Keyring derives per-publisher ed25519 keypairs from a master seed
// using HKDF-SHA256. The same master seed always yields the same key
// for a given publisher id, so verification needs only the seed and
// the manifest itself.
type Keyring struct {
	master ed25519.PrivateKey
}

// NewKeyring generates a fresh random master key.
func NewKeyring() (*Keyring, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	return &Keyring{master: priv}, nil
}

// NewKeyringFromSeed builds a keyring from a stored 32-byte seed.
func NewKeyringFromSeed(seed []byte) (*Keyring, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("master seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Keyring{master: ed25519.NewKeyFromSeed(seed)}, nil
}

// derive produces the publisher's deterministic keypair. The master
// seed is the IKM and the publisher id is the HKDF info input.
func (k *Keyring) derive(publisherID string) (ed25519.PrivateKey, error) {
	if publisherID == "" {
		return nil, fmt.Errorf("publisher id must not be empty")
	}
	reader := hkdf.New(sha256.New, k.master.Seed(), []byte(publisherKDFInfo), []byte(publisherID))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return nil, fmt.Errorf("publisher key derivation: %w", err)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// PublisherKey returns the verification key for a publisher.
func (k *Keyring) PublisherKey(publisherID string) (ed25519.PublicKey, error) {
	priv, err := k.derive(publisherID)
	if err != nil {
		return nil, err
	}
	return priv.Public().(ed25519.PublicKey), nil
}

// Sign computes the manifest signature under the publisher's derived
// key and returns the manifest with the signature filled in.
func (k *Keyring) Sign(m Manifest) (Manifest, error) {
	priv, err := k.derive(m.PublisherID)
	if err != nil {
		return Manifest{}, err
	}
	msg, err := signingBytes(m)
	if err != nil {
		return Manifest{}, err
	}
	m.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(priv, msg))
	return m, nil
}

// Verify checks the manifest signature against the publisher's derived
// key. A missing signature is a verification failure.
func (k *Keyring) Verify(m Manifest) error {
	if m.Signature == "" {
		return fmt.Errorf("%w: manifest is unsigned", ErrBadSignature)
	}
	sig, err := base64.StdEncoding.DecodeString(m.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not base64", ErrBadSignature)
	}
	pub, err := k.PublisherKey(m.PublisherID)
	if err != nil {
		return err
	}
	msg, err := signingBytes(m)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, msg, sig) {
		return ErrBadSignature
	}
	return nil
}

// signingBytes canonicalizes the manifest with the signature cleared,
// so signer and verifier hash identical bytes.
func signingBytes(m Manifest) ([]byte, error) {
	m.Signature = ""
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest serialization: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest canonicalization: %w", err)
	}
	return canonical, nil
}
