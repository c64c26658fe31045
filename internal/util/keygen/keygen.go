package keygen

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// DefaultBits is the key size Postal generates itself.
const DefaultBits = 2048

// SigningKey holds a parsed Postal signing key.
type SigningKey struct {
	// PrivateKey is the RSA private key in PEM-encoded PKCS#1 format.
	PrivateKey []byte

	key *rsa.PrivateKey
}

// GenerateSigningKey generates a new RSA signing key with the specified bit size.
func GenerateSigningKey(bits int) (*SigningKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}

	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	return &SigningKey{PrivateKey: privateKeyPEM, key: privateKey}, nil
}

// ParseSigningKey parses a PEM encoded RSA private key in PKCS#1 or PKCS#8 form.
func ParseSigningKey(data []byte) (*SigningKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("signing key is not PEM encoded")
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#1 signing key: %w", err)
		}
		key = k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 signing key: %w", err)
		}
		rsaKey, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing key must be RSA, got %T", k)
		}
		key = rsaKey
	default:
		return nil, fmt.Errorf("unsupported signing key PEM type %q", block.Type)
	}

	return &SigningKey{PrivateKey: data, key: key}, nil
}

// Bits returns the modulus size of the key.
func (k *SigningKey) Bits() int {
	return k.key.N.BitLen()
}

// Fingerprint returns the SHA256 fingerprint of the public key in OpenSSH form.
func (k *SigningKey) Fingerprint() (string, error) {
	pub, err := ssh.NewPublicKey(&k.key.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to create SSH public key: %w", err)
	}
	return ssh.FingerprintSHA256(pub), nil
}

// AuthorizedKey returns the public key in OpenSSH authorized_keys format.
func (k *SigningKey) AuthorizedKey() ([]byte, error) {
	pub, err := ssh.NewPublicKey(&k.key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}
	return ssh.MarshalAuthorizedKey(pub), nil
}

// DKIMPublicKey returns the base64 PKIX public key used as the DKIM "p=" tag.
func (k *SigningKey) DKIMPublicKey() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(&k.key.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// DKIMRecord returns the TXT record value Postal expects for its DKIM selector.
func (k *SigningKey) DKIMRecord() (string, error) {
	p, err := k.DKIMPublicKey()
	if err != nil {
		return "", err
	}
	return "v=DKIM1; t=s; h=sha256; p=" + p + ";", nil
}
