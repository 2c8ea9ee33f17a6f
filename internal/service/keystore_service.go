package service

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"qr-psp-gateway/internal/core/ports"
)

// fileKeyStore loads both RSA keys from PEM files once at construction and
// serves them from memory afterwards.
type fileKeyStore struct {
	priv    *rsa.PrivateKey
	pub     *rsa.PublicKey
	enabled bool
}

// NewFileKeyStore reads the PSP private key and the counterparty public key
// from the given PEM files. When enabled is false the paths may be empty and
// no files are touched.
func NewFileKeyStore(privateKeyPath, publicKeyPath string, enabled bool) (ports.KeyStore, error) {
	ks := &fileKeyStore{enabled: enabled}
	if !enabled {
		return ks, nil
	}

	priv, err := loadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load private key %s: %w", privateKeyPath, err)
	}
	pub, err := loadPublicKey(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load public key %s: %w", publicKeyPath, err)
	}

	ks.priv = priv
	ks.pub = pub
	return ks, nil
}

func (k *fileKeyStore) PSPPrivateKey() *rsa.PrivateKey        { return k.priv }
func (k *fileKeyStore) CounterpartyPublicKey() *rsa.PublicKey { return k.pub }
func (k *fileKeyStore) Enabled() bool                         { return k.enabled }

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	// PKCS#8 is the canonical format; fall back to PKCS#1 for older keys.
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is %T, want RSA", key)
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want RSA", key)
	}
	return rsaKey, nil
}

func readPEM(path string) (*pem.Block, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}
	return block, nil
}
