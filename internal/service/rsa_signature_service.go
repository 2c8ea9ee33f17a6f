package service

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/rs/zerolog"

	"qr-psp-gateway/internal/core/ports"
)

// rsaSignatureService signs and verifies with RSASSA-PKCS1-v1_5 over a
// double SHA-256 digest. The wire protocol hashes the canonical input
// twice before signing, so both sides must apply the same two rounds.
type rsaSignatureService struct {
	keys ports.KeyStore
	log  zerolog.Logger
}

// NewRSASignatureService creates the signature engine used for the H-HASH
// header on both inbound and outbound calls.
func NewRSASignatureService(keys ports.KeyStore, log zerolog.Logger) ports.SignatureService {
	return &rsaSignatureService{keys: keys, log: log}
}

// canonicalInput picks what gets signed: the body when one exists,
// otherwise the UTF-8 bytes of the full request URI.
func canonicalInput(body []byte, uri string) []byte {
	if len(body) > 0 {
		return body
	}
	return []byte(uri)
}

func doubleDigest(data []byte) []byte {
	inner := sha256.Sum256(data)
	outer := sha256.Sum256(inner[:])
	return outer[:]
}

func (s *rsaSignatureService) Sign(body []byte, uri string) (string, error) {
	if !s.keys.Enabled() {
		return "", nil
	}

	data := canonicalInput(body, uri)
	if len(data) == 0 {
		return "", errors.New("nothing to sign: empty body and uri")
	}

	sig, err := rsa.SignPKCS1v15(rand.Reader, s.keys.PSPPrivateKey(), crypto.SHA256, doubleDigest(data))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (s *rsaSignatureService) Verify(body []byte, uri, signature string) ports.VerifyResult {
	if !s.keys.Enabled() {
		return ports.VerifyResult{Status: ports.VerifyOK}
	}

	if signature == "" {
		return ports.VerifyResult{Status: ports.VerifyMissingSignature, Reason: "signature header is empty"}
	}

	data := canonicalInput(body, uri)
	if len(data) == 0 {
		return ports.VerifyResult{Status: ports.VerifyNoData, Reason: "no body or uri to verify against"}
	}

	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		s.log.Warn().Err(err).Msg("signature: base64 decode failed")
		return ports.VerifyResult{Status: ports.VerifyCryptoError, Reason: "signature is not valid base64"}
	}

	if err := rsa.VerifyPKCS1v15(s.keys.CounterpartyPublicKey(), crypto.SHA256, doubleDigest(data), raw); err != nil {
		return ports.VerifyResult{Status: ports.VerifyMismatch, Reason: "signature does not match payload"}
	}
	return ports.VerifyResult{Status: ports.VerifyOK}
}
