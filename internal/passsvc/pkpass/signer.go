package pkpass

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"go.mozilla.org/pkcs7"
	"golang.org/x/crypto/pkcs12"
)

// Signer produces the detached signature stored next to the manifest.
type Signer interface {
	Sign(ctx context.Context, manifest []byte) ([]byte, error)
}

// PKCS7Signer signs manifests with the pass type certificate and the WWDR
// intermediate.
type PKCS7Signer struct {
	cert  *x509.Certificate
	key   crypto.PrivateKey
	chain []*x509.Certificate
}

func NewPKCS7Signer(cert *x509.Certificate, key crypto.PrivateKey, chain ...*x509.Certificate) *PKCS7Signer {
	return &PKCS7Signer{cert: cert, key: key, chain: chain}
}

// LoadPKCS7Signer reads the pass certificate from a .p12 file and the
// intermediate from a PEM or DER file. wwdrPath may be empty.
func LoadPKCS7Signer(p12Path, password, wwdrPath string) (*PKCS7Signer, error) {
	if p12Path == "" {
		return nil, errors.New("no signing certificate configured")
	}
	data, err := os.ReadFile(p12Path)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("decode certificate: %w", err)
	}

	var chain []*x509.Certificate
	if wwdrPath != "" {
		wwdr, err := readCertificate(wwdrPath)
		if err != nil {
			return nil, fmt.Errorf("read wwdr certificate: %w", err)
		}
		chain = append(chain, wwdr)
	}
	return NewPKCS7Signer(cert, key, chain...), nil
}

func readCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	return x509.ParseCertificate(data)
}

func (s *PKCS7Signer) Sign(ctx context.Context, manifest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sd, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, err
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSignerChain(s.cert, s.key, s.chain, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, err
	}
	sd.Detach()

	signature, err := sd.Finish()
	if err != nil {
		return nil, err
	}
	// the caller's deadline may have passed while signing
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return signature, nil
}
