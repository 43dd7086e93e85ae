package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cfszone_connect/magic_idp/internal/store"
)

var ErrPrivateKeyInvalid = errors.New("private key is invalid")

const (
	// KeyID is the fixed identifier published in JWKS; key rotation is
	// not modeled.
	KeyID = "default"

	keypairKVName = "jwt_keypair"
	rsaKeyBits    = 4096
)

type JSONWebKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// KeyService owns the asymmetric signing key pair. After Bootstrap the key
// is read-only and safe to share across requests.
type KeyService struct {
	privateKey *rsa.PrivateKey
}

// Bootstrap loads the PEM-encoded key pair from the persistent KV area or
// generates and persists a new one. Generation is a one-time startup cost;
// it is deliberately not hidden behind a lazily checked global.
func Bootstrap(ctx context.Context, kv *store.Store) (*KeyService, error) {
	return bootstrap(ctx, kv, rsaKeyBits)
}

func bootstrap(ctx context.Context, kv *store.Store, bits int) (*KeyService, error) {
	pemData, err := kv.GetKV(ctx, keypairKVName)
	if err == nil {
		key, parseErr := parsePrivateKeyPEM(pemData)
		if parseErr != nil {
			return nil, fmt.Errorf("load jwt keypair: %w", parseErr)
		}
		return &KeyService{privateKey: key}, nil
	}
	if !errors.Is(err, store.ErrKVNotFound) {
		return nil, fmt.Errorf("load jwt keypair: %w", err)
	}

	slog.Warn("generating RSA signing keypair, this is going to take some time", "bits", bits)
	started := time.Now()
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	slog.Info("RSA signing keypair generated", "elapsed", time.Since(started))

	encoded, err := encodePrivateKeyPEM(key)
	if err != nil {
		return nil, fmt.Errorf("encode keypair: %w", err)
	}
	if err := kv.SetKV(ctx, keypairKVName, encoded); err != nil {
		return nil, fmt.Errorf("persist keypair: %w", err)
	}
	return &KeyService{privateKey: key}, nil
}

func (k *KeyService) PublicKey() *rsa.PublicKey {
	return &k.privateKey.PublicKey
}

func (k *KeyService) JWKS() JSONWebKeySet {
	pub := k.PublicKey()
	return JSONWebKeySet{
		Keys: []JSONWebKey{{
			Kty: "RSA",
			Use: "sig",
			Kid: KeyID,
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
}

// SignIDToken signs the identity assertion handed to a relying client.
func (k *KeyService) SignIDToken(issuer, subject, audience string, now time.Time, lifetime time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"iss": issuer,
		"sub": subject,
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(lifetime).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = KeyID
	signed, err := t.SignedString(k.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign id token: %w", err)
	}
	return signed, nil
}

func encodePrivateKeyPEM(key *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

func parsePrivateKeyPEM(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, ErrPrivateKeyInvalid
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, ErrPrivateKeyInvalid
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrPrivateKeyInvalid
	}
	return rsaKey, nil
}
