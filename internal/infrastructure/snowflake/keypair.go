package snowflake

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenLifetime = 59 * time.Minute
	// re-mint slightly before expiry so in-flight requests never carry
	// a token the server is about to reject
	tokenRefreshMargin = 5 * time.Minute
)

// KeyPairSigner mints the short-lived RS256 JWTs Snowflake expects for
// key-pair authentication. Tokens are cached until close to expiry.
type KeyPairSigner struct {
	mu          sync.Mutex
	key         *rsa.PrivateKey
	issuer      string
	subject     string
	cachedToken string
	expiresAt   time.Time
}

func NewKeyPairSigner(cfg *config.SnowflakeConfig) (*KeyPairSigner, error) {
	if cfg.PrivateKeyPath == "" {
		return nil, fmt.Errorf("SNOWFLAKE_PRIVATE_KEY_PATH is required for key-pair auth")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("SNOWFLAKE_USER is required for key-pair auth")
	}

	pemData, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, err
	}

	qualifiedUser := strings.ToUpper(cfg.Account) + "." + strings.ToUpper(cfg.User)
	return &KeyPairSigner{
		key:     key,
		issuer:  qualifiedUser + "." + publicKeyFingerprint(key),
		subject: qualifiedUser,
	}, nil
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in private key file")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA")
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// publicKeyFingerprint returns the SHA256:<base64> fingerprint of the DER
// encoded public key, the format Snowflake embeds in the JWT issuer.
func publicKeyFingerprint(key *rsa.PrivateKey) string {
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		// MarshalPKIXPublicKey cannot fail for a valid RSA key
		return ""
	}
	sum := sha256.Sum256(der)
	return "SHA256:" + base64.StdEncoding.EncodeToString(sum[:])
}

// Token returns a valid bearer token, minting a fresh one when the cached
// token is close to expiry.
func (s *KeyPairSigner) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.cachedToken != "" && now.Before(s.expiresAt.Add(-tokenRefreshMargin)) {
		return s.cachedToken, nil
	}

	expiresAt := now.Add(tokenLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.cachedToken = signed
	s.expiresAt = expiresAt
	return signed, nil
}
