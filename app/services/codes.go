package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/escomrepo/users-service/app/config"
)

const codeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// CodeIssuer produces verification codes and owns the two expiry policies:
// a long TTL for codes sent by mail and a short one for session tokens.
// It has no side effects; given a fixed random source it is deterministic.
type CodeIssuer struct {
	rand       io.Reader
	codeTTL    time.Duration
	sessionTTL time.Duration
}

func NewCodeIssuer(cfg config.App) *CodeIssuer {
	return &CodeIssuer{
		rand:       rand.Reader,
		codeTTL:    cfg.CodeTTL,
		sessionTTL: cfg.SessionTTL,
	}
}

// GenerateCode returns a 6-digit numeric code, zero-padded. The value is the
// identity; any grouping for display is up to the presentation layer.
func (i *CodeIssuer) GenerateCode() (string, error) {
	n, err := rand.Int(i.rand, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

// CodeExpiry returns the expiry timestamp for a freshly issued code.
func (i *CodeIssuer) CodeExpiry() time.Time {
	return time.Now().Add(i.codeTTL)
}

// SessionExpiry returns the expiry timestamp for a session token issued after
// a successful verification.
func (i *CodeIssuer) SessionExpiry() time.Time {
	return time.Now().Add(i.sessionTTL)
}

// Expired reports whether the given expiry timestamp has passed.
func (i *CodeIssuer) Expired(expiresAt time.Time) bool {
	return time.Now().After(expiresAt)
}

// FormatCode groups a 6-digit code as XXX-XXX for mail bodies. Anything of a
// different length passes through untouched.
func FormatCode(code string) string {
	if len(code) != codeDigits {
		return code
	}
	return code[:3] + "-" + code[3:]
}
