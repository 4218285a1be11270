package auth

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/luchovc/agency-portal/internal"
)

const codeLength = 8

// no ambiguous characters, codes are typed into a game client motto field
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type issuedCode struct {
	code      string
	expiresAt time.Time
}

// CodeIssuer hands out short-lived one-time verification codes keyed by habbo
// name. Codes are held in memory only; restarting the server simply forces
// the user to request a new one.
type CodeIssuer struct {
	mu    sync.Mutex
	codes map[string]issuedCode
	ttl   time.Duration
	now   func() time.Time
}

func NewCodeIssuer(ttl time.Duration) *CodeIssuer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CodeIssuer{
		codes: make(map[string]issuedCode),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue generates a fresh code for the handle, replacing any previous one.
func (ci *CodeIssuer) Issue(habboName string) (VerificationCode, error) {
	code, err := randomCode()
	if err != nil {
		return VerificationCode{}, err
	}

	ci.mu.Lock()
	defer ci.mu.Unlock()

	expires := ci.now().Add(ci.ttl)
	ci.codes[normalizeHandle(habboName)] = issuedCode{code: code, expiresAt: expires}

	return VerificationCode{Code: code, ExpiresAt: expires}, nil
}

// Consume checks the submitted code against the issued one and removes it on
// success. Expired or unknown codes fail.
func (ci *CodeIssuer) Consume(habboName, code string) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	key := normalizeHandle(habboName)
	issued, ok := ci.codes[key]
	if !ok {
		return internal.ErrVerificationFailed
	}
	if ci.now().After(issued.expiresAt) {
		delete(ci.codes, key)
		return internal.ErrVerificationExpired
	}
	if issued.code != strings.ToUpper(strings.TrimSpace(code)) {
		return internal.ErrVerificationFailed
	}

	delete(ci.codes, key)
	return nil
}

// Peek returns the live code for a handle without consuming it. Used to match
// the code against the external profile motto before consuming.
func (ci *CodeIssuer) Peek(habboName string) (string, error) {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	key := normalizeHandle(habboName)
	issued, ok := ci.codes[key]
	if !ok {
		return "", internal.ErrVerificationFailed
	}
	if ci.now().After(issued.expiresAt) {
		delete(ci.codes, key)
		return "", internal.ErrVerificationExpired
	}
	return issued.code, nil
}

func normalizeHandle(habboName string) string {
	return strings.ToLower(strings.TrimSpace(habboName))
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(buf), nil
}
