// Package tokenizer turns detected secrets into deterministic, correlating
// replacement tokens.
package tokenizer

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// MaxSecretLength caps how much of a candidate secret is used for
// normalization/caching, so a pathological multi-megabyte "match" can't
// blow up memory.
const MaxSecretLength = 1024

// Tokenizer hands out stable `<CATEGORY_N>` tokens for secrets it has seen
// before within its lifetime, and fresh ones otherwise. Safe for concurrent
// use.
type Tokenizer struct {
	mu               sync.Mutex
	salt             []byte
	cache            map[string]string
	counter          int
	categoryCounters map[string]int

	// sessionID correlates every token minted by this tokenizer across log
	// lines and bundles without revealing the salt itself.
	sessionID uuid.UUID
}

// New creates a Tokenizer with a fresh random 32-byte salt.
func New() *Tokenizer {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		// crypto/rand.Read only fails if the OS RNG is unavailable, which
		// is unrecoverable for anything security sensitive.
		panic("tokenizer: failed to read random salt: " + err.Error())
	}
	return NewWithSalt(salt)
}

// NewWithSalt creates a Tokenizer with an explicit salt, for deterministic
// tests and for recreating a session's tokenization across process restarts.
func NewWithSalt(salt []byte) *Tokenizer {
	return &Tokenizer{
		salt:             append([]byte(nil), salt...),
		cache:            make(map[string]string),
		categoryCounters: make(map[string]int),
		sessionID:        uuid.New(),
	}
}

// SessionID identifies this tokenizer instance for log correlation. It
// carries no information about the salt or any tokenized secret.
func (t *Tokenizer) SessionID() uuid.UUID {
	return t.sessionID
}

// Tokenize returns the replacement token for secret under category,
// minting a new one the first time a given (normalized) secret is seen and
// returning the same token on every subsequent call with an equal secret.
func (t *Tokenizer) Tokenize(secret, category string) string {
	if strings.TrimSpace(secret) == "" {
		return secret
	}

	normalized := normalize(secret)
	category = NormalizeCategory(category)

	t.mu.Lock()
	defer t.mu.Unlock()

	if token, ok := t.cache[normalized]; ok {
		return token
	}

	t.categoryCounters[category]++
	t.counter++
	token := fmt.Sprintf("<%s_%d>", category, t.categoryCounters[category])

	t.cache[normalized] = token
	t.cache[secret] = token

	return token
}

// NormalizeCategory uppercases category and replaces spaces and hyphens
// with underscores so every token honors the wire contract's
// `<[A-Z_]+_[0-9]+>` shape regardless of how a detector spells its category
// (gitleaks rule IDs are lowercase and hyphenated, e.g. "aws-access-token").
// Callers that report a category alongside a token (engine.Match, Report
// summaries) should normalize it the same way so the two stay consistent.
func NormalizeCategory(category string) string {
	category = strings.ToUpper(category)
	category = strings.ReplaceAll(category, " ", "_")
	category = strings.ReplaceAll(category, "-", "_")
	return category
}

// normalize truncates to MaxSecretLength and applies NFC so visually
// identical secrets with different Unicode representations collide in the
// cache instead of minting duplicate tokens.
func normalize(secret string) string {
	trimmed := strings.TrimSpace(secret)
	if len(trimmed) > MaxSecretLength {
		trimmed = trimmed[:MaxSecretLength]
	}
	return norm.NFC.String(trimmed)
}

// GetSaltHash returns the SHA-256 hex digest of the salt, safe to embed in
// bundle metadata: it lets two bundles be compared for "same session" without
// exposing the salt needed to brute-force token correlation.
func (t *Tokenizer) GetSaltHash() string {
	t.mu.Lock()
	salt := t.salt
	t.mu.Unlock()
	sum := sha256.Sum256(salt)
	return hex.EncodeToString(sum[:])
}

// TotalRedactions reports how many distinct secrets have been tokenized.
func (t *Tokenizer) TotalRedactions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counter
}

// IsToken reports whether text is itself a token this package would
// produce, so the engine can avoid re-tokenizing its own output.
func IsToken(text string) bool {
	if !strings.HasPrefix(text, "<") || !strings.HasSuffix(text, ">") {
		return false
	}
	inner := text[1 : len(text)-1]
	idx := strings.LastIndex(inner, "_")
	if idx < 0 || idx == len(inner)-1 {
		return false
	}
	suffix := inner[idx+1:]
	if _, err := strconv.Atoi(suffix); err != nil {
		return false
	}
	return true
}

// Reset clears all cached mappings and counters and draws a fresh salt,
// matching the Python original's reset(): a secret tokenized before Reset
// and again after gets two unrelated tokens, since correlation is scoped to
// a salt's lifetime.
func (t *Tokenizer) Reset() {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		panic("tokenizer: failed to read random salt: " + err.Error())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.salt = salt
	t.cache = make(map[string]string)
	t.counter = 0
	t.categoryCounters = make(map[string]int)
}
