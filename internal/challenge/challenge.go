// Package challenge issues and verifies short-lived one-time verification
// codes. Only a salted hash of each code is stored; the plaintext is returned
// exactly once for delivery. A target (account email) holds at most one live
// challenge: issuing again overwrites, verifying consumes.
package challenge

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"

	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/requestcontext"
)

var codesIssued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_verification_codes_issued_total",
	Help: "Total one-time verification codes issued",
})

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 10 * time.Minute

// Challenge is the stored form of an issued code.
type Challenge struct {
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists challenges keyed by target. Put overwrites any prior
// challenge for the target. Consume atomically removes and returns the
// challenge so a code can never be accepted twice.
type Store interface {
	Put(ctx context.Context, target string, ch Challenge) error
	Get(ctx context.Context, target string) (Challenge, error)
	Consume(ctx context.Context, target string) (Challenge, error)
}

// Issuer generates, stores, and verifies one-time codes.
type Issuer struct {
	store Store
	ttl   time.Duration
}

func NewIssuer(store Store, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{store: store, ttl: ttl}
}

// Issue generates a 6-digit numeric code for the target, stores its bcrypt
// hash with an absolute expiry, and returns the plaintext once. Any prior
// unconsumed challenge for the target is overwritten.
func (i *Issuer) Issue(ctx context.Context, target string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash verification code: %w", err)
	}

	ch := Challenge{
		CodeHash:  string(hash),
		ExpiresAt: requestcontext.Now(ctx).Add(i.ttl),
	}
	if err := i.store.Put(ctx, target, ch); err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}
	codesIssued.Inc()
	return code, nil
}

// Verify checks the submitted code against the stored hash. On success the
// challenge is consumed so a replayed code fails. Verification does not
// transition account state; that is the registry's job.
func (i *Issuer) Verify(ctx context.Context, target, submitted string) error {
	ch, err := i.store.Get(ctx, target)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "no pending verification for this account")
	}
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}

	if requestcontext.Now(ctx).After(ch.ExpiresAt) {
		// Leave removal to the sweep (or Redis TTL); the caller must re-request.
		return dErrors.New(dErrors.CodeExpired, "verification code has expired")
	}

	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(submitted)) != nil {
		return dErrors.New(dErrors.CodeMismatch, "verification code does not match")
	}

	// Atomic consume: of two concurrent verifies with the correct code, only
	// the one that wins this removal succeeds.
	if _, err := i.store.Consume(ctx, target); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no pending verification for this account")
		}
		return fmt.Errorf("consume challenge: %w", err)
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
