package journal

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu    sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID for a record made at t. IDs made within the same
// millisecond still sort in creation order.
func NewID(t time.Time) (string, error) {
	if t.IsZero() {
		t = time.Now()
	}

	idMu.Lock()
	defer idMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func ensureID(id *string, t time.Time) error {
	if *id != "" {
		return nil
	}
	s, err := NewID(t)
	if err != nil {
		return err
	}
	*id = s
	return nil
}
