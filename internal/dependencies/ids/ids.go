package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/minhtien379/Loto/internal/model"
)

var (
	ulidEntropy   = ulid.Monotonic(rand.Reader, 0)
	ulidEntropyMu sync.Mutex
)

// NewRoundID returns a sortable round identifier stamped with t
func NewRoundID(t time.Time) model.RoundID {
	ulidEntropyMu.Lock()
	defer ulidEntropyMu.Unlock()
	return model.RoundID(ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String())
}

// NewPeerID returns a fresh player connection identity
func NewPeerID() model.PeerID {
	return model.PeerID(uuid.NewString())
}

// RoundTime extracts the timestamp a round identifier was created with
func RoundTime(id model.RoundID) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}
