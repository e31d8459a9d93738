package storage

import (
	"fmt"

	"github.com/minhtien379/Loto/internal/model"
)

// Key prefix for all persisted data
const keyPrefix = "loto"

// SessionKey returns the key of a player session. The scope distinguishes
// several players sharing one store, typically a profile name.
func SessionKey(scope string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, scope)
}

// HostStateKey returns the key of a room's host state
func HostStateKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:host:%s", keyPrefix, code)
}
