package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/minhtien379/Loto/internal/dependencies/mocks"
	"github.com/minhtien379/Loto/internal/services/auth"
	"github.com/minhtien379/Loto/internal/services/room"
	"github.com/minhtien379/Loto/internal/storage/memory"
	"github.com/minhtien379/Loto/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Draws are announced instantly and restores do not wait between attempts.
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	store := memory.New(mockClock)

	managerCfg := room.DefaultManagerConfig()
	managerCfg.Room.AnnounceDelay = 0
	managerCfg.RestoreRetryDelay = 0

	app := newWithDependencies(store, mockClock, mockRandom, managerCfg, auth.Config{BcryptCost: bcrypt.MinCost}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}
