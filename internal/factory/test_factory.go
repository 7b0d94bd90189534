package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/convoy/internal/dependencies/mocks"
	"github.com/mcoot/convoy/internal/services/auth"
	"github.com/mcoot/convoy/internal/services/invite"
	"github.com/mcoot/convoy/internal/services/party"
	"github.com/mcoot/convoy/internal/storage/memory"
	"github.com/mcoot/convoy/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	store := memory.NewWithClock(mockClock)

	partyCfg := party.DefaultConfig()
	partyCfg.RetryInitialInterval = time.Millisecond
	partyCfg.RetryMaxInterval = 5 * time.Millisecond

	authCfg := auth.DefaultConfig()
	authCfg.Secret = "test-secret"
	authCfg.BcryptCost = bcrypt.MinCost

	logger := testutil.NopLogger()
	app := newWithDependencies(store, mockClock, mockRandom, invite.NewPNGEncoder(64), dependencies{
		auth:   authCfg,
		party:  partyCfg,
		invite: invite.DefaultConfig(),
	}, logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}

// QueueCode queues random bytes that the generator maps onto code, which
// must consist of alphabet symbols
func (t *TestApp) QueueCode(code string) {
	b := make([]byte, len(code))
	for i := range code {
		for j := 0; j < len(invite.Alphabet); j++ {
			if invite.Alphabet[j] == code[i] {
				b[i] = byte(j)
				break
			}
		}
	}
	t.MockRandom.QueueBytes(b)
}
