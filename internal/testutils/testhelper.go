package testutils

import (
	"bytes"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestHelper bundles a test with a logger whose output is captured.
type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
	Output *LogBuffer
}

// LogBuffer is a bytes.Buffer safe for the concurrent writes of background goroutines.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewTestHelper creates a test helper with a debug-level logger writing to a buffer.
func NewTestHelper(t *testing.T) *TestHelper {
	out := &LogBuffer{}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
		Output: out,
	}
}
