package translog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendWritesDailyBlocks(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "logs"))
	day := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return day }

	require.NoError(t, w.Append(1, []string{"[BALANCE] availableBalance=1000.00 USDT", "[STATS] tx=1"}))
	require.NoError(t, w.Append(2, []string{"[BALANCE] availableBalance=1001.50 USDT"}))

	body, err := os.ReadFile(filepath.Join(dir, "logs", "2025-06-01-transaction.txt"))
	require.NoError(t, err)
	assert.Equal(t,
		"\nTRANSACTION #1 -------------------\n"+
			"[BALANCE] availableBalance=1000.00 USDT\n"+
			"[STATS] tx=1\n"+
			"\nTRANSACTION #2 -------------------\n"+
			"[BALANCE] availableBalance=1001.50 USDT\n",
		string(body))

	// next day rolls over to a new file
	w.now = func() time.Time { return day.Add(2 * time.Minute) }
	require.NoError(t, w.Append(3, nil))
	assert.FileExists(t, filepath.Join(dir, "logs", "2025-06-02-transaction.txt"))
}

func TestPath(t *testing.T) {
	w := NewWriter("")
	assert.Equal(t, "2024-02-29-transaction.txt", w.Path(time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)))
}
