package translog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"futuresexecutor/src/utils"
)

// Writer appends one block per completed cycle to a file per day named
// YYYY-MM-DD-transaction.txt.
type Writer struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, now: time.Now}
}

// Path returns the file that receives blocks written at t.
func (w *Writer) Path(t time.Time) string {
	return filepath.Join(w.dir, utils.DayStamp(t)+"-transaction.txt")
}

// Append writes the block of transaction n.
func (w *Writer) Append(n int, lines []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("transaction log dir: %w", err)
	}
	path := w.Path(w.now())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transaction log: %w", err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	fmt.Fprintf(buf, "\nTRANSACTION #%d -------------------\n", n)
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("write transaction log %s: %w", path, err)
	}
	return nil
}
