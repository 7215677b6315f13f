package genesisparser

import (
	"bufio"
	"io"
	"strings"
)

// DefaultBatchSize is how many lines are buffered before they are flushed.
const DefaultBatchSize = 200

// lineWriter buffers output lines and flushes them in batches. The most
// recent line always stays buffered so a dangling comma can still be removed
// when the line after it is dropped.
type lineWriter struct {
	out     *bufio.Writer
	lines   []string
	batch   int
	written int
}

func newLineWriter(w io.Writer, batch int) *lineWriter {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &lineWriter{
		out:   bufio.NewWriter(w),
		lines: make([]string, 0, batch+1),
		batch: batch,
	}
}

func (lw *lineWriter) add(lines ...string) error {
	lw.lines = append(lw.lines, lines...)
	if len(lw.lines) <= lw.batch {
		return nil
	}
	last := len(lw.lines) - 1
	if err := lw.write(lw.lines[:last]); err != nil {
		return err
	}
	lw.lines[0] = lw.lines[last]
	lw.lines = lw.lines[:1]
	return nil
}

// trimLastComma drops the trailing comma of the last buffered line.
func (lw *lineWriter) trimLastComma() {
	if len(lw.lines) == 0 {
		return
	}
	last := len(lw.lines) - 1
	lw.lines[last] = strings.TrimSuffix(lw.lines[last], ",")
}

func (lw *lineWriter) write(lines []string) error {
	for _, l := range lines {
		if _, err := lw.out.WriteString(l); err != nil {
			return err
		}
		if err := lw.out.WriteByte('\n'); err != nil {
			return err
		}
	}
	lw.written += len(lines)
	return lw.out.Flush()
}

// flush writes everything still buffered.
func (lw *lineWriter) flush() error {
	if err := lw.write(lw.lines); err != nil {
		return err
	}
	lw.lines = lw.lines[:0]
	return nil
}
