// Package genesisparser rewrites exported chain state files line by line.
//
// An exported state is far too large to decode, so the file is streamed
// twice. During the read pass every manipulator observes every key/value
// line; after PrepareWrite the file is streamed again and each line is kept,
// dropped or followed by extra lines according to the manipulators'
// decisions.
package genesisparser

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/luxfi/log"
	"github.com/luxfi/statepatch/pkg/application"
	"github.com/luxfi/statepatch/pkg/core"
)

// maxLineSize bounds a single physical line; runtime code is stored on one line.
const maxLineSize = 512 * 1024 * 1024

// Parser runs manipulators over state files.
type Parser struct {
	app       *application.StatePatch
	metrics   *Metrics
	batchSize int
}

// New creates a new Parser instance. metrics may be nil.
func New(app *application.StatePatch, metrics *Metrics) *Parser {
	return &Parser{app: app, metrics: metrics, batchSize: DefaultBatchSize}
}

// WithBatchSize sets how many lines are buffered between flushes.
func (p *Parser) WithBatchSize(n int) *Parser {
	p.batchSize = n
	return p
}

// ProcessState streams inputFile through manipulators into destFile.
func ProcessState(inputFile, destFile string, manipulators []Manipulator) error {
	app := application.New()
	app.Setup("", log.NewLogger("genesis-parser"), nil)
	return New(app, nil).ProcessState(inputFile, destFile, manipulators)
}

// ProcessState streams inputFile through manipulators into destFile. On error
// destFile may hold a partial result and must not be used.
func (p *Parser) ProcessState(inputFile, destFile string, manipulators []Manipulator) error {
	if err := checkPaths(inputFile, destFile); err != nil {
		return err
	}

	for _, m := range manipulators {
		if l, ok := m.(Logged); ok {
			l.SetLogger(p.app.Log)
		}
	}

	info, err := os.Stat(inputFile)
	if err != nil {
		return fmt.Errorf("failed to stat state file: %w", err)
	}
	p.app.Log.Info("Reading state", "file", inputFile, "size", humanize.Bytes(uint64(info.Size())), "manipulators", len(manipulators))

	var classifier Classifier
	lines, err := p.scan(inputFile, func(raw string) error {
		line, _ := classifier.Classify(raw)
		if !line.HasValue() {
			return nil
		}
		for _, m := range manipulators {
			if err := m.ProcessRead(line); err != nil {
				return wrapManipulatorErr(m, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.app.Log.Info("Read pass complete", "lines", lines)

	for _, m := range manipulators {
		if err := m.PrepareWrite(); err != nil {
			return wrapManipulatorErr(m, err)
		}
	}

	return p.write(inputFile, destFile, manipulators)
}

func (p *Parser) write(inputFile, destFile string, manipulators []Manipulator) error {
	out, err := os.Create(destFile)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer out.Close()

	w := newLineWriter(out, p.batchSize)
	var classifier Classifier
	var removed, appended int
	lines, err := p.scan(inputFile, func(raw string) error {
		line, meta := classifier.Classify(raw)
		if !line.HasValue() {
			return w.add(raw)
		}

		remove, extra, err := decide(manipulators, line)
		if err != nil {
			return err
		}

		if remove {
			removed++
		}
		appended += len(extra)

		switch {
		case len(extra) == 0 && !remove:
			return w.add(raw)
		case len(extra) == 0:
			// the dropped line closed its object, so its predecessor now does
			if !meta.EndWithComma {
				w.trimLastComma()
			}
			return nil
		}

		if !remove {
			if !meta.EndWithComma {
				raw += ","
			}
			if err := w.add(raw); err != nil {
				return err
			}
		}
		for i, l := range extra {
			comma := meta.EndWithComma || i < len(extra)-1
			if err := w.add(l.Render(meta.IndentSpaces, comma)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := w.flush(); err != nil {
		return fmt.Errorf("failed to write destination: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close destination: %w", err)
	}

	if p.metrics != nil {
		p.metrics.Read.Add(float64(lines))
		p.metrics.Written.Add(float64(w.written))
		p.metrics.Removed.Add(float64(removed))
		p.metrics.Appended.Add(float64(appended))
	}
	p.app.Log.Info("Write pass complete",
		"file", destFile,
		"lines", w.written,
		"removed", removed,
		"appended", appended)
	return nil
}

// scan calls fn for every physical line of path and returns the line count.
func (p *Parser) scan(path string, fn func(raw string) error) (int, error) {
	if p.metrics != nil {
		p.metrics.Passes.Inc()
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open state file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		if err := fn(scanner.Text()); err != nil {
			return n, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("failed to read state file: %w", err)
	}
	return n, nil
}

func checkPaths(inputFile, destFile string) error {
	if inputFile == "" || destFile == "" {
		return core.WrapConfigError(ErrMissingPath, "input %q, destination %q", inputFile, destFile)
	}
	in, err := filepath.Abs(inputFile)
	if err != nil {
		return err
	}
	dest, err := filepath.Abs(destFile)
	if err != nil {
		return err
	}
	if in == dest {
		return core.WrapConfigError(ErrSamePath, "%s", inputFile)
	}
	return nil
}
