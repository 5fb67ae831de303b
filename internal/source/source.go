package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pothiers/cadence/internal/model"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// maxLineSize bounds the text kept from a single input line. Longer lines
// are read to the end and reported as truncated.
const maxLineSize = 1024 * 1024

// Source reads every line of a fixed list of inputs, in order.
type Source struct {
	paths []string
	stdin io.Reader
}

// New creates a Source over the given file paths.
func New(paths []string) *Source {
	return &Source{paths: paths, stdin: os.Stdin}
}

// Paths returns the inputs in read order.
func (s *Source) Paths() []string {
	return s.paths
}

// Each calls fn for every line of every input. Each file is opened once and
// closed before the next one is read, whether or not fn fails.
func (s *Source) Each(ctx context.Context, fn func(model.RawLine) error) error {
	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.readFile(ctx, path, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) readFile(ctx context.Context, path string, fn func(model.RawLine) error) error {
	if path == Stdin {
		return scan(ctx, s.stdin, path, fn)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()
	return scan(ctx, f, path, fn)
}

// scan emits each line of r; the context is checked every 4096 lines.
func scan(ctx context.Context, r io.Reader, path string, fn func(model.RawLine) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	num := 0
	for {
		text, truncated, err := readLine(br)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read error on %s: %w", path, err)
		}
		num++
		if num%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := model.RawLine{Text: string(text), Source: path, Num: num, Truncated: truncated}
		if err := fn(line); err != nil {
			return err
		}
	}
}

// readLine returns the next line without its terminator. Bytes past
// maxLineSize are discarded.
func readLine(br *bufio.Reader) (line []byte, truncated bool, err error) {
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && (len(line) > 0 || truncated) {
				return line, truncated, nil
			}
			return line, truncated, err
		}
		if room := maxLineSize - len(line); len(chunk) > room {
			chunk = chunk[:room]
			truncated = true
		}
		line = append(line, chunk...)
		if !isPrefix {
			return line, truncated, nil
		}
	}
}
