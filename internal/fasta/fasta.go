// Package fasta reads, writes and rewrites sequences in multi-FASTA files.
package fasta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

// LineWidth is the number of bases written per sequence line.
const LineWidth = 60

// ErrNotFound is returned by Rewrite when no record has the given name.
var ErrNotFound = errors.New("sequence not found")

// Loader loads every sequence of a FASTA file into memory.
type Loader struct {
	path      string
	sequences map[string]string // sequence name -> sequence
}

// NewLoader creates a new FASTA loader.
func NewLoader(path string) *Loader {
	return &Loader{
		path:      path,
		sequences: make(map[string]string),
	}
}

// Load parses the FASTA file and stores sequences indexed by name.
// Gzipped files are detected from their magic bytes.
func (l *Loader) Load() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	return scanRecords(f, func(name, seq string) bool {
		l.sequences[name] = seq
		return true
	})
}

// GetSequence returns the sequence with the given name.
func (l *Loader) GetSequence(name string) (string, bool) {
	seq, ok := l.sequences[name]
	return seq, ok
}

// SequenceCount returns the number of loaded sequences.
func (l *Loader) SequenceCount() int {
	return len(l.sequences)
}

// GetSequence scans r for the record with the given name and returns its
// sequence with line breaks removed. The name of a record is the first
// whitespace-separated token of its header.
func GetSequence(r io.Reader, name string) (string, bool, error) {
	var found string
	var ok bool
	err := scanRecords(r, func(n, seq string) bool {
		if n == name {
			found, ok = seq, true
			return false
		}
		return true
	})
	if err != nil {
		return "", false, err
	}
	return found, ok, nil
}

// scanRecords calls fn for each record until fn returns false.
func scanRecords(r io.Reader, fn func(name, seq string) bool) error {
	reader, closer, err := gtf.OpenReader(r)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	scanner := newScanner(reader)
	var current string
	var inRecord bool
	var seq strings.Builder

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.HasPrefix(line, ">") {
			if inRecord && !fn(current, seq.String()) {
				return nil
			}
			current = headerName(line)
			inRecord = true
			seq.Reset()
			continue
		}
		if inRecord {
			seq.WriteString(strings.TrimSpace(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan FASTA: %w", err)
	}

	if inRecord {
		fn(current, seq.String())
	}
	return nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// Chromosome FASTA files may be written unwrapped
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 512*1024*1024)
	return scanner
}

// headerName extracts the sequence name from a header line.
// ">2 dna:chromosome chromosome:GRCm38:2:1:182113224:1 REF" names "2".
func headerName(header string) string {
	fields := strings.Fields(strings.TrimPrefix(header, ">"))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Write writes one FASTA record, wrapping the sequence at LineWidth.
func Write(w io.Writer, name, seq string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(">" + name + "\n"); err != nil {
		return err
	}
	if err := writeWrapped(bw, seq); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteFile writes one FASTA record to path.
func WriteFile(path, name, seq string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create FASTA file: %w", err)
	}
	if err := Write(f, name, seq); err != nil {
		f.Close()
		return fmt.Errorf("write FASTA file: %w", err)
	}
	return f.Close()
}

func writeWrapped(bw *bufio.Writer, seq string) error {
	for i := 0; i < len(seq); i += LineWidth {
		end := min(i+LineWidth, len(seq))
		if _, err := bw.WriteString(seq[i:end] + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Rewrite copies a multi-FASTA stream from r to w, replacing the sequence
// of the named record and keeping its header line. Other records are
// copied unchanged. ErrNotFound is returned, after the full copy, when no
// record has that name.
func Rewrite(r io.Reader, w io.Writer, name, seq string) error {
	reader, closer, err := gtf.OpenReader(r)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	scanner := newScanner(reader)
	bw := bufio.NewWriter(w)
	replacing, found := false, false

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			replacing = headerName(line) == name
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return err
			}
			if replacing {
				found = true
				if err := writeWrapped(bw, seq); err != nil {
					return err
				}
			}
			continue
		}
		if replacing {
			continue
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan FASTA: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return nil
}
