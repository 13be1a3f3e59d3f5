package gtf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
)

// Loader reads GTF records from a file or stream.
type Loader struct {
	path    string
	lenient bool
	workers int
	logger  *zap.Logger
	skipped int
}

// NewLoader creates a loader for the given path. Use "-" for stdin.
// Gzipped input is detected from its magic bytes.
func NewLoader(path string) *Loader {
	return &Loader{
		path:    path,
		workers: 1,
		logger:  zap.NewNop(),
	}
}

// SetLenient switches from abort-on-first-error to skip-and-report.
func (l *Loader) SetLenient(lenient bool) {
	l.lenient = lenient
}

// SetWorkers sets the number of line-parsing workers.
// If n is 0, runtime.NumCPU() is used. 1 parses sequentially.
func (l *Loader) SetWorkers(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	l.workers = n
}

// SetLogger sets the logger for skipped-line warnings.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Skipped returns the number of lines dropped by the last lenient load.
func (l *Loader) Skipped() int {
	return l.skipped
}

// Load reads all records from the loader's path.
func (l *Loader) Load() (*Table, error) {
	if l.path == "-" {
		return l.Read(os.Stdin)
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	return l.Read(f)
}

// Read reads all records from r.
func (l *Loader) Read(r io.Reader) (*Table, error) {
	reader, closer, err := OpenReader(r)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	l.skipped = 0
	if l.workers > 1 {
		return l.readParallel(reader)
	}
	return l.readSequential(reader)
}

// Load parses GTF lines in strict mode. Comment and blank lines are
// skipped; any other malformed line aborts the load.
func Load(lines []string) (*Table, error) {
	t := &Table{Records: make([]Record, 0, len(lines))}
	for i, line := range lines {
		if skipLine(line) {
			continue
		}
		rec, err := parseLine(line, i+1)
		if err != nil {
			return nil, err
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// OpenReader wraps r with a gzip decompressor when the stream starts with
// the gzip magic bytes. The returned closer is nil for plain input.
func OpenReader(r io.Reader) (io.Reader, io.Closer, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	// Check for gzip magic number (0x1f, 0x8b)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip reader: %w", err)
		}
		return gz, gz, nil
	}
	return br, nil, nil
}

func (l *Loader) readSequential(reader io.Reader) (*Table, error) {
	scanner := newScanner(reader)
	t := &Table{}

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if skipLine(line) {
			continue
		}

		rec, err := parseLine(line, lineNum)
		if err != nil {
			if err := l.reject(err, lineNum); err != nil {
				return nil, err
			}
			continue
		}
		t.Records = append(t.Records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}
	return t, nil
}

func (l *Loader) readParallel(reader io.Reader) (*Table, error) {
	items := make(chan lineItem, 2*l.workers)
	var scanErr error

	go func() {
		defer close(items)
		scanner := newScanner(reader)
		seq, lineNum := 0, 0
		for scanner.Scan() {
			lineNum++
			line := strings.TrimSuffix(scanner.Text(), "\r")
			if skipLine(line) {
				continue
			}
			items <- lineItem{Seq: seq, Line: lineNum, Text: line}
			seq++
		}
		if err := scanner.Err(); err != nil {
			scanErr = fmt.Errorf("scan GTF: %w", err)
		}
	}()

	t := &Table{}
	results := parallelParse(items, l.workers)
	if err := orderedCollect(results, func(r lineResult) error {
		if r.Err != nil {
			return l.reject(r.Err, r.Line)
		}
		t.Records = append(t.Records, r.Record)
		return nil
	}); err != nil {
		return nil, err
	}

	if scanErr != nil {
		return nil, scanErr
	}
	return t, nil
}

// reject handles a malformed line: in lenient mode it is logged and
// counted, otherwise the error is returned.
func (l *Loader) reject(err error, lineNum int) error {
	if !l.lenient {
		return err
	}
	l.skipped++
	l.logger.Warn("skipping malformed GTF line",
		zap.Int("line", lineNum),
		zap.Error(err))
	return nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long attribute columns
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)
	return scanner
}

func skipLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}

// ParseLine parses a single GTF line.
func ParseLine(line string) (Record, error) {
	return parseLine(line, 0)
}

func parseLine(line string, lineNum int) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 9 {
		return Record{}, &FormatError{Line: lineNum, Fields: len(fields)}
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Record{}, &IntervalError{Line: lineNum, Start: fields[3], End: fields[4], Err: fmt.Errorf("parse start: %w", err)}
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Record{}, &IntervalError{Line: lineNum, Start: fields[3], End: fields[4], Err: fmt.Errorf("parse end: %w", err)}
	}
	if start > end {
		return Record{}, &IntervalError{Line: lineNum, Start: fields[3], End: fields[4]}
	}

	switch fields[6] {
	case "+", "-", ".":
	default:
		return Record{}, &FormatError{Line: lineNum, Fields: len(fields), Msg: fmt.Sprintf("invalid strand %q", fields[6])}
	}

	return Record{
		Seqname:    fields[0],
		Source:     fields[1],
		Feature:    fields[2],
		Start:      start,
		End:        end,
		Score:      fields[5],
		Strand:     fields[6],
		Frame:      fields[7],
		Attributes: fields[8],
	}, nil
}
