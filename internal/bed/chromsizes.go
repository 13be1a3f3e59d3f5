package bed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

// ChromSizes maps a chromosome name to its length in bases.
type ChromSizes map[string]int64

// LoadChromSizes reads a genome file (chrom<TAB>size per line).
func LoadChromSizes(path string) (ChromSizes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genome file: %w", err)
	}
	defer f.Close()

	return ReadChromSizes(f)
}

// ReadChromSizes parses chromosome sizes. Columns after the second are
// ignored, as in UCSC chrom.sizes files.
func ReadChromSizes(r io.Reader) (ChromSizes, error) {
	reader, closer, err := gtf.OpenReader(r)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	sizes := make(ChromSizes)
	scanner := bufio.NewScanner(reader)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("genome file line %d: expected chrom and size, got %q", lineNum, line)
		}
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("genome file line %d: invalid size %q", lineNum, fields[1])
		}
		sizes[fields[0]] = size
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan genome file: %w", err)
	}
	return sizes, nil
}
