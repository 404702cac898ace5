package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// scanTable calls fn with the fields of every data line of a whitespace
// separated table. Blank lines and '#' comments are skipped, as is a leading
// header line whose first field is not a number. line is 1-based.
func scanTable(r io.Reader, name string, fn func(line int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line, data := 0, 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if data == 0 {
			if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
				data++ // header
				continue
			}
		}
		data++
		if err := fn(line, fields); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

// row decodes the fields of one line, remembering the first failure.
type row struct {
	name   string
	line   int
	fields []string
	err    error
}

func newRow(name string, line int, fields []string, want int) *row {
	r := &row{name: name, line: line, fields: fields}
	if len(fields) < want {
		r.err = fmt.Errorf("%w: %s line %d: want %d fields, got %d", ErrMalformedRecord, name, line, want, len(fields))
	}
	return r
}

func (r *row) int(i int) int {
	if r.err != nil {
		return 0
	}
	v, err := strconv.Atoi(r.fields[i])
	if err != nil {
		r.err = fmt.Errorf("%w: %s line %d field %d: %q is not an integer", ErrMalformedRecord, r.name, r.line, i+1, r.fields[i])
	}
	return v
}

func (r *row) float(i int) float64 {
	if r.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(r.fields[i], 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s line %d field %d: %q is not a number", ErrMalformedRecord, r.name, r.line, i+1, r.fields[i])
	}
	return v
}

func (r *row) str(i int) string {
	if r.err != nil {
		return ""
	}
	return r.fields[i]
}

// sex accepts M/F or 0/1.
func (r *row) sex(i int) int {
	if r.err != nil {
		return 0
	}
	switch strings.ToUpper(r.fields[i]) {
	case "M", "0":
		return 0
	case "F", "1":
		return 1
	}
	r.err = fmt.Errorf("%w: %s line %d field %d: unknown sex %q", ErrMalformedRecord, r.name, r.line, i+1, r.fields[i])
	return 0
}
