package datalog

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Header is written once at the top of every new log.
const Header = "Converge\n" +
	"Tempreature data from precision refrigerator measured in degreese celcius over a prolonged cooling phase.\n" +
	"                     Hysteretic_cov\n" +
	"                     Start room temperature = 23.62"

// DefaultPath is the log file name used when none is configured.
const DefaultPath = "cooling_data_hyst.txt"

// Logger appends readings to one log file. The header flag belongs to the
// Logger, so two Loggers on different paths are independent.
//
// A Logger is not safe for concurrent use.
type Logger struct {
	path          string
	headerWritten bool
}

// New returns a Logger for path. Nothing is written until AppendReading.
func New(path string) *Logger {
	return &Logger{path: path}
}

// Path returns the file the Logger writes to.
func (l *Logger) Path() string { return l.path }

// AppendReading writes celsius as a new line. The first call creates or
// truncates the file and writes Header before the value. Errors are
// returned as-is for the caller to handle; nothing is retried.
func (l *Logger) AppendReading(celsius float64) error {
	flags := os.O_WRONLY | os.O_APPEND
	if !l.headerWritten {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(l.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("datalog: open %q: %w", l.path, err)
	}

	line := fmt.Sprintf("\n%f", celsius)
	if !l.headerWritten {
		line = Header + line
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("datalog: write %q: %w", l.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("datalog: close %q: %w", l.path, err)
	}
	l.headerWritten = true
	return nil
}

// ReadFile parses a log written by Logger and returns its readings in order.
// Lines before the first numeric line are treated as header; blank lines
// are ignored. A non-numeric line after the first reading is an error.
func ReadFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("datalog: open %q: %w", path, err)
	}
	defer f.Close()

	var out []float64
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			if len(out) == 0 {
				continue // header
			}
			return nil, fmt.Errorf("datalog: %s:%d: %w", path, lineNo, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("datalog: read %q: %w", path, err)
	}
	return out, nil
}
