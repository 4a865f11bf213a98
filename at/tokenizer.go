package at

import (
	"bufio"
	"bytes"
	"strings"
)

// NewSplitter returns a bufio.SplitFunc that tokenizes modem output on the
// given line terminator. It also recognizes the SMS input prompt ("> "),
// which is not terminated.
//
// When atEOF is set, any remaining data is returned as the final token.
func NewSplitter(term string) bufio.SplitFunc {
	sep := []byte(term)
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}

		if bytes.HasPrefix(data, []byte(Prompt)) {
			return len(Prompt), data[0:len(Prompt)], nil
		}

		if i := bytes.Index(data, sep); i >= 0 {
			return i + len(sep), data[0:i], nil
		}

		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

// Splitter tokenizes CRLF-terminated modem output.
var Splitter = NewSplitter(CRLF)

// Lines splits captured modem output into its non-empty lines.
func Lines(captured []byte, term string) []string {
	scanner := bufio.NewScanner(bytes.NewReader(captured))
	scanner.Buffer(make([]byte, 0, len(captured)+1), len(captured)+1)
	scanner.Split(NewSplitter(term))

	var lines []string
	for scanner.Scan() {
		if token := scanner.Text(); token != "" {
			lines = append(lines, token)
		}
	}
	return lines
}

// Classify identifies the nature of the modem output
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	switch line {
	case OK, ERROR, NoCarrier, NoDialtone, Busy, NoAnswer:
		return TypeFinal
	}

	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return TypeFinal
	case strings.HasPrefix(line, UrcNewMsg), strings.HasPrefix(line, UrcMessageReport),
		strings.HasPrefix(line, UrcRegistration), line == UrcCall:
		return TypeURC
	default:
		return TypeData
	}
}

// IsError reports whether line is a final result code other than OK.
func IsError(line string) bool {
	return Classify(line) == TypeFinal && line != OK
}
