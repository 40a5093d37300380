package jobfile

import (
	"bytes"
	"fmt"
	"strconv"
)

// maxLengthDigits bounds the length prefix so a corrupt file cannot
// overflow the integer conversion.
const maxLengthDigits = 12

func appendField(dst []byte, value string) []byte {
	dst = strconv.AppendInt(dst, int64(len(value)), 10)
	dst = append(dst, ':')
	dst = append(dst, value...)
	return append(dst, ',')
}

// splitFields parses data into its netstring fields. Any trailing garbage
// or truncated field is an error.
func splitFields(data []byte) ([]string, error) {
	var fields []string
	for offset := 0; offset < len(data); {
		colon := bytes.IndexByte(data[offset:], ':')
		if colon <= 0 || colon > maxLengthDigits {
			return nil, fmt.Errorf("%w: missing length prefix at byte %d", ErrMalformed, offset)
		}
		prefix := data[offset : offset+colon]
		for _, c := range prefix {
			if c < '0' || c > '9' {
				return nil, fmt.Errorf("%w: invalid length prefix %q at byte %d", ErrMalformed, prefix, offset)
			}
		}
		size, err := strconv.Atoi(string(prefix))
		if err != nil {
			return nil, fmt.Errorf("%w: length prefix %q: %v", ErrMalformed, prefix, err)
		}
		start := offset + colon + 1
		end := start + size
		if end >= len(data) || end < start {
			return nil, fmt.Errorf("%w: field at byte %d is truncated", ErrMalformed, offset)
		}
		if data[end] != ',' {
			return nil, fmt.Errorf("%w: field at byte %d lacks terminator", ErrMalformed, offset)
		}
		fields = append(fields, string(data[start:end]))
		offset = end + 1
	}
	return fields, nil
}
