package sources

import (
	"slices"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// normalizeCRLF заменяет все \r\n на \n, не трогая одиночные \r.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if !slices.Contains(content, '\r') {
		return content, false
	}
	out := make([]byte, 0, len(content))
	changed := false
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			out = append(out, '\n')
			i++
			changed = true
			continue
		}
		out = append(out, content[i])
	}
	return out, changed
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}
	return content, false
}

// decodeLatin1 re-encodes content as UTF-8 when it is not valid UTF-8.
// Source trees of embedded projects still carry ISO-8859-1 comments.
func decodeLatin1(content []byte) ([]byte, bool, error) {
	if utf8.Valid(content) {
		return content, false, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func buildLineIndex(content []byte) []int {
	out := make([]int, 0, len(content)/32)
	for i, b := range content {
		if b == '\n' {
			out = append(out, i)
		}
	}
	return out
}
