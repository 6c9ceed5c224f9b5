package cloud

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// extractText resolves a dotted path such as "results[0].alternatives[0].text"
// and reports whether it named a string.
func extractText(body []byte, path string) (string, bool) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return "", false
	}

	cur := root
	for _, part := range strings.Split(path, ".") {
		key, idxs, err := splitIndexes(part)
		if err != nil {
			return "", false
		}
		if key != "" {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			if cur, ok = m[key]; !ok {
				return "", false
			}
		}
		for _, idx := range idxs {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return "", false
			}
			cur = arr[idx]
		}
	}

	s, ok := cur.(string)
	return s, ok
}

// splitIndexes parses "key[1][2]" into "key" and [1 2].
func splitIndexes(part string) (string, []int, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		return part, nil, nil
	}

	key := part[:open]
	var idxs []int
	rest := part[open:]
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("unexpected %q in path segment %q", rest, part)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, fmt.Errorf("unterminated index in path segment %q", part)
		}
		idx, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, fmt.Errorf("bad index in path segment %q: %w", part, err)
		}
		idxs = append(idxs, idx)
		rest = rest[end+1:]
	}
	return key, idxs, nil
}
