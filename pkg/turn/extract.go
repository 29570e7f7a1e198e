package turn

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoStructuredData is returned by Extract when no JSON value could be
// recovered from the oracle text.
var ErrNoStructuredData = errors.New("no structured data in oracle text")

// Extract recovers a JSON value from raw oracle text. The whole text is
// tried first; failing that, the span from the first '{' to the last '}'.
// A brace inside a string value that happens to sit outside the payload
// defeats the second pass, and the caller gets ErrNoStructuredData.
func Extract(raw string) (any, error) {
	var whole any
	if err := json.Unmarshal([]byte(raw), &whole); err == nil {
		return whole, nil
	}

	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end <= start {
		return nil, ErrNoStructuredData
	}

	var inner any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &inner); err != nil {
		return nil, ErrNoStructuredData
	}
	return inner, nil
}
