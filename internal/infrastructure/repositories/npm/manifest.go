package npm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

const (
	runtimeSection     = "dependencies"
	developmentSection = "devDependencies"
	caretPrefix        = "^"
)

var errNotAnObject = errors.New("manifest is not a JSON object")

type packageManifest struct {
	Dependencies    map[string]any `json:"dependencies"`
	DevDependencies map[string]any `json:"devDependencies"`
}

// parseManifest merges runtime and development dependencies into one mapping.
// A package declared in both takes the development value.
func parseManifest(content string) (repositories.ParseResult, error) {
	var manifest packageManifest
	if err := json.Unmarshal([]byte(content), &manifest); err != nil {
		return repositories.ParseResult{}, parseError(err)
	}

	result := repositories.ParseResult{Dependencies: make(map[string]string)}
	for _, section := range []map[string]any{manifest.Dependencies, manifest.DevDependencies} {
		for name, value := range section {
			constraint, ok := value.(string)
			if !ok {
				result.SkippedLines++
				continue
			}
			result.Dependencies[name] = constraint
		}
	}
	return result, nil
}

// span is a byte range of the original content holding a JSON string literal.
type span struct {
	start, end int
	value      string
}

// rewriteManifest sets "^latest" for every updated package found in either
// dependency section. Values are replaced in place, so key order, indentation and
// every other byte of the document stay as they were.
func rewriteManifest(content string, updates map[string]string) (string, error) {
	data := []byte(content)
	if !json.Valid(data) {
		var decoded any
		return "", parseError(json.Unmarshal(data, &decoded))
	}

	spans, err := collectSpans(data, updates)
	if err != nil {
		return "", parseError(err)
	}
	if len(spans) == 0 {
		return content, nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var out bytes.Buffer
	out.Grow(len(data))
	last := 0
	for _, s := range spans {
		encoded, marshalErr := json.Marshal(s.value)
		if marshalErr != nil {
			return "", fmt.Errorf("failed to encode version: %w", marshalErr)
		}
		out.Write(data[last:s.start])
		out.Write(encoded)
		last = s.end
	}
	out.Write(data[last:])

	return out.String(), nil
}

// collectSpans walks the top-level object and records the string values to replace
// inside the two dependency sections.
func collectSpans(data []byte, updates map[string]string) ([]span, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotAnObject
	}

	var spans []span
	for dec.More() {
		keyTok, keyErr := dec.Token()
		if keyErr != nil {
			return nil, keyErr
		}
		key, _ := keyTok.(string)

		if key != runtimeSection && key != developmentSection {
			if skipErr := skipValue(dec); skipErr != nil {
				return nil, skipErr
			}
			continue
		}

		sectionSpans, sectionErr := collectSectionSpans(dec, data, updates)
		if sectionErr != nil {
			return nil, sectionErr
		}
		spans = append(spans, sectionSpans...)
	}

	return spans, nil
}

func collectSectionSpans(dec *json.Decoder, data []byte, updates map[string]string) ([]span, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return nil, nil // scalar section, nothing to rewrite
	}
	if delim != '{' {
		return nil, skipRest(dec)
	}

	var spans []span
	for dec.More() {
		keyTok, keyErr := dec.Token()
		if keyErr != nil {
			return nil, keyErr
		}
		name, _ := keyTok.(string)
		afterKey := int(dec.InputOffset())

		if latest, ok := updates[name]; ok {
			if start, end, found := stringLiteralAfterColon(data, afterKey); found {
				spans = append(spans, span{start: start, end: end, value: caretPrefix + latest})
			}
		}

		if skipErr := skipValue(dec); skipErr != nil {
			return nil, skipErr
		}
	}

	// closing '}'
	if _, closeErr := dec.Token(); closeErr != nil {
		return nil, closeErr
	}
	return spans, nil
}

// stringLiteralAfterColon locates the string literal following the ':' that comes
// after offset. It returns found=false when the value is not a string.
func stringLiteralAfterColon(data []byte, offset int) (int, int, bool) {
	i := skipSpace(data, offset)
	if i >= len(data) || data[i] != ':' {
		return 0, 0, false
	}
	i = skipSpace(data, i+1)
	if i >= len(data) || data[i] != '"' {
		return 0, 0, false
	}

	for j := i + 1; j < len(data); j++ {
		switch data[j] {
		case '\\':
			j++
		case '"':
			return i, j + 1, true
		}
	}
	return 0, 0, false
}

func skipSpace(data []byte, i int) int {
	for i < len(data) {
		switch data[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// skipValue consumes one complete JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); ok && (delim == '{' || delim == '[') {
		return skipRest(dec)
	}
	return nil
}

// skipRest consumes tokens until the container just opened is closed.
func skipRest(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

func parseError(cause error) error {
	return entities.NewError(entities.KindManifestParseError, "invalid "+manifestFilename, cause)
}
