package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/golang/glog"
)

// payload is the recovered {filename, source} pair. Filename may be empty
// until sanitizeFilename substitutes the default.
type payload struct {
	Filename string
	Source   string
}

// structuralThreshold: a body with fewer quotes/braces than this was almost
// certainly pasted as bare source, not as a broken JSON document.
const structuralThreshold = 3

var (
	codeFieldPattern     = regexp.MustCompile(`"code"\s*:\s*"((?:[^"\\]|\\[\s\S])*)"`)
	filenameFieldPattern = regexp.MustCompile(`"filename"\s*:\s*"((?:[^"\\]|\\[\s\S])*)"`)

	escapeDecoder = strings.NewReplacer(`\r\n`, "\n", `\n`, "\n", `\t`, "\t", `\"`, `"`)
)

// RecoverPayload turns raw, possibly malformed request bytes into a compile
// payload. Decoders run in order; the first to succeed wins. Upstream
// clients mangle bodies in recurring ways (logging prefixes glued before the
// JSON, double-escaped code fields, bare source pasted as the whole body),
// so each decoder targets one observed failure mode.
func RecoverPayload(body []byte, contentType string) (*payload, *JobError) {
	decoders := []func([]byte, string) (*payload, bool){
		decodeStrict,
		decodeAfterLeadingNoise,
		decodeTolerant,
		decodeLiteralBody,
	}
	var recovered *payload
	for _, decode := range decoders {
		if result, ok := decode(body, contentType); ok {
			recovered = result
			break
		}
	}
	if recovered == nil {
		glog.V(2).Infof("payload recovery failed for %d byte body", len(body))
		return nil, newJobError(ErrMalformedRequest, "could not extract code")
	}
	// Some clients escape twice; one extra decode pass is idempotent on
	// already-clean source.
	if containsLiteralEscapes(recovered.Source) {
		recovered.Source = escapeDecoder.Replace(recovered.Source)
	}
	if strings.TrimSpace(recovered.Source) == "" {
		return nil, newJobError(ErrEmptySource, "source code is empty")
	}
	recovered.Filename = sanitizeFilename(recovered.Filename)
	return recovered, nil
}

// decodeStrict accepts a well-formed JSON object with a string-valued code
// field. An empty code string is a valid extraction here; blankness is
// rejected by the post-condition so the caller sees EmptySource, not a
// fallback decoder's guess.
func decodeStrict(body []byte, _ string) (*payload, bool) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, false
	}
	code, ok := fields["code"].(string)
	if !ok {
		return nil, false
	}
	filename, _ := fields["filename"].(string)
	return &payload{Filename: filename, Source: code}, true
}

// decodeAfterLeadingNoise discards everything before the first opening brace
// and retries the strict parse. Proxies and log shippers prepend text to
// otherwise valid bodies.
func decodeAfterLeadingNoise(body []byte, contentType string) (*payload, bool) {
	start := bytes.IndexByte(body, '{')
	if start <= 0 {
		return nil, false
	}
	return decodeStrict(body[start:], contentType)
}

// decodeTolerant locates "code": "..." by pattern, allowing escaped quotes
// and embedded newlines inside the value, then decodes the escape sequences.
// The filename field is extracted independently the same way.
func decodeTolerant(body []byte, _ string) (*payload, bool) {
	match := codeFieldPattern.FindSubmatch(body)
	if match == nil {
		return nil, false
	}
	result := &payload{Source: escapeDecoder.Replace(string(match[1]))}
	if nameMatch := filenameFieldPattern.FindSubmatch(body); nameMatch != nil {
		result.Filename = escapeDecoder.Replace(string(nameMatch[1]))
	}
	return result, true
}

// decodeLiteralBody treats the whole body as source text when it plainly is
// not a structured document, or when the caller said so outright.
func decodeLiteralBody(body []byte, contentType string) (*payload, bool) {
	if strings.HasPrefix(contentType, "text/plain") {
		return &payload{Source: string(body)}, true
	}
	structural := bytes.Count(body, []byte(`"`)) +
		bytes.Count(body, []byte("{")) +
		bytes.Count(body, []byte("}"))
	if structural < structuralThreshold {
		return &payload{Source: string(body)}, true
	}
	return nil, false
}

func containsLiteralEscapes(source string) bool {
	return strings.Contains(source, `\n`) ||
		strings.Contains(source, `\t`) ||
		strings.Contains(source, `\"`)
}

// sanitizeFilename strips any directory components so a hostile filename
// cannot escape the sandbox, and substitutes the default for degenerate
// names.
func sanitizeFilename(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == string(filepath.Separator) || base == ".." {
		return defaultFilename
	}
	return base
}
