package apierr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/buger/jsonparser"
)

// snippetLimit is how much of an unparseable body ends up in a message.
const snippetLimit = 100

// detailKeys are probed in order on object bodies.
var detailKeys = []string{"message", "error", "text"}

var errUnparseableBody = errors.New("unparseable body")

// Normalize converts any failure into one deterministic message of the form
// "<category> during <context>: <detail>". It never panics and always
// returns a non-empty string.
func Normalize(failure any, context string) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprintf("Unknown error during %s: %v", context, r)
		}
	}()

	switch f := failure.(type) {
	case nil:
		return fmt.Sprintf("Unknown error occurred during %s.", context)
	case error:
		return normalizeError(f, context)
	default:
		return fmt.Sprintf("Unknown error during %s: %v", context, f)
	}
}

func normalizeError(err error, label string) string {
	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) {
		return refreshErr.Message
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return fmt.Sprintf("API Error (%d) during %s: %s", respErr.Status, label, respErr.detail())
	}

	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return fmt.Sprintf("API Error (%d) during %s: Failed to parse response body. Raw: %s",
			malformed.Status, label, snippet(string(malformed.Body)))
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return fmt.Sprintf("API Error during %s: %s", label, ErrNoResponse.Error())
	}

	return fmt.Sprintf("Error during %s: %s", label, err.Error())
}

// detail runs the extraction chain over the response body:
// structured field, plain text, status phrase, synthesized message.
// An extraction failure degrades to a truncated raw snippet.
func (e *ResponseError) detail() string {
	text, err := extractDetail(e.Body)
	if err != nil {
		return "Failed to parse error response body. Raw: " + snippet(rawString(e.Body))
	}
	if text != "" {
		return text
	}
	if e.StatusText != "" {
		return e.StatusText
	}
	return fmt.Sprintf("Status %d received with no useful error details in body.", e.Status)
}

// extractDetail returns the best detail text for body, "" when the body
// carries nothing useful, or an error when the body cannot be interpreted.
func extractDetail(body any) (string, error) {
	switch b := body.(type) {
	case nil:
		return "", nil
	case []byte:
		return detailFromText(b)
	case json.RawMessage:
		return detailFromText(b)
	case string:
		return detailFromText([]byte(b))
	case map[string]any:
		return detailFromObject(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return "", err
		}
		return detailFromText(raw)
	}
}

// detailFromText handles raw body bytes: plain text (HTML included) is used
// verbatim, JSON objects are probed for detail fields, other JSON values are
// returned in compact form.
func detailFromText(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return string(trimmed), nil
	}
	if !json.Valid(trimmed) {
		return "", errUnparseableBody
	}

	if trimmed[0] == '{' {
		for _, key := range detailKeys {
			value, dataType, _, err := jsonparser.Get(trimmed, key)
			if err != nil {
				continue
			}
			switch dataType {
			case jsonparser.String:
				if s, err := jsonparser.ParseString(value); err == nil && s != "" {
					return s, nil
				}
			case jsonparser.Null, jsonparser.NotExist:
			default:
				return string(value), nil
			}
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func detailFromObject(obj map[string]any) (string, error) {
	for _, key := range detailKeys {
		switch v := obj[key].(type) {
		case nil:
		case string:
			if v != "" {
				return v, nil
			}
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func rawString(body any) string {
	switch b := body.(type) {
	case []byte:
		return string(b)
	case json.RawMessage:
		return string(b)
	case string:
		return b
	default:
		return fmt.Sprintf("%v", b)
	}
}

// snippet truncates s to snippetLimit runes, marking the cut.
func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:snippetLimit]) + "..."
}
