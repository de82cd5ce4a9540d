// Package jsonx pulls a JSON object out of free-form model output.
package jsonx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseError reports why no JSON object could be recovered from a text.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "parse JSON from text: " + e.Reason }

var fenced = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Extract returns the first JSON object found in text. A fenced code block
// with valid JSON takes precedence; otherwise the first balanced {...}
// that parses is used.
func Extract(text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Reason: "empty text"}
	}

	for _, m := range fenced.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") && json.Valid([]byte(body)) {
			return json.RawMessage(body), nil
		}
	}

	sawOpen := false
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		sawOpen = true
		end := matchBrace(text, i)
		if end < 0 {
			continue
		}
		candidate := text[i : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}
	if sawOpen {
		return nil, &ParseError{Reason: "no complete JSON object (malformed or truncated)"}
	}
	return nil, &ParseError{Reason: "no JSON object in text"}
}

// matchBrace returns the index of the brace closing the one at start, or
// -1 when the text ends first. Braces inside string literals are ignored.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Document is an extracted object read through gjson, so numeric fields
// sent as strings still read as numbers.
type Document struct {
	raw json.RawMessage
}

// Parse extracts the first object from text into a Document.
func Parse(text string) (Document, error) {
	raw, err := Extract(text)
	if err != nil {
		return Document{}, err
	}
	return Document{raw: raw}, nil
}

// NewDocument wraps an already valid JSON object.
func NewDocument(raw json.RawMessage) (Document, error) {
	if !json.Valid(raw) {
		return Document{}, &ParseError{Reason: "invalid JSON"}
	}
	return Document{raw: raw}, nil
}

func (d Document) Get(path string) gjson.Result { return gjson.GetBytes(d.raw, path) }

func (d Document) String(path string) string { return d.Get(path).String() }

func (d Document) Float(path string) float64 { return d.Get(path).Float() }

func (d Document) Raw() json.RawMessage { return d.raw }

// Decode unmarshals the document into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	if len(d.raw) == 0 {
		return []byte("null"), nil
	}
	return d.raw, nil
}
