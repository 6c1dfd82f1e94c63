package scripting

import "strings"

// TokenHandler rewrites the body found between one delimiter pair.
type TokenHandler func(content string) (string, error)

// TokenParser scans text for tokens delimited by an open/close pair,
// hands each body to a handler, and splices the result back in. A
// backslash escapes either delimiter; an open token with no close is
// passed through untouched.
type TokenParser struct {
	open    string
	close   string
	handler TokenHandler
}

// NewTokenParser builds a parser for one delimiter pair.
func NewTokenParser(open, close string, handler TokenHandler) *TokenParser {
	return &TokenParser{open: open, close: close, handler: handler}
}

// Parse rewrites every token in text and returns the result.
func (p *TokenParser) Parse(text string) (string, error) {
	start := strings.Index(text, p.open)
	if start == -1 {
		return text, nil
	}
	var out strings.Builder
	offset := 0
	for start > -1 {
		if start > 0 && text[start-1] == '\\' {
			// Escaped open token: drop the backslash, keep the token text.
			out.WriteString(text[offset : start-1])
			out.WriteString(p.open)
			offset = start + len(p.open)
		} else {
			var body strings.Builder
			out.WriteString(text[offset:start])
			offset = start + len(p.open)
			end := indexFrom(text, p.close, offset)
			for end > -1 {
				if end > offset && text[end-1] == '\\' {
					// Escaped close token inside the body.
					body.WriteString(text[offset : end-1])
					body.WriteString(p.close)
					offset = end + len(p.close)
					end = indexFrom(text, p.close, offset)
				} else {
					body.WriteString(text[offset:end])
					break
				}
			}
			if end == -1 {
				out.WriteString(text[start:])
				offset = len(text)
			} else {
				replaced, err := p.handler(body.String())
				if err != nil {
					return "", err
				}
				out.WriteString(replaced)
				offset = end + len(p.close)
			}
		}
		start = indexFrom(text, p.open, offset)
	}
	out.WriteString(text[offset:])
	return out.String(), nil
}

func indexFrom(s, substr string, from int) int {
	if from >= len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i == -1 {
		return -1
	}
	return from + i
}
