package parser

import (
	"regexp"
	"strings"
)

// StripComments blanks out comments in source text. Line breaks are kept so
// line numbers still line up with the original. Handles // and /* */ outside
// string literals, and # when it starts a line.
func StripComments(text string) string {
	var (
		b       strings.Builder
		quote   byte
		block   bool
		lineBeg = true
	)
	b.Grow(len(text))

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if ch == '\n' {
			b.WriteByte(ch)
			lineBeg = true
			// a backtick string may span lines, other quotes may not
			if quote != '`' {
				quote = 0
			}
			continue
		}

		switch {
		case block:
			if ch == '*' && i+1 < len(text) && text[i+1] == '/' {
				block = false
				i++
			}
			continue

		case quote != 0:
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(text) && text[i+1] != '\n' {
				i++
				b.WriteByte(text[i])
			} else if ch == quote {
				quote = 0
			}
			continue
		}

		if lineBeg && ch == '#' {
			i = skipToLineEnd(text, i)
			continue
		}
		if ch != ' ' && ch != '\t' {
			lineBeg = false
		}

		switch {
		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch
			b.WriteByte(ch)
		case ch == '/' && i+1 < len(text) && text[i+1] == '/':
			i = skipToLineEnd(text, i)
		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			block = true
			i++
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// skipToLineEnd returns the index of the last byte before the next newline
func skipToLineEnd(text string, i int) int {
	if n := strings.IndexByte(text[i:], '\n'); n >= 0 {
		return i + n - 1
	}
	return len(text) - 1
}

var (
	blockCommentStart = regexp.MustCompile(`^\s*/\*`)
	docLinePrefix     = regexp.MustCompile(`^\s*\*?\s?`)
	docTagPattern     = regexp.MustCompile(`^@(\w+)\s*(.*)$`)
)

// DocComments collects /* */ blocks that start a line. The raw comment text
// is keyed by the 0-indexed line that follows the closing */.
func DocComments(lines []string) map[int]string {
	comments := make(map[int]string)

	var (
		current strings.Builder
		open    bool
	)
	for i, line := range lines {
		if !open {
			loc := blockCommentStart.FindStringIndex(line)
			if loc == nil {
				continue
			}
			current.Reset()
			current.WriteString(line)
			if strings.Contains(line[loc[1]:], "*/") {
				comments[i+1] = current.String()
				continue
			}
			open = true
			continue
		}

		current.WriteByte('\n')
		current.WriteString(line)
		if strings.Contains(line, "*/") {
			comments[i+1] = current.String()
			open = false
		}
	}
	return comments
}

// Documentation extracts the human description from a raw doc comment: the
// text before the first @tag, else the @description or @desc tag, else the
// comment itself.
func Documentation(raw string) string {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "/**")
	body = strings.TrimPrefix(body, "/*")
	body = strings.TrimSuffix(body, "*/")

	var (
		desc    []string
		tags    = make(map[string]string)
		inTags  bool
		lastTag string
	)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(docLinePrefix.ReplaceAllString(line, ""))
		if m := docTagPattern.FindStringSubmatch(line); m != nil {
			inTags = true
			lastTag = strings.ToLower(m[1])
			tags[lastTag] = m[2]
			continue
		}
		if line == "" {
			continue
		}
		if inTags {
			tags[lastTag] = strings.TrimSpace(tags[lastTag] + " " + line)
			continue
		}
		desc = append(desc, line)
	}

	if len(desc) > 0 {
		return strings.Join(desc, "\n")
	}
	if d := tags["description"]; d != "" {
		return d
	}
	if d := tags["desc"]; d != "" {
		return d
	}
	return raw
}
