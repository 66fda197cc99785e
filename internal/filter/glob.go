package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// glob is an rsync-style pattern compiled to a regular expression.
//
//	*      any run of characters except '/'
//	**     any run of characters including '/'
//	?      one character except '/'
//	[...]  character class, [!...] negated
//	/x     anchored at the root of the tree
//	x/     matches directories only
type glob struct {
	re       *regexp.Regexp
	source   string
	anchored bool
	dirOnly  bool
}

func compileGlob(pattern string) (*glob, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("empty filter pattern")
	}
	g := &glob{source: pattern}

	body := pattern
	if strings.HasSuffix(body, "/") {
		g.dirOnly = true
		body = strings.TrimSuffix(body, "/")
	}
	if strings.HasPrefix(body, "/") {
		g.anchored = true
		body = strings.TrimPrefix(body, "/")
	} else if strings.Contains(body, "/") {
		g.anchored = true
	}

	expr := translate(body)
	if g.anchored {
		expr = "^" + expr + "$"
	} else {
		expr = "(^|/)" + expr + "$"
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	g.re = re
	return g, nil
}

func (g *glob) match(relPath string, isDir bool) bool {
	if g.dirOnly && !isDir {
		return false
	}
	return g.re.MatchString(relPath)
}

// translate rewrites glob syntax into regexp syntax.
//
//nolint:gocyclo,revive // cognitive-complexity: character-by-character glob parser
func translate(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		switch c := pattern[i]; c {
		case '*':
			switch {
			case strings.HasPrefix(pattern[i:], "**/"):
				b.WriteString("(.*/)?")
				i += 3
			case strings.HasPrefix(pattern[i:], "**"):
				b.WriteString(".*")
				i += 2
			default:
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			end := classEnd(pattern, i)
			if end < 0 {
				b.WriteString(`\[`)
				i++
				continue
			}
			class := pattern[i+1 : end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i = end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return b.String()
}

// classEnd returns the index of the ']' closing the class opened at start,
// or -1 if the class is unterminated. A ']' right after '[' or '[!' is literal.
func classEnd(pattern string, start int) int {
	j := start + 1
	if j < len(pattern) && pattern[j] == '!' {
		j++
	}
	if j < len(pattern) && pattern[j] == ']' {
		j++
	}
	for j < len(pattern) {
		if pattern[j] == ']' {
			return j
		}
		j++
	}
	return -1
}
