// Package pattern implements gitignore-style glob matching over
// slash-separated paths relative to a collection root.
//
// Two resolution strategies are built on the same compiled-glob primitive:
// RuleSet walks include/exclude rules in declaration order with the last
// matching rule winning (filtering), while config's extractor dispatch uses
// Glob directly with first-match precedence (a priority list). They are
// deliberately separate functions; see the package-level design notes in
// DESIGN.md.
package pattern

import (
	"path"
	"regexp"
	"strings"
)

// Glob is a single compiled glob expression.
type Glob struct {
	source   string
	regex    *regexp.Regexp
	dirOnly  bool // trailing "/": matches directories and files beneath them
	anchored bool // contains "/": matches from the root of the relative path
}

// Compile compiles a glob expression. The expression may use *, ?, **,
// character classes, a trailing "/" for directory-only matching, and a
// leading "/" to anchor at the collection root.
func Compile(expr string) (*Glob, error) {
	g := &Glob{source: expr}

	trimmed := expr
	if strings.HasSuffix(trimmed, "/") {
		g.dirOnly = true
		trimmed = strings.TrimSuffix(trimmed, "/")
	}
	if strings.HasPrefix(trimmed, "/") {
		g.anchored = true
		trimmed = strings.TrimPrefix(trimmed, "/")
	}
	// An internal slash anchors the pattern: "doc/frotz" means
	// "/doc/frotz", not "**/doc/frotz".
	if strings.Contains(trimmed, "/") && !strings.HasPrefix(trimmed, "**/") {
		g.anchored = true
	}

	// Syntax check via the stdlib matcher; our own translation below is
	// strictly more permissive, so anything it rejects is a user error.
	if _, err := path.Match(strings.ReplaceAll(trimmed, "**", "*"), "sample"); err != nil {
		return nil, err
	}

	g.regex = regexp.MustCompile("^" + globToRegex(trimmed) + "$")
	return g, nil
}

// String returns the original glob expression.
func (g *Glob) String() string { return g.source }

// Match reports whether the glob matches the given slash-separated
// relative path. isDir indicates whether the path names a directory;
// directory-only globs never match a plain file's final component.
func (g *Glob) Match(relpath string, isDir bool) bool {
	relpath = strings.Trim(relpath, "/")
	if relpath == "" {
		return false
	}
	parts := strings.Split(relpath, "/")

	if g.anchored {
		if g.regex.MatchString(relpath) {
			if g.dirOnly {
				return isDir
			}
			return true
		}
		if g.dirOnly {
			// Files inside a matched directory: test each proper prefix.
			for i := range parts[:len(parts)-1] {
				if g.regex.MatchString(strings.Join(parts[:i+1], "/")) {
					return true
				}
			}
		}
		return false
	}

	if g.dirOnly {
		for i, part := range parts {
			if g.regex.MatchString(part) {
				if i == len(parts)-1 {
					return isDir
				}
				return true
			}
		}
		return false
	}

	// Unanchored: basename, full path (for ** globs), or any component.
	if g.regex.MatchString(parts[len(parts)-1]) || g.regex.MatchString(relpath) {
		return true
	}
	for _, part := range parts {
		if g.regex.MatchString(part) {
			return true
		}
	}
	return false
}

// MatchFile is Match for plain (non-directory) paths.
func (g *Glob) MatchFile(relpath string) bool {
	return g.Match(relpath, false)
}

// globToRegex translates a glob expression into a regular expression body.
func globToRegex(expr string) string {
	var b strings.Builder

	for i := 0; i < len(expr); {
		switch c := expr[i]; c {
		case '*':
			if strings.HasPrefix(expr[i:], "**/") {
				// "**/" spans any number of leading directories.
				b.WriteString("(?:.*/)?")
				i += 3
			} else if strings.HasPrefix(expr[i:], "**") && (i == 0 || expr[i-1] == '/') {
				b.WriteString(".*")
				i += 2
			} else {
				// A single "*" never crosses a path separator.
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			end := strings.IndexByte(expr[i:], ']')
			if end > 0 {
				class := expr[i : i+end+1]
				// fnmatch spells negation with '!'; regexp wants '^'.
				if len(class) > 3 && class[1] == '!' {
					class = "[^" + class[2:]
				}
				b.WriteString(class)
				i += end + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '\\':
			if i+1 < len(expr) {
				b.WriteString(regexp.QuoteMeta(string(expr[i+1])))
				i += 2
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	return b.String()
}
