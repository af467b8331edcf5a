package renderer

import (
	"regexp"
	"sort"
	"strings"
)

var (
	commentPattern      = regexp.MustCompile(`(?s)\{#.*?#\}`)
	commentBlockPattern = regexp.MustCompile(`(?s)\{%-?\s*comment\s*-?%\}.*?\{%-?\s*endcomment\s*-?%\}`)
	tagPattern          = regexp.MustCompile(`(?s)\{\{-?(.*?)-?\}\}|\{%-?(.*?)-?%\}`)
	defaultPattern      = regexp.MustCompile(`\|\s*default`)
	identPattern        = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	tokenPattern        = regexp.MustCompile(`[0-9][0-9A-Za-z_.]*|[A-Za-z_][A-Za-z0-9_]*`)
	stringPattern       = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
	keywordPattern      = regexp.MustCompile(`(?s)^\s*([a-z]+)\b\s*(.*?)\s*$`)
	forSourcePattern    = regexp.MustCompile(`(?s)^.+?\s+in\s+(.*)$`)

	forPattern    = regexp.MustCompile(`\{%-?\s*for\s+(.+?)\s+in\s`)
	setPattern    = regexp.MustCompile(`\{%-?\s*set\s+([A-Za-z_][A-Za-z0-9_]*)\s*=`)
	withPattern   = regexp.MustCompile(`(?s)\{%-?\s*with\s+(.*?)-?%\}`)
	macroPattern  = regexp.MustCompile(`\{%-?\s*macro\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	importPattern = regexp.MustCompile(`\{%-?\s*import\s+"[^"]*"\s+(.*?)-?%\}`)
	assignPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=`)
	asPattern     = regexp.MustCompile(`\bas\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// Names that never refer to a row column
var reservedNames = map[string]bool{
	"not": true, "and": true, "or": true, "in": true, "is": true,
	"if": true, "else": true,
	"true": true, "false": true, "True": true, "False": true,
	"nil": true, "none": true, "None": true,
	"reversed": true, "sorted": true,
	"forloop": true, "pongo2": true,
}

// RequiredVariables lists the free variables a jinja template reads in
// {{ ... }} print tags and {% for %} loop sources. Filter names, attribute
// names, function calls and literals are not variables. A print tag that
// applies the default filter only requires the names in the filter's
// argument. Names bound inside the template by for, set, with, macro or
// import are local, and a name tested by an if or elif tag is optional
// within that if block. The result is sorted
func RequiredVariables(src string) []string {
	src = commentBlockPattern.ReplaceAllString(src, "")
	src = commentPattern.ReplaceAllString(src, "")

	local := localNames(src)
	seen := make(map[string]bool)
	var required []string
	var guards []map[string]bool

	guarded := func(name string) bool {
		for _, g := range guards {
			if g[name] {
				return true
			}
		}
		return false
	}
	add := func(names []string) {
		for _, name := range names {
			if local[name] || seen[name] || guarded(name) {
				continue
			}
			seen[name] = true
			required = append(required, name)
		}
	}

	for _, m := range tagPattern.FindAllStringSubmatchIndex(src, -1) {
		if m[2] >= 0 {
			add(printNames(src[m[2]:m[3]]))
			continue
		}

		kw := keywordPattern.FindStringSubmatch(src[m[4]:m[5]])
		if kw == nil {
			continue
		}
		switch kw[1] {
		case "if":
			guards = append(guards, testedNames(kw[2]))
		case "elif":
			if len(guards) > 0 {
				for name := range testedNames(kw[2]) {
					guards[len(guards)-1][name] = true
				}
			}
		case "endif":
			if len(guards) > 0 {
				guards = guards[:len(guards)-1]
			}
		case "for":
			if source := forSourcePattern.FindStringSubmatch(kw[2]); source != nil {
				add(freeNames(source[1]))
			}
		}
	}

	sort.Strings(required)
	return required
}

// printNames returns the names a print tag requires
func printNames(body string) []string {
	if loc := defaultPattern.FindStringIndex(body); loc != nil {
		return freeNames(body[loc[0]:])
	}
	return freeNames(body)
}

func testedNames(expr string) map[string]bool {
	names := make(map[string]bool)
	for _, name := range identPattern.FindAllString(stringPattern.ReplaceAllString(expr, ""), -1) {
		names[name] = true
	}
	return names
}

// freeNames returns the variable names read by an expression
func freeNames(expr string) []string {
	expr = stringPattern.ReplaceAllString(expr, `""`)

	var names []string
	for _, loc := range tokenPattern.FindAllStringIndex(expr, -1) {
		tok := expr[loc[0]:loc[1]]
		if tok[0] >= '0' && tok[0] <= '9' || reservedNames[tok] {
			continue
		}
		// filter or attribute name
		if prev := strings.TrimRight(expr[:loc[0]], " \t\r\n"); strings.HasSuffix(prev, "|") || strings.HasSuffix(prev, ".") {
			continue
		}
		// function or macro call
		if strings.HasPrefix(strings.TrimLeft(expr[loc[1]:], " \t\r\n"), "(") {
			continue
		}
		names = append(names, tok)
	}
	return names
}

func localNames(src string) map[string]bool {
	local := make(map[string]bool)
	add := func(names ...string) {
		for _, n := range names {
			local[n] = true
		}
	}

	for _, m := range forPattern.FindAllStringSubmatch(src, -1) {
		add(identPattern.FindAllString(m[1], -1)...)
	}
	for _, m := range setPattern.FindAllStringSubmatch(src, -1) {
		add(m[1])
	}
	for _, m := range withPattern.FindAllStringSubmatch(src, -1) {
		for _, a := range assignPattern.FindAllStringSubmatch(m[1], -1) {
			add(a[1])
		}
		for _, a := range asPattern.FindAllStringSubmatch(m[1], -1) {
			add(a[1])
		}
	}
	for _, m := range macroPattern.FindAllStringSubmatch(src, -1) {
		add(m[1])
		for _, arg := range strings.Split(m[2], ",") {
			if name := identPattern.FindString(arg); name != "" {
				add(name)
			}
		}
	}
	for _, m := range importPattern.FindAllStringSubmatch(src, -1) {
		for _, part := range strings.Split(m[1], ",") {
			if as := asPattern.FindStringSubmatch(part); as != nil {
				add(as[1])
				continue
			}
			if name := identPattern.FindString(part); name != "" {
				add(name)
			}
		}
	}

	return local
}
