package cvlibrary

import (
	"regexp"
	"strings"
	"sync"

	"go-cvlibrary-scraper/utils"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockTags = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Section: true, atom.Table: true, atom.Tbody: true, atom.Td: true, atom.Th: true,
	atom.Thead: true, atom.Tr: true, atom.Ul: true, atom.Option: true, atom.Select: true,
}

var skipTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Head: true,
	atom.Template: true, atom.Svg: true,
}

// visibleText renders the selection roughly the way a browser's innerText
// would: block elements start new lines, scripts and styles are dropped.
func visibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipTags[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
				return
			}
		case html.DocumentNode:
		default:
			return
		}

		block := n.Type == html.ElementNode && blockTags[n.DataAtom]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return utils.CleanText(b.String())
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Labels that appear on result cards and profile pages. Values are cut where
// the next known label starts.
var knownLabels = []string{
	"Current Job Title", "Desired Job Title", "Town", "County", "Main Phone",
	"Optional Phone", "Email", "Job Type", "Willing to Travel",
	"Willing to Relocate", "UK Driving Licence", "Date Available",
	"Expected Salary", "Fluent Languages", "Date Registered",
	"Profile/CV Last Updated", "Last Active", "Last Viewed", "Quickview Ref",
}

var nextLabel = func() *regexp.Regexp {
	quoted := make([]string, len(knownLabels))
	for i, l := range knownLabels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?i)\s+(?:` + strings.Join(quoted, "|") + `)\s*#?\s*:`)
}()

func trimAtNextLabel(v string) string {
	if loc := nextLabel.FindStringIndex(v); loc != nil {
		v = v[:loc[0]]
	}
	return strings.TrimSpace(v)
}

// labelValue finds the first line starting with label (followed by ":", "#"
// or end of line) and returns the text after it. When the label sits alone on
// its line the following line is the value. Labels in the middle of a line
// are only accepted with a colon.
func labelValue(lines []string, label string) string {
	re := labelPattern(label)
	for i, line := range lines {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if v := trimAtNextLabel(m[1]); v != "" {
			return v
		}
		if i+1 < len(lines) && !looksLikeLabel(lines[i+1]) {
			return trimAtNextLabel(lines[i+1])
		}
		return ""
	}

	inline := inlinePattern(label)
	for _, line := range lines {
		if m := inline.FindStringSubmatch(line); m != nil {
			return trimAtNextLabel(m[1])
		}
	}
	return ""
}

var labelCache sync.Map

func labelPattern(label string) *regexp.Regexp {
	return cachedPattern("^"+label, `(?i)^`+regexp.QuoteMeta(label)+`\s*#?\s*(?::\s*(.*)|$)`)
}

func inlinePattern(label string) *regexp.Regexp {
	return cachedPattern("~"+label, `(?i)(?:^|\s)`+regexp.QuoteMeta(label)+`\s*#?\s*:\s*(.*)`)
}

func cachedPattern(key, expr string) *regexp.Regexp {
	if re, ok := labelCache.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(expr)
	labelCache.Store(key, re)
	return re
}

// looksLikeLabel reports whether line is itself one of the known labels.
func looksLikeLabel(line string) bool {
	for _, l := range knownLabels {
		if labelPattern(l).MatchString(line) {
			return true
		}
	}
	return false
}

// section returns the lines after the first line equal to start (ignoring
// case and a trailing colon) up to the first line that begins with any of
// the end markers.
func section(lines []string, start string, endMarkers ...string) []string {
	begin := -1
	for i, l := range lines {
		if strings.EqualFold(strings.TrimSuffix(l, ":"), start) {
			begin = i + 1
			break
		}
	}
	if begin < 0 {
		return nil
	}
	var out []string
	for _, l := range lines[begin:] {
		lower := strings.ToLower(l)
		stop := false
		for _, m := range endMarkers {
			if strings.HasPrefix(lower, strings.ToLower(m)) {
				stop = true
				break
			}
		}
		if stop {
			break
		}
		out = append(out, l)
	}
	return out
}
