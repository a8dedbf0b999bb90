package fetch

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// dropped elements never contribute text.
var dropped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Aside:    true,
	atom.Form:     true,
}

// page accumulates one document walk: the title candidates and the body
// rendered as light markdown so the model keeps headings and lists.
type page struct {
	title   string
	ogTitle string
	out     strings.Builder
	pre     int // depth inside <pre>
}

// extractHTML parses raw and returns its title and readable text.
func extractHTML(raw string) (string, string) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", stripTags(raw)
	}
	var p page
	p.walk(doc)

	title := p.title
	if title == "" {
		title = p.ogTitle
	}
	return strings.Join(strings.Fields(title), " "), cleanWhitespace(p.out.String())
}

func (p *page) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		p.text(n.Data)
		return
	case html.ElementNode:
	default:
		p.children(n)
		return
	}

	switch a := n.DataAtom; {
	case a == atom.Title:
		if p.title == "" {
			p.title = textOf(n)
		}
		return
	case a == atom.Meta:
		if attr(n, "property") == "og:title" && p.ogTitle == "" {
			p.ogTitle = attr(n, "content")
		}
		return
	case a == atom.Head:
		p.children(n) // only title and meta matter here
		return
	case dropped[a]:
		return
	case heading(a) > 0:
		p.block(strings.Repeat("#", heading(a)) + " ")
		p.children(n)
		p.block("")
	case a == atom.Li:
		p.line("- ")
		p.children(n)
	case a == atom.Pre:
		p.block("")
		p.pre++
		p.children(n)
		p.pre--
		p.block("")
	case a == atom.Br:
		p.out.WriteString("\n")
	case block(a):
		p.block("")
		p.children(n)
		p.block("")
	default:
		p.children(n)
	}
}

func (p *page) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *page) text(s string) {
	if p.pre > 0 {
		p.out.WriteString(s)
		return
	}
	if t := strings.Join(strings.Fields(s), " "); t != "" {
		p.out.WriteString(t)
		p.out.WriteString(" ")
	}
}

// block starts a paragraph break followed by prefix.
func (p *page) block(prefix string) {
	if p.out.Len() > 0 {
		p.out.WriteString("\n\n")
	}
	p.out.WriteString(prefix)
}

// line starts a new line followed by prefix.
func (p *page) line(prefix string) {
	if p.out.Len() > 0 {
		p.out.WriteString("\n")
	}
	p.out.WriteString(prefix)
}

func heading(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func block(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main,
		atom.Blockquote, atom.Ul, atom.Ol, atom.Table, atom.Tr,
		atom.Dl, atom.Dd, atom.Dt, atom.Figure, atom.Figcaption,
		atom.Details, atom.Summary, atom.Hr:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}

// cleanWhitespace collapses spaces within lines and runs of blank lines.
func cleanWhitespace(s string) string {
	var kept []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" && blank {
			continue
		}
		blank = line == ""
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// stripTags keeps only the text tokens of s. It serves input the parser
// rejects.
func stripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return cleanWhitespace(b.String())
		case html.TextToken:
			b.Write(z.Text())
			b.WriteString(" ")
		}
	}
}
