package crawler

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Article is the readable part of a page. Blocks are markdown blocks in
// document order.
type Article struct {
	URL    string
	Title  string
	Blocks []string
}

// ToMarkdown renders the article with its title as a level-one heading.
func (a Article) ToMarkdown() string {
	var b strings.Builder
	if a.Title != "" {
		b.WriteString("# ")
		b.WriteString(a.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(strings.Join(a.Blocks, "\n\n"))
	return strings.TrimSpace(b.String()) + "\n"
}

var dropped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Form:     true,
	atom.Template: true,
}

var headings = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// Extract parses page markup. The title comes from <title>, else the
// first <h1>; content is read from <article>, else <main>, else <body>.
// Scripts, styles and navigation are skipped.
func Extract(page string) (Article, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return Article{}, err
	}

	var a Article
	if t := find(doc, atom.Title); t != nil {
		a.Title = collapse(textOf(t))
	}
	if a.Title == "" {
		if h := find(doc, atom.H1); h != nil {
			a.Title = collapse(textOf(h))
		}
	}

	root := find(doc, atom.Article)
	if root == nil {
		root = find(doc, atom.Main)
	}
	if root == nil {
		root = find(doc, atom.Body)
	}
	if root == nil {
		return a, nil
	}

	w := &walker{title: a.Title}
	w.blocks(root)
	w.flush()
	a.Blocks = w.out
	return a, nil
}

type walker struct {
	title   string
	out     []string
	pending strings.Builder
	titled  bool
}

func (w *walker) emit(block string) {
	if block = strings.TrimSpace(block); block != "" {
		w.out = append(w.out, block)
	}
}

func (w *walker) flush() {
	w.emit(collapse(w.pending.String()))
	w.pending.Reset()
}

func (w *walker) blocks(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			w.pending.WriteString(c.Data)
		case c.Type != html.ElementNode || dropped[c.DataAtom]:
		case c.DataAtom == atom.P || c.DataAtom == atom.Blockquote:
			w.flush()
			text := collapse(inline(c))
			if c.DataAtom == atom.Blockquote && text != "" {
				text = "> " + text
			}
			w.emit(text)
		case headings[c.DataAtom] > 0:
			w.flush()
			text := collapse(inline(c))
			if c.DataAtom == atom.H1 && !w.titled && text == w.title {
				w.titled = true
				continue
			}
			if text != "" {
				w.emit(strings.Repeat("#", headings[c.DataAtom]) + " " + text)
			}
		case c.DataAtom == atom.Li:
			w.flush()
			if text := collapse(inline(c)); text != "" {
				w.emit("- " + text)
			}
		case c.DataAtom == atom.Pre:
			w.flush()
			if code := strings.Trim(textOf(c), "\n"); code != "" {
				w.emit("```\n" + code + "\n```")
			}
		case c.DataAtom == atom.Br || phrasing[c.DataAtom]:
			w.pending.WriteString(inlineNode(c))
		default:
			w.flush()
			w.blocks(c)
			w.flush()
		}
	}
}

var phrasing = map[atom.Atom]bool{
	atom.A: true, atom.Strong: true, atom.B: true, atom.Em: true,
	atom.I: true, atom.Code: true, atom.Span: true,
}

// inline renders the phrasing content of n.
func inline(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(inlineNode(c))
	}
	return b.String()
}

// inlineNode renders links as [text](href) and emphasis and code spans in
// their markdown forms.
func inlineNode(c *html.Node) string {
	switch {
	case c.Type == html.TextNode:
		return c.Data
	case c.Type != html.ElementNode || dropped[c.DataAtom]:
		return ""
	case c.DataAtom == atom.A:
		text := collapse(inline(c))
		if href := attr(c, "href"); href != "" && text != "" {
			return "[" + text + "](" + href + ")"
		}
		return text
	case c.DataAtom == atom.Strong || c.DataAtom == atom.B:
		if text := collapse(inline(c)); text != "" {
			return "**" + text + "**"
		}
		return ""
	case c.DataAtom == atom.Em || c.DataAtom == atom.I:
		if text := collapse(inline(c)); text != "" {
			return "*" + text + "*"
		}
		return ""
	case c.DataAtom == atom.Code:
		if text := textOf(c); text != "" {
			return "`" + text + "`"
		}
		return ""
	case c.DataAtom == atom.Br:
		return " "
	default:
		return inline(c)
	}
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && dropped[n.DataAtom] {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
