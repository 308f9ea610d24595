package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// action is what a rule does with the elements its selector matches.
type action int

const (
	// drop removes the matched elements from the document.
	drop action = iota
	// useAsRoot makes the matched elements the main-content root.
	useAsRoot
)

// rule pairs a selector with an action. Rule tables are evaluated in order.
type rule struct {
	selector string
	action   action
}

// noiseRules strip page chrome before anything is read.
var noiseRules = []rule{
	{"script, style, noscript, template, svg, iframe", drop},
	{"header, nav, footer, menu", drop},
	{"[role=navigation], [role=banner], [role=contentinfo]", drop},
	{"[class*=navbar], [class*=navigation], [class*=menu], [class*=site-header], [class*=site-footer]", drop},
	{"[class*=cookie], [id*=cookie], [class*=gdpr], [id*=gdpr], [class*=consent], [id*=consent]", drop},
}

// rootRules pick the main-content root; the first rule with a match wins.
var rootRules = []rule{
	{"main", useAsRoot},
	{"article", useAsRoot},
	{"[role=main]", useAsRoot},
	{"[class*=main-content], [id*=main-content]", useAsRoot},
	{"[class*=page-content], [id*=page-content]", useAsRoot},
}

// bodyRules clean the body when no root rule matched.
var bodyRules = []rule{
	{"aside, [class*=sidebar], [id*=sidebar]", drop},
}

const (
	sectionSelector    = "section, [class*=section], [class*=feature], [class*=block]"
	anyHeadingSelector = "h1, h2, h3, h4, h5, h6"
	headingSelector    = "h1, h2, h3, h4"
	listSelector       = "ul, ol"
)

func applyDrops(sel *goquery.Selection, rules []rule) {
	for _, r := range rules {
		if r.action == drop {
			sel.Find(r.selector).Remove()
		}
	}
}

// hasNestedSection reports whether sel wraps another section-like element
// that carries its own heading and paragraph. Class-tagged headings and
// paragraphs such as h2.section-title do not count.
func hasNestedSection(sel *goquery.Selection) bool {
	return sel.Find(sectionSelector).FilterFunction(func(_ int, inner *goquery.Selection) bool {
		return inner.Find(anyHeadingSelector).Length() > 0 && inner.Find("p").Length() > 0
	}).Length() > 0
}

// mainContent strips noise and returns the main-content root.
func mainContent(doc *goquery.Document) *goquery.Selection {
	applyDrops(doc.Selection, noiseRules)

	for _, r := range rootRules {
		if r.action != useAsRoot {
			continue
		}
		if root := doc.Find(r.selector); root.Length() > 0 {
			return root
		}
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	applyDrops(body, bodyRules)
	return body
}

// isNavigationContainer reports whether a section-like element is classed as
// navigation.
func isNavigationContainer(sel *goquery.Selection) bool {
	class := strings.ToLower(sel.AttrOr("class", ""))
	return strings.Contains(class, "nav") || strings.Contains(class, "menu")
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Br: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Section: true, atom.Article: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Dd: true, atom.Dt: true,
	atom.Blockquote: true,
}

// textOf returns the visible text of sel with whitespace collapsed and block
// boundaries turned into spaces.
func textOf(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}
