package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`[ \t]{2,}`)

// Clean drops non breaking spaces and non printable runes, collapses runs of blanks
// and trims the result. Newlines are kept since the portal uses them as separators.
func Clean(s string) string {
	out := strings.Builder{}
	for _, c := range s {
		switch {
		case c == '\u00a0':
			continue
		case c == '\n':
			out.WriteRune(c)
		case c == '\t' || c == '\r':
			out.WriteRune(' ')
		case unicode.IsPrint(c):
			out.WriteRune(c)
		}
	}
	cleaned := innerWhitespace.ReplaceAllString(out.String(), " ")
	return strings.TrimSpace(cleaned)
}

// Text is the cleaned text of every node in sel.
func Text(sel *goquery.Selection) string {
	return Clean(sel.Text())
}

// ReplaceBreaks turns every <br> into a newline text node.
func ReplaceBreaks(doc *goquery.Document) {
	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		node := br.Get(0)
		if node.Parent == nil {
			return
		}
		node.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: "\n"}, node)
		node.Parent.RemoveChild(node)
	})
}

// FindNext returns the first element with the given tag that follows node in
// document order, descending into node itself first.
func FindNext(node *html.Node, tag atom.Atom) *html.Node {
	if node == nil {
		return nil
	}
	current := node
	for {
		current = nextInOrder(current)
		if current == nil {
			return nil
		}
		if current.Type == html.ElementNode && current.DataAtom == tag {
			return current
		}
	}
}

func nextInOrder(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}
