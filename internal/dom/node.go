package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func IsElement(n *html.Node) bool { return n != nil && n.Type == html.ElementNode }

func IsText(n *html.Node) bool { return n != nil && n.Type == html.TextNode }

// Tag возвращает имя тега в верхнем регистре ("P", "DIV"), как tagName в браузере.
func Tag(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	return strings.ToUpper(n.Data)
}

// Attr возвращает значение атрибута и признак его наличия.
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// TextContent — конкатенация всех текстовых потомков, аналог textContent.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			switch ch.Type {
			case html.TextNode:
				b.WriteString(ch.Data)
			case html.ElementNode, html.DocumentNode:
				walk(ch)
			}
		}
	}
	walk(n)
	return b.String()
}

// SetText заменяет всех детей узла одним текстовым узлом.
func SetText(n *html.Node, text string) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		n.Data = text
		return
	}
	for ch := n.FirstChild; ch != nil; {
		next := ch.NextSibling
		n.RemoveChild(ch)
		ch = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// HasSingleTextChild — ровно один ребёнок, и это «сырой» текстовый узел.
func HasSingleTextChild(n *html.Node) bool {
	return n != nil && n.FirstChild != nil && n.FirstChild == n.LastChild && n.FirstChild.Type == html.TextNode
}

// FirstDirectText возвращает первый непустой (после trim) текст среди непосредственных
// текстовых детей. Вложенные элементы не просматриваются.
func FirstDirectText(n *html.Node) string {
	if n == nil {
		return ""
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type != html.TextNode {
			continue
		}
		if t := strings.TrimSpace(ch.Data); t != "" {
			return t
		}
	}
	return ""
}

// ElementOf возвращает сам элемент или ближайшего предка-элемента для текстового узла.
func ElementOf(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// Contains — b совпадает с a или является его потомком.
func Contains(a, b *html.Node) bool {
	if a == nil || b == nil {
		return false
	}
	for p := b; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

// CommonAncestor возвращает ближайшего общего предка (включительно) двух узлов.
func CommonAncestor(a, b *html.Node) *html.Node {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	seen := make(map[*html.Node]struct{})
	for p := a; p != nil; p = p.Parent {
		seen[p] = struct{}{}
	}
	for p := b; p != nil; p = p.Parent {
		if _, ok := seen[p]; ok {
			return p
		}
	}
	return nil
}

// Closest ищет ближайший (включительно) узел, подходящий под matcher, поднимаясь к корню.
func Closest(n *html.Node, m goquery.Matcher) *html.Node {
	el := ElementOf(n)
	if el == nil {
		return nil
	}
	sel := goquery.NewDocumentFromNode(el).ClosestMatcher(m)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}
