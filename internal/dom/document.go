// Package dom держит в памяти зеркало отрисованного документа (дерево golang.org/x/net/html)
// и даёт операции, которые нужны ядру перевода: поиск, проверку «прикреплённости»,
// чтение и запись отображаемого текста.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document — живое дерево документа. Не потокобезопасно: им владеет цикл событий контроллера.
type Document struct {
	root *html.Node
	gq   *goquery.Document
}

// New оборачивает уже разобранное дерево.
func New(root *html.Node) *Document {
	return &Document{root: root, gq: goquery.NewDocumentFromNode(root)}
}

// Parse разбирает HTML так же, как это делает браузер (HTML5 parsing).
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root), nil
}

func ParseString(s string) (*Document, error) { return Parse(strings.NewReader(s)) }

func (d *Document) Root() *html.Node { return d.root }

// Query возвращает первый элемент по CSS-селектору или nil.
func (d *Document) Query(selector string) *html.Node {
	sel := d.gq.Find(selector)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

// QueryAll возвращает все элементы по CSS-селектору в порядке документа.
func (d *Document) QueryAll(selector string) []*html.Node {
	return d.gq.Find(selector).Nodes
}

// Attached сообщает, является ли узел частью живого дерева.
func (d *Document) Attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// Rooted сообщает, доходит ли цепочка родителей узла до узла-документа.
// В отличие от Attached не требует знать, какому документу принадлежит узел.
func Rooted(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.DocumentNode {
			return true
		}
	}
	return false
}

// Remove отсоединяет узел от дерева. Корень удалить нельзя.
func (d *Document) Remove(n *html.Node) bool {
	if n == nil || n == d.root || n.Parent == nil || !d.Attached(n) {
		return false
	}
	n.Parent.RemoveChild(n)
	return true
}

// Insert разбирает фрагмент HTML в контексте parent и вставляет полученные узлы
// так, чтобы первый из них стал ребёнком parent с индексом index.
// index, равный числу детей, — вставка в конец.
func (d *Document) Insert(parent *html.Node, index int, fragment string) ([]*html.Node, error) {
	if parent == nil || !d.Attached(parent) {
		return nil, fmt.Errorf("%w: insert parent detached", ErrNodeNotFound)
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: negative insert index", ErrNodeNotFound)
	}
	before := parent.FirstChild
	for i := 0; i < index; i++ {
		if before == nil {
			return nil, fmt.Errorf("%w: insert index %d out of range", ErrNodeNotFound, index)
		}
		before = before.NextSibling
	}

	// Контекст разбора: сам родитель, а для узла-документа — условный <body>.
	ctxNode := parent
	if parent.Type != html.ElementNode {
		ctxNode = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctxNode)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.InsertBefore(n, before)
	}
	return nodes, nil
}

// ReplaceText меняет отображаемый текст прикреплённого узла (см. SetText).
func (d *Document) ReplaceText(n *html.Node, text string) error {
	if n == nil || n == d.root || !d.Attached(n) {
		return fmt.Errorf("%w: text target detached", ErrNodeNotFound)
	}
	SetText(n, text)
	return nil
}

// Render сериализует документ в HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}
