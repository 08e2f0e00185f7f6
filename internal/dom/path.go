package dom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ErrNodeNotFound — путь не указывает на узел живого дерева.
var ErrNodeNotFound = errors.New("dom: node not found")

// Path адресует узел индексами в childNodes от корня документа, напр. "1/2/0".
// Так хост (скрипт в браузере) и зеркало ссылаются на один и тот же узел.
type Path []int

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

// ParsePath разбирает строку вида "1/2/0". Пустая строка — корень.
func ParsePath(s string) (Path, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, "/")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("dom: bad path segment %q in %q", part, s)
		}
		out = append(out, idx)
	}
	return out, nil
}

// Resolve находит узел по пути.
func (d *Document) Resolve(p Path) (*html.Node, error) {
	n := d.root
	for depth, idx := range p {
		ch := n.FirstChild
		for i := 0; ch != nil && i < idx; i++ {
			ch = ch.NextSibling
		}
		if ch == nil {
			return nil, fmt.Errorf("%w: %s (depth %d)", ErrNodeNotFound, p, depth)
		}
		n = ch
	}
	return n, nil
}

// PathOf вычисляет путь узла. false — узел не прикреплён к документу.
func (d *Document) PathOf(n *html.Node) (Path, bool) {
	var rev Path
	for c := n; c != d.root; c = c.Parent {
		if c == nil || c.Parent == nil {
			return nil, false
		}
		idx := 0
		for s := c.PrevSibling; s != nil; s = s.PrevSibling {
			idx++
		}
		rev = append(rev, idx)
	}
	out := make(Path, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out, true
}
