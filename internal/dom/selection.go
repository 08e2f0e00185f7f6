package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Selection — завершённое выделение текста: якорь, фокус и выделенная строка.
// Якорь и фокус могут быть текстовыми узлами.
type Selection struct {
	Anchor *html.Node
	Focus  *html.Node
	Text   string
}

// Collapsed — в выделении нет видимого текста (например, обычный клик).
func (s Selection) Collapsed() bool {
	return s.Anchor == nil || strings.TrimSpace(s.Text) == ""
}

// CommonAncestor — общий предок якоря и фокуса (commonAncestorContainer диапазона).
func (s Selection) CommonAncestor() *html.Node {
	return CommonAncestor(s.Anchor, s.Focus)
}
