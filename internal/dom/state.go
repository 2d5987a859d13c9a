package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, s string) {
	if n == nil {
		return
	}
	ReplaceChildren(n, TextNode(s))
}

// IsHidden reports whether n carries display: none in its inline style.
func IsHidden(n *html.Node) bool {
	for _, decl := range strings.Split(Attr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) == "display" && strings.TrimSpace(v) == "none" {
			return true
		}
	}
	return false
}

// SetHidden toggles display between none and block, keeping other style declarations.
func SetHidden(n *html.Node, hidden bool) {
	display := "block"
	if hidden {
		display = "none"
	}
	SetStyle(n, "display", display)
}

// SetStyle sets one inline style property.
func SetStyle(n *html.Node, prop, val string) {
	var decls []string
	for _, decl := range strings.Split(Attr(n, "style"), ";") {
		k, _, ok := strings.Cut(decl, ":")
		if !ok || strings.TrimSpace(k) == prop {
			continue
		}
		decls = append(decls, strings.TrimSpace(decl))
	}
	decls = append(decls, prop+": "+val)
	SetAttr(n, "style", strings.Join(decls, "; "))
}

// Style returns the value of one inline style property.
func Style(n *html.Node, prop string) string {
	for _, decl := range strings.Split(Attr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) == prop {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func IsDisabled(n *html.Node) bool { return HasAttr(n, "disabled") }

// SetDisabled adds or removes the disabled attribute.
func SetDisabled(n *html.Node, disabled bool) {
	if n == nil {
		return
	}
	if disabled {
		SetAttr(n, "disabled", "")
		return
	}
	RemoveAttr(n, "disabled")
}

// Hold disables n and returns the func that re-enables it. Pair it with defer.
func Hold(n *html.Node) (release func()) {
	SetDisabled(n, true)
	return func() { SetDisabled(n, false) }
}
