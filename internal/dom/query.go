package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Walk visits n and its descendants depth-first until fn returns false.
func Walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// Find returns the first element under root (root included) matching pred.
func Find(root *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element under root (root included) matching pred in document order.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ByID returns the element with the given id attribute.
func ByID(root *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	return Find(root, func(n *html.Node) bool { return Attr(n, "id") == id })
}

// FindClass returns the first element under root carrying class.
func FindClass(root *html.Node, class string) *html.Node {
	return Find(root, func(n *html.Node) bool { return HasClass(n, class) })
}

// FindAllClass returns every element under root carrying class.
func FindAllClass(root *html.Node, class string) []*html.Node {
	return FindAll(root, func(n *html.Node) bool { return HasClass(n, class) })
}

// ChildByClass returns the first direct element child of n carrying class.
func ChildByClass(n *html.Node, class string) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && HasClass(c, class) {
			return c
		}
	}
	return nil
}

// ChildrenByClass returns the direct element children of n carrying class.
func ChildrenByClass(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	if n == nil {
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && HasClass(c, class) {
			out = append(out, c)
		}
	}
	return out
}

// Closest walks from n up to (and including) stop and returns the first element matching pred.
func Closest(n, stop *html.Node, pred func(*html.Node) bool) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && pred(p) {
			return p
		}
		if p == stop {
			break
		}
	}
	return nil
}

// Attr returns the value of an attribute or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries the attribute at all.
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	if n == nil {
		return
	}
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr drops an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	if n == nil {
		return
	}
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// HasClass reports whether the class attribute of n contains class.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class to n unless it is already there.
func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	cur := Attr(n, "class")
	if cur == "" {
		SetAttr(n, "class", class)
		return
	}
	SetAttr(n, "class", cur+" "+class)
}
