package archive

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var droppedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"noscript": true,
	"frame":    true,
	"frameset": true,
	"base":     true,
	"meta":     true,
	"link":     true,
}

var urlAttrs = map[string]bool{
	"href":       true,
	"src":        true,
	"action":     true,
	"formaction": true,
	"poster":     true,
	"xlink:href": true,
}

// SanitizeHTML removes active content from an HTML fragment so a snapshot can
// be opened offline without running remote code.
func SanitizeHTML(fragment string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	for _, n := range nodes {
		if dropNode(n) {
			continue
		}
		clean(n)
		if err := html.Render(&out, n); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

func dropNode(n *html.Node) bool {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return true
	case html.ElementNode:
		return droppedElements[strings.ToLower(n.Data)]
	}
	return false
}

func clean(n *html.Node) {
	if n.Type == html.ElementNode {
		attrs := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if strings.HasPrefix(key, "on") || key == "srcdoc" {
				continue
			}
			if urlAttrs[key] && unsafeURL(a.Val) {
				continue
			}
			attrs = append(attrs, a)
		}
		n.Attr = attrs
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if dropNode(c) {
			n.RemoveChild(c)
		} else {
			clean(c)
		}
		c = next
	}
}

func unsafeURL(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v)
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") ||
		(strings.HasPrefix(v, "data:") && !strings.HasPrefix(v, "data:image/"))
}
