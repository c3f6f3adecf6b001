// Package render rebuilds the script tags of server-rendered widget HTML.
// Fragments injected via innerHTML carry inert scripts; serving a widget
// requires re-emitting each script as a fresh element so it executes, in a
// deterministic order.
package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultScriptType is used when a script tag carries no type attribute
const DefaultScriptType = "text/javascript"

// DefaultReporter is the page-side function external script onload hooks
// call with the script token
const DefaultReporter = "dashwallScriptLoaded"

// Script is one re-insertable script extracted from a widget fragment
type Script struct {
	// External is true when the script loads from a src URL
	External bool
	// Src is the external URL, empty for inline scripts
	Src string
	// Type is the script MIME type, never empty
	Type string
	// Content is the inline body, empty for external scripts
	Content string
}

// Token identifies the script toward the library loader. External scripts
// report their src.
func (s Script) Token() string {
	if s.External {
		return s.Src
	}
	return ""
}

// Engine rewrites widget fragments. Reporter is the name of the page
// function invoked by external script onload hooks; the zero value uses
// DefaultReporter.
type Engine struct {
	Reporter string
}

// Plan parses a fragment and returns its scripts in execution order:
// external-src scripts first so libraries establish their globals, inline
// scripts second, document order within each group.
func (e *Engine) Plan(fragment string) ([]Script, error) {
	root, err := parseFragment(fragment)
	if err != nil {
		return nil, err
	}
	scripts := collectScripts(root)
	return partition(scripts), nil
}

// Rewrite strips the inert scripts from a fragment and appends fresh
// equivalents in execution order. Each new script keeps the original type
// (default text/javascript) and either src or inline content, carries
// async="false" so insertion order is execution order, and external
// scripts get an onload hook that reports their token.
func (e *Engine) Rewrite(fragment string) (string, []Script, error) {
	root, err := parseFragment(fragment)
	if err != nil {
		return "", nil, err
	}

	nodes := scriptNodes(root)
	for _, n := range nodes {
		n.Parent.RemoveChild(n)
	}

	plan := partition(nodesToScripts(nodes))
	for _, s := range plan {
		root.AppendChild(e.buildNode(s))
	}

	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", nil, err
		}
	}
	return b.String(), plan, nil
}

func (e *Engine) reporter() string {
	if e.Reporter != "" {
		return e.Reporter
	}
	return DefaultReporter
}

func (e *Engine) buildNode(s Script) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     "script",
		Attr: []html.Attribute{
			{Key: "type", Val: s.Type},
			{Key: "async", Val: "false"},
		},
	}
	if s.External {
		n.Attr = append(n.Attr,
			html.Attribute{Key: "src", Val: s.Src},
			html.Attribute{Key: "onload", Val: e.reporter() + "('" + escapeToken(s.Src) + "')"},
		)
	} else {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s.Content})
	}
	return n
}

func parseFragment(fragment string) (*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	children, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	for _, c := range children {
		root.AppendChild(c)
	}
	return root, nil
}

// scriptNodes collects script descendants in document order
func scriptNodes(root *html.Node) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script {
			nodes = append(nodes, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return nodes
}

func collectScripts(root *html.Node) []Script {
	return nodesToScripts(scriptNodes(root))
}

func nodesToScripts(nodes []*html.Node) []Script {
	scripts := make([]Script, 0, len(nodes))
	for _, n := range nodes {
		s := Script{Type: DefaultScriptType}
		for _, a := range n.Attr {
			switch a.Key {
			case "src":
				s.Src = a.Val
				s.External = true
			case "type":
				if a.Val != "" {
					s.Type = a.Val
				}
			}
		}
		if !s.External {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			s.Content = b.String()
		}
		scripts = append(scripts, s)
	}
	return scripts
}

// partition orders external scripts before inline ones, keeping document
// order within each group
func partition(scripts []Script) []Script {
	ordered := make([]Script, 0, len(scripts))
	for _, s := range scripts {
		if s.External {
			ordered = append(ordered, s)
		}
	}
	for _, s := range scripts {
		if !s.External {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

func escapeToken(token string) string {
	token = strings.ReplaceAll(token, `\`, `\\`)
	return strings.ReplaceAll(token, "'", `\'`)
}
