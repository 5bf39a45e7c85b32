package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	errEmptyTitle    = errors.New("article title is empty")
	errMissingH1     = errors.New("article HTML has no <h1> heading")
	errInvalidSchema = errors.New("article schema is not valid JSON")
)

// articleStructure はHTMLから読み取った記事の構造。
type articleStructure struct {
	HasH1    bool
	Headings []string
	JSONLD   []json.RawMessage
}

// inspectHTML は記事HTMLを解析し、見出しとJSON-LDを抽出する。
func inspectHTML(fragment string) (*articleStructure, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("failed to parse article HTML: %w", err)
	}

	s := &articleStructure{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4:
				if n.DataAtom == atom.H1 {
					s.HasH1 = true
				}
				if text := normalizeTopic(textContent(n)); text != "" {
					s.Headings = append(s.Headings, text)
				}
				return
			case atom.Script:
				if strings.EqualFold(attr(n, "type"), "application/ld+json") {
					if data := strings.TrimSpace(textContent(n)); data != "" {
						s.JSONLD = append(s.JSONLD, json.RawMessage(data))
					}
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return s, nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
