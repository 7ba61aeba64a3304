package sanitize

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Elements whose content is dropped along with the tag.
var droppedContent = tagSet("script", "style", "iframe", "object", "embed", "noscript", "template", "textarea", "select", "svg", "math")

var voidTags = tagSet("br")

var allowedSchemes = map[string]bool{"http": true, "https": true, "mailto": true}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// cleanText returns the text content of input with all markup removed,
// HTML-escaped, without control characters and trimmed.
func cleanText(input string) string {
	return strings.TrimSpace(walk(stripControl(input), nil))
}

// cleanHTML keeps tags in allowed, closes whatever is left open and drops
// every attribute except a safe href on links.
func cleanHTML(input string, allowed map[string]bool) string {
	return strings.TrimSpace(walk(stripControl(input), allowed))
}

func walk(input string, allowed map[string]bool) string {
	z := html.NewTokenizer(strings.NewReader(input))
	var (
		b    strings.Builder
		open []string
		skip []string
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()

		if len(skip) > 0 {
			switch tt {
			case html.StartTagToken:
				if tok.Data == skip[len(skip)-1] {
					skip = append(skip, tok.Data)
				}
			case html.EndTagToken:
				if tok.Data == skip[len(skip)-1] {
					skip = skip[:len(skip)-1]
				}
			}
			continue
		}

		switch tt {
		case html.TextToken:
			// entities are decoded by now, so &#1; surfaces here
			b.WriteString(textEscaper.Replace(stripControl(tok.Data)))

		case html.StartTagToken, html.SelfClosingTagToken:
			if droppedContent[tok.Data] {
				if tt == html.StartTagToken {
					skip = append(skip, tok.Data)
				}
				continue
			}
			if !allowed[tok.Data] {
				continue
			}
			writeStartTag(&b, tok)
			switch {
			case voidTags[tok.Data]:
			case tt == html.SelfClosingTagToken:
				b.WriteString("</" + tok.Data + ">")
			default:
				open = append(open, tok.Data)
			}

		case html.EndTagToken:
			if !allowed[tok.Data] || voidTags[tok.Data] {
				continue
			}
			idx := lastIndex(open, tok.Data)
			if idx < 0 {
				continue
			}
			for i := len(open) - 1; i >= idx; i-- {
				b.WriteString("</" + open[i] + ">")
			}
			open = open[:idx]
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
	return b.String()
}

func writeStartTag(b *strings.Builder, tok html.Token) {
	b.WriteString("<" + tok.Data)
	if tok.Data == "a" {
		for _, attr := range tok.Attr {
			if attr.Key == "href" {
				if href, ok := safeHref(attr.Val); ok {
					b.WriteString(` href="` + html.EscapeString(href) + `" rel="nofollow noopener"`)
				}
				break
			}
		}
	}
	b.WriteString(">")
}

func safeHref(raw string) (string, bool) {
	raw = strings.TrimSpace(stripControl(raw))
	u, err := url.Parse(raw)
	if err != nil || !allowedSchemes[strings.ToLower(u.Scheme)] {
		return "", false
	}
	return raw, true
}

func lastIndex(stack []string, tag string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return i
		}
	}
	return -1
}
