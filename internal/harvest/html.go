package harvest

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"civicroster/internal"
	"civicroster/internal/util"
)

const minBioWords = 25

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "tr": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true, "main": true,
	"nav": true, "aside": true, "table": true, "dt": true, "dd": true,
	"figcaption": true, "address": true, "blockquote": true,
}

func parseHTML(html, pageURL string) (internal.PageInput, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return internal.PageInput{}, err
	}
	doc.Find("script,style,noscript,template").Remove()

	base, _ := url.Parse(pageURL)
	page := internal.PageInput{URL: pageURL}

	var b strings.Builder
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	writeText(&b, root)
	page.Text = cleanLines(b.String())

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		lower := strings.ToLower(href)
		switch {
		case strings.HasPrefix(lower, "mailto:"):
			addr := strings.TrimPrefix(lower, "mailto:")
			if i := strings.IndexByte(addr, '?'); i >= 0 {
				addr = addr[:i]
			}
			if unescaped, err := url.PathUnescape(addr); err == nil {
				addr = unescaped
			}
			page.Emails = appendUnique(page.Emails, strings.TrimSpace(addr))
		case strings.HasPrefix(lower, "tel:"):
			page.Phones = appendUnique(page.Phones, strings.TrimSpace(href[len("tel:"):]))
		}
	})
	for _, e := range ScanEmails(page.Text) {
		page.Emails = appendUnique(page.Emails, e)
	}
	for _, p := range ScanPhones(page.Text) {
		page.Phones = appendUnique(page.Phones, p)
	}

	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		if base != nil {
			if ref, err := url.Parse(src); err == nil {
				src = base.ResolveReference(ref).String()
			}
		}
		page.Images = append(page.Images, internal.Image{Src: src, Alt: util.NormalizeSpaces(img.AttrOr("alt", ""))})
	})

	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := util.NormalizeSpaces(p.Text())
		if len(strings.Fields(text)) >= minBioWords {
			page.Bios = appendUnique(page.Bios, text)
		}
	})

	return page, nil
}

// writeText renders visible text with block elements on their own lines and
// table cells separated by a pipe.
func writeText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch {
		case name == "#text":
			b.WriteString(node.Text())
		case name == "td" || name == "th":
			writeText(b, node)
			b.WriteString(" | ")
		case blockTags[name]:
			b.WriteString("\n")
			writeText(b, node)
			b.WriteString("\n")
		default:
			writeText(b, node)
		}
	})
}

func cleanLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Trim(util.NormalizeSpaces(line), "| ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
