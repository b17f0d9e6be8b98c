package competitor

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"price_optimizer/internal/feature/pricing/domain"
)

var (
	numberToken = regexp.MustCompile(`\d[\d.,' ]*`)
	symbols     = map[string]string{
		"$": "USD",
		"€": "EUR",
		"£": "GBP",
		"¥": "JPY",
		"₹": "INR",
	}
	codes = map[string]bool{"USD": true, "EUR": true, "GBP": true, "JPY": true, "INR": true, "CAD": true, "AUD": true, "CHF": true}
)

// ExtractPrice は HTML ページから商品価格を探します。候補は次の順に試します。
//
//  1. itemprop="price" と content 属性を持つ要素
//  2. class が "price" または "amount" の要素
//  3. class に "price" を含む span、div、p 要素
//
// 同じグループ内では数値として解析できる最初の要素を採用します。
func ExtractPrice(r io.Reader) (float64, string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return 0, "", fmt.Errorf("%w: parse html: %v", domain.ErrNoData, err)
	}

	if n := find(doc, isMicrodataPrice); n != nil {
		if price, err := NormalizePrice(attr(n, "content")); err == nil {
			cur := ""
			if c := find(doc, func(n *html.Node) bool { return attr(n, "itemprop") == "priceCurrency" }); c != nil {
				cur = strings.ToUpper(attr(c, "content"))
			}
			return price, cur, nil
		}
	}

	for _, match := range []func(*html.Node) bool{hasPriceClass, containsPriceClass} {
		for _, n := range findAll(doc, match) {
			text := textOf(n)
			if price, err := NormalizePrice(text); err == nil {
				return price, currencyOf(text), nil
			}
		}
	}
	return 0, "", fmt.Errorf("%w: no price element on page", domain.ErrNoData)
}

// NormalizePrice は "$1,299.00"、"1.299,00 €"、"USD 15" のような表示文字列を数値に変換します。
func NormalizePrice(text string) (float64, error) {
	tok := strings.TrimSpace(numberToken.FindString(text))
	if tok == "" {
		return 0, fmt.Errorf("no number in %q", text)
	}
	tok = strings.NewReplacer("'", "", " ", "").Replace(tok)
	tok = strings.TrimRight(tok, ".,")

	lastDot := strings.LastIndex(tok, ".")
	lastComma := strings.LastIndex(tok, ",")
	switch {
	case lastComma > lastDot && len(tok)-lastComma-1 != 3:
		// 小数点がカンマ: 1.299,00 や 12,5
		tok = strings.ReplaceAll(tok, ".", "")
		tok = strings.Replace(tok, ",", ".", 1)
	case lastComma > lastDot && lastDot >= 0:
		// 1.299,000 は曖昧なのでカンマを小数点とみなす
		tok = strings.ReplaceAll(tok, ".", "")
		tok = strings.Replace(tok, ",", ".", 1)
	default:
		tok = strings.ReplaceAll(tok, ",", "")
	}

	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("non-positive price %q", text)
	}
	return v, nil
}

func currencyOf(text string) string {
	for sym, code := range symbols {
		if strings.Contains(text, sym) {
			return code
		}
	}
	for _, f := range strings.Fields(text) {
		if codes[f] {
			return f
		}
	}
	return ""
}

func isMicrodataPrice(n *html.Node) bool {
	return attr(n, "itemprop") == "price" && attr(n, "content") != ""
}

func hasPriceClass(n *html.Node) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == "price" || c == "amount" {
			return true
		}
	}
	return false
}

func containsPriceClass(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Span, atom.Div, atom.P:
		return strings.Contains(strings.ToLower(attr(n, "class")), "price")
	}
	return false
}

// find は ok に一致する最初の要素ノードを文書順で返します。
func find(n *html.Node, ok func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && ok(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, ok); m != nil {
			return m
		}
	}
	return nil
}

func findAll(n *html.Node, ok func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && ok(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
