package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"catalogo-precos/internal/models"
	"catalogo-precos/internal/normalizer"
)

// Neptun raspa as páginas de categoria da neptun-ks.com. A loja não expõe
// um id próprio na listagem, então o id é derivado do slug da URL do
// produto.
type Neptun struct {
	base     string
	maxPages int
}

// NewNeptun cria o adapter com a URL da categoria e o limite de páginas.
func NewNeptun(base string, maxPages int) *Neptun {
	return &Neptun{base: strings.TrimRight(base, "/"), maxPages: maxPages}
}

func (n *Neptun) Source() string { return "neptun" }

func (n *Neptun) PageURL(page int) string {
	if page == 1 {
		return n.base
	}
	return fmt.Sprintf("%s?page=%d", n.base, page)
}

func (n *Neptun) ParsePage(payload []byte) ([]models.Record, []RecordFailure) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(payload)))
	if err != nil {
		return nil, []RecordFailure{{Source: n.Source(), Fragment: "página", Field: "html", Err: err}}
	}

	observed := observedNow()
	var records []models.Record
	var failures []RecordFailure

	doc.Find("div.product-item").Each(func(i int, s *goquery.Selection) {
		fragment := fmt.Sprintf("product-item[%d]", i)
		fail := func(field string, err error) {
			failures = append(failures, RecordFailure{Source: n.Source(), Fragment: fragment, Field: field, Err: err})
		}

		href, ok := s.Find("a.product-link").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			fail("product_id", fmt.Errorf("link do produto ausente"))
			return
		}
		id := slugFromURL(href)
		if id == "" {
			fail("product_id", fmt.Errorf("URL sem slug: %s", href))
			return
		}
		fragment = id

		name := strings.TrimSpace(s.Find("h2.product-name").First().Text())

		price, err := normalizer.ParsePrice(s.Find("span.price").First().Text(), normalizer.LocaleCommaDecimal)
		if err != nil {
			fail("price", err)
			return
		}

		productURL := ""
		if u, err := normalizer.ResolveURL(href, siteRoot(n.base)); err == nil {
			productURL = u
		}
		imageURL := ""
		if src, ok := s.Find("img.product-image").First().Attr("src"); ok {
			if u, err := normalizer.ResolveURL(src, siteRoot(n.base)); err == nil {
				imageURL = u
			}
		}

		records = append(records, models.Record{
			ProductID:  id,
			Name:       name,
			Price:      price,
			ProductURL: productURL,
			ImageURL:   imageURL,
			ObservedAt: observed,
		})
	})

	return records, failures
}

// slugFromURL extrai o último segmento de caminho, sem extensão .nspx.
func slugFromURL(href string) string {
	trimmed := strings.Trim(href, "/")
	segments := strings.Split(trimmed, "/")
	slug := segments[len(segments)-1]
	if idx := strings.Index(slug, "?"); idx >= 0 {
		slug = slug[:idx]
	}
	return strings.TrimSuffix(slug, ".nspx")
}

func (n *Neptun) NextPage(_ []byte, current int) (int, bool) {
	if current >= n.maxPages {
		return 0, false
	}
	return current + 1, true
}
