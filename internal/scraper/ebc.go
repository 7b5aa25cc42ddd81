package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"catalogo-precos/internal/models"
	"catalogo-precos/internal/normalizer"
)

// EBC raspa as páginas de categoria da ebc.shop. O id do produto é o último
// segmento da URL do item; quando a loja anuncia um preço promocional,
// ele é o preço de venda e o preço cheio vira old_price.
type EBC struct {
	base     string
	maxPages int
}

// NewEBC cria o adapter com a URL da categoria e o limite de páginas.
func NewEBC(base string, maxPages int) *EBC {
	return &EBC{base: strings.TrimRight(base, "/"), maxPages: maxPages}
}

func (e *EBC) Source() string { return "ebc" }

func (e *EBC) PageURL(page int) string {
	return fmt.Sprintf("%s?page=%d", e.base, page)
}

var bgImageRe = regexp.MustCompile(`url\('([^']+)'\)`)

func (e *EBC) ParsePage(payload []byte) ([]models.Record, []RecordFailure) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(payload)))
	if err != nil {
		return nil, []RecordFailure{{Source: e.Source(), Fragment: "página", Field: "html", Err: err}}
	}

	observed := observedNow()
	var records []models.Record
	var failures []RecordFailure

	doc.Find("article.single_product").Each(func(i int, s *goquery.Selection) {
		fragment := fmt.Sprintf("single_product[%d]", i)
		fail := func(field string, err error) {
			failures = append(failures, RecordFailure{Source: e.Source(), Fragment: fragment, Field: field, Err: err})
		}

		href, ok := s.Find("a.primary_img").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			fail("product_id", fmt.Errorf("link do produto ausente"))
			return
		}
		segments := strings.Split(strings.Trim(href, "/"), "/")
		id := segments[len(segments)-1]
		if id == "" {
			fail("product_id", fmt.Errorf("URL sem segmento final: %s", href))
			return
		}
		fragment = id

		name := strings.TrimSpace(s.Find("h4.product_name").First().Text())

		full, err := normalizer.ParsePrice(s.Find("span.current_price").First().Text(), normalizer.LocaleCommaDecimal)
		if err != nil {
			fail("price", err)
			return
		}

		price := full
		var oldPrice *float64
		if raw := strings.TrimSpace(s.Find("span.discount_price").First().Text()); raw != "" {
			if promo, err := normalizer.ParsePrice(raw, normalizer.LocaleCommaDecimal); err == nil && promo < full {
				price = promo
				oldPrice = &full
			}
		}

		productURL := ""
		if u, err := normalizer.ResolveURL(href, siteRoot(e.base)); err == nil {
			productURL = u
		}
		imageURL := ""
		if style, ok := s.Find("div.products-single-image").First().Attr("style"); ok {
			if m := bgImageRe.FindStringSubmatch(style); m != nil {
				if u, err := normalizer.ResolveURL(m[1], siteRoot(e.base)); err == nil {
					imageURL = u
				}
			}
		}

		records = append(records, models.Record{
			ProductID:  id,
			Name:       name,
			Price:      price,
			OldPrice:   oldPrice,
			Discount:   normalizer.Discount(oldPrice, price),
			ProductURL: productURL,
			ImageURL:   imageURL,
			ObservedAt: observed,
		})
	})

	return records, failures
}

func (e *EBC) NextPage(_ []byte, current int) (int, bool) {
	if current >= e.maxPages {
		return 0, false
	}
	return current + 1, true
}
