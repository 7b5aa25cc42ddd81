package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"catalogo-precos/internal/models"
	"catalogo-precos/internal/normalizer"
)

// Gjirafamall raspa as páginas de listagem de categoria da gjirafamall.com.
// O id do produto só aparece no onclick de analytics do link.
type Gjirafamall struct {
	base     string
	maxPages int
}

// NewGjirafamall cria o adapter com a URL da categoria e o limite de páginas.
func NewGjirafamall(base string, maxPages int) *Gjirafamall {
	return &Gjirafamall{base: strings.TrimRight(base, "/"), maxPages: maxPages}
}

func (g *Gjirafamall) Source() string { return "gjirafamall" }

func (g *Gjirafamall) PageURL(page int) string {
	return fmt.Sprintf("%s?s=72&i=%d", g.base, page)
}

var clickedObjectRe = regexp.MustCompile(`clickedObjectEvent\('(\d+)'\)`)

func (g *Gjirafamall) ParsePage(payload []byte) ([]models.Record, []RecordFailure) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(payload)))
	if err != nil {
		return nil, []RecordFailure{{Source: g.Source(), Fragment: "página", Field: "html", Err: err}}
	}

	observed := observedNow()
	var records []models.Record
	var failures []RecordFailure

	doc.Find("div.art-data-block").Each(func(i int, s *goquery.Selection) {
		fragment := fmt.Sprintf("art-data-block[%d]", i)
		fail := func(field string, err error) {
			failures = append(failures, RecordFailure{Source: g.Source(), Fragment: fragment, Field: field, Err: err})
		}

		nameBlock := s.Find("div.art-name")
		link := nameBlock.Find("a").First()

		id := ""
		if onclick, ok := link.Attr("onclick"); ok {
			if m := clickedObjectRe.FindStringSubmatch(onclick); m != nil {
				id = m[1]
			}
		}
		if id == "" {
			fail("product_id", fmt.Errorf("onclick sem clickedObjectEvent"))
			return
		}
		fragment = id

		name := strings.TrimSpace(nameBlock.Find("h2").First().Text())

		price, err := normalizer.ParsePrice(s.Find("span.art-price").First().Text(), normalizer.LocaleCommaDecimal)
		if err != nil {
			fail("price", err)
			return
		}

		var oldPrice *float64
		if raw := strings.TrimSpace(s.Find("span.art-oldprice").First().Text()); raw != "" {
			if v, err := normalizer.ParsePrice(raw, normalizer.LocaleCommaDecimal); err == nil {
				oldPrice = &v
			}
		}

		productURL := ""
		if href, ok := link.Attr("href"); ok {
			if u, err := normalizer.ResolveURL(href, siteRoot(g.base)); err == nil {
				productURL = u
			}
		}
		imageURL := ""
		if preload, ok := s.Find("div.art-picture-block").First().Attr("data-preload"); ok {
			if u, err := normalizer.ResolveURL(preload, siteRoot(g.base)); err == nil {
				imageURL = u
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

func (g *Gjirafamall) NextPage(_ []byte, current int) (int, bool) {
	if current >= g.maxPages {
		return 0, false
	}
	return current + 1, true
}
