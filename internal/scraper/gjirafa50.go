package scraper

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"catalogo-precos/internal/models"
	"catalogo-precos/internal/normalizer"
)

// Gjirafa50 raspa a busca da gjirafa50.com. A resposta é um envelope JSON
// com o HTML da grade de produtos embutido e o total de páginas.
type Gjirafa50 struct {
	base string
}

// NewGjirafa50 cria o adapter com a URL base da loja.
func NewGjirafa50(base string) *Gjirafa50 {
	return &Gjirafa50{base: strings.TrimRight(base, "/")}
}

func (g *Gjirafa50) Source() string { return "gjirafa50" }

func (g *Gjirafa50) PageURL(page int) string {
	return fmt.Sprintf("%s/product/search?pagenumber=%d", g.base, page)
}

type gjirafa50Envelope struct {
	HTML       string `json:"html"`
	TotalPages int    `json:"totalpages"`
}

func (g *Gjirafa50) ParsePage(payload []byte) ([]models.Record, []RecordFailure) {
	var env gjirafa50Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, []RecordFailure{{Source: g.Source(), Fragment: "envelope", Field: "html", Err: err}}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(env.HTML))
	if err != nil {
		return nil, []RecordFailure{{Source: g.Source(), Fragment: "envelope", Field: "html", Err: err}}
	}

	observed := observedNow()
	var records []models.Record
	var failures []RecordFailure

	doc.Find("div.item-box").Each(func(i int, s *goquery.Selection) {
		fragment := fmt.Sprintf("item-box[%d]", i)
		fail := func(field string, err error) {
			failures = append(failures, RecordFailure{Source: g.Source(), Fragment: fragment, Field: field, Err: err})
		}

		item := s.Find("div.product-item")
		id := strings.TrimSpace(item.AttrOr("data-productid", ""))
		if id == "" {
			fail("product_id", fmt.Errorf("atributo data-productid ausente"))
			return
		}
		fragment = id

		// o nome vem dentro do literal de template no onclick
		name := ""
		if onclick, ok := item.Attr("onclick"); ok {
			if parts := strings.Split(onclick, "`"); len(parts) >= 2 {
				name = strings.TrimSpace(parts[1])
			}
		}

		price, err := normalizer.ParsePrice(s.Find("span.price").First().Text(), normalizer.LocaleDotDecimal)
		if err != nil {
			fail("price", err)
			return
		}

		var oldPrice *float64
		if raw := strings.TrimSpace(s.Find("span.old-price").First().Text()); raw != "" {
			if v, err := normalizer.ParsePrice(raw, normalizer.LocaleDotDecimal); err == nil {
				oldPrice = &v
			}
		}

		discount := normalizer.Discount(oldPrice, price)
		if raw := strings.TrimSpace(s.Find("div.discount__label").First().Text()); raw != "" {
			if v, err := normalizer.ParsePercent(raw); err == nil {
				// o selo anunciado prevalece; divergência do calculado só
				// gera log
				if oldPrice != nil && !normalizer.ConsistentDiscount(*oldPrice, price, v, 0.5) {
					log.Printf("[scraper] fonte %s, item %s: desconto anunciado %.2f%% difere dos preços %.2f/%.2f",
						g.Source(), id, v, *oldPrice, price)
				}
				discount = &v
			}
		}

		// URL e imagem são opcionais: degradam para vazio em vez de falhar
		productURL := ""
		if href, ok := s.Find("a").First().Attr("href"); ok {
			if u, err := normalizer.ResolveURL(href, g.base); err == nil {
				productURL = u
			}
		}
		imageURL := ""
		if src, ok := s.Find("img").First().Attr("src"); ok {
			if u, err := normalizer.ResolveURL(src, g.base); err == nil {
				imageURL = u
			}
		}

		records = append(records, models.Record{
			ProductID:  id,
			Name:       name,
			Price:      price,
			OldPrice:   oldPrice,
			Discount:   discount,
			ProductURL: productURL,
			ImageURL:   imageURL,
			ObservedAt: observed,
		})
	})

	return records, failures
}

// NextPage usa o campo totalpages anunciado pelo envelope da própria fonte.
func (g *Gjirafa50) NextPage(payload []byte, current int) (int, bool) {
	var env gjirafa50Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return 0, false
	}
	if current >= env.TotalPages {
		return 0, false
	}
	return current + 1, true
}
