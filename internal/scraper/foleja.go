package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"catalogo-precos/internal/models"
	"catalogo-precos/internal/normalizer"
)

// Foleja raspa a foleja.com, que embute a listagem de produtos num bloco
// dataLayer de JavaScript dentro do HTML da página.
type Foleja struct {
	base     string
	maxPages int
}

// NewFoleja cria o adapter com a URL base e o limite de páginas.
func NewFoleja(base string, maxPages int) *Foleja {
	return &Foleja{base: strings.TrimRight(base, "/"), maxPages: maxPages}
}

func (f *Foleja) Source() string { return "foleja" }

func (f *Foleja) PageURL(page int) string {
	return fmt.Sprintf("%s/navigation/c2e892a77619420387908fc3721ca9f2?order=acris-score-desc&p=%d", f.base, page)
}

var dataLayerRe = regexp.MustCompile(`(?s)dataLayer\s*=\s*(\[\{.*?\}\]|\{.*?\})\s*;?`)

type folejaListing struct {
	ProductListing struct {
		Products []folejaProduct `json:"products"`
	} `json:"productListing"`
}

type folejaProduct struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Currency string      `json:"currency"`
	URL      string      `json:"url"`
	Image    string      `json:"image"`
}

func (f *Foleja) ParsePage(payload []byte) ([]models.Record, []RecordFailure) {
	m := dataLayerRe.FindSubmatch(payload)
	if m == nil {
		return nil, []RecordFailure{{
			Source: f.Source(), Fragment: "página", Field: "dataLayer",
			Err: fmt.Errorf("bloco dataLayer não encontrado"),
		}}
	}

	// a fonte às vezes emite o JSON com aspas simples
	raw := strings.ReplaceAll(string(m[1]), "'", `"`)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	var listing folejaListing
	if err := json.Unmarshal([]byte(raw), &listing); err != nil {
		return nil, []RecordFailure{{Source: f.Source(), Fragment: "página", Field: "dataLayer", Err: err}}
	}

	observed := observedNow()
	var records []models.Record
	var failures []RecordFailure

	for i, p := range listing.ProductListing.Products {
		fragment := fmt.Sprintf("products[%d]", i)
		if strings.TrimSpace(p.ID) == "" {
			failures = append(failures, RecordFailure{
				Source: f.Source(), Fragment: fragment, Field: "product_id",
				Err: fmt.Errorf("id ausente"),
			})
			continue
		}
		fragment = p.ID

		price, err := p.Price.Float64()
		if err != nil || price < 0 {
			failures = append(failures, RecordFailure{
				Source: f.Source(), Fragment: fragment, Field: "price",
				Err: fmt.Errorf("preço inválido %q", p.Price.String()),
			})
			continue
		}

		productURL := ""
		if u, err := normalizer.ResolveURL(p.URL, f.base); err == nil {
			productURL = u
		}
		imageURL := ""
		if u, err := normalizer.ResolveURL(p.Image, f.base); err == nil {
			imageURL = u
		}

		records = append(records, models.Record{
			ProductID:  p.ID,
			Name:       strings.TrimSpace(p.Name),
			Price:      price,
			ProductURL: productURL,
			ImageURL:   imageURL,
			ObservedAt: observed,
		})
	}

	return records, failures
}

func (f *Foleja) NextPage(_ []byte, current int) (int, bool) {
	if current >= f.maxPages {
		return 0, false
	}
	return current + 1, true
}
