// Package scraper contém os adapters de fonte: cada um converte a resposta
// bruta de um site em registros canônicos. Nenhum adapter faz rede; quem
// busca as páginas é o fetcher, orquestrado pelo ingest.
package scraper

import (
	"fmt"
	"strings"
	"time"

	"catalogo-precos/internal/models"
)

// Adapter é o contrato de uma fonte. ParsePage nunca aborta por causa de um
// item malformado: cada item vira um Record ou uma RecordFailure,
// independentemente dos demais.
type Adapter interface {
	// Source identifica a fonte; compõe a chave (source, product_id) no banco.
	Source() string

	// PageURL monta a URL da página de listagem de número dado (1-based).
	PageURL(page int) string

	// ParsePage extrai os itens da resposta bruta de uma página.
	ParsePage(payload []byte) ([]models.Record, []RecordFailure)

	// NextPage informa a próxima página a buscar, dado o payload já obtido
	// (algumas fontes anunciam o total de páginas na própria resposta).
	// ok=false sinaliza fonte esgotada.
	NextPage(payload []byte, current int) (next int, ok bool)
}

// RecordFailure descreve um item que não pôde virar registro canônico.
// Carrega contexto suficiente para log e para o resumo da execução.
type RecordFailure struct {
	Source   string
	Fragment string // identidade do trecho bruto (product_id ou posição na página)
	Field    string // campo que falhou
	Err      error
}

func (f RecordFailure) Error() string {
	return fmt.Sprintf("fonte %s, item %s: campo %s: %v", f.Source, f.Fragment, f.Field, f.Err)
}

// Registry mantém os adapters disponíveis, como o registro de scrapers do
// monitor original.
type Registry struct {
	adapters []Adapter
}

// NewRegistry cria o registro com todas as fontes suportadas.
func NewRegistry(maxPages int) *Registry {
	return &Registry{
		adapters: []Adapter{
			NewGjirafa50("https://gjirafa50.com"),
			NewGjirafamall("https://gjirafamall.com/kozmetike-3", maxPages),
			NewEBC("https://ebc.shop/category/FRG", maxPages),
			NewFoleja("https://www.foleja.com", maxPages),
			NewNeptun("https://www.neptun-ks.com/TV___Audio___Video.nspx", maxPages),
		},
	}
}

// Find retorna o adapter da fonte pelo nome, ou nil.
func (r *Registry) Find(source string) Adapter {
	for _, a := range r.adapters {
		if a.Source() == source {
			return a
		}
	}
	return nil
}

// All retorna todos os adapters registrados.
func (r *Registry) All() []Adapter {
	return r.adapters
}

// Only restringe o registro às fontes listadas; lista vazia mantém todas.
func (r *Registry) Only(sources []string) *Registry {
	if len(sources) == 0 {
		return r
	}
	out := &Registry{}
	for _, s := range sources {
		if a := r.Find(s); a != nil {
			out.adapters = append(out.adapters, a)
		}
	}
	return out
}

// observedNow carimba o momento da raspagem; os adapters chamam uma vez por
// página para que itens da mesma página compartilhem o timestamp.
func observedNow() time.Time {
	return time.Now().UTC()
}

// siteRoot reduz uma URL de categoria à raiz do site, para resolver links
// relativos como /produto/123.
func siteRoot(base string) string {
	rest := base
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(base, prefix) {
			rest = strings.TrimPrefix(base, prefix)
			if idx := strings.Index(rest, "/"); idx >= 0 {
				return base[:len(prefix)+idx]
			}
			return base
		}
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return base[:idx]
	}
	return base
}
