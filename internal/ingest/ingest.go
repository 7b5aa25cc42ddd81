// Package ingest orquestra uma execução de ingestão: busca as páginas de
// uma fonte, reconcilia cada registro contra o catálogo e resume o que
// aconteceu. Falhas de item nunca derrubam a execução; falhas de página
// derrubam apenas quando a primeira página falha ou quando páginas demais
// falham em sequência.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"catalogo-precos/internal/database"
	"catalogo-precos/internal/reconciler"
	"catalogo-precos/internal/scraper"
)

// ErrRunFailed marca uma execução abortada: primeira página inalcançável ou
// sequência de páginas falhando acima do limite. O que já foi aplicado no
// banco permanece.
var ErrRunFailed = errors.New("execução de ingestão falhou")

// Fetcher busca o corpo bruto de uma URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// EventSink publica eventos de mudança de preço para consumidores externos.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// Event é o fato publicado quando a reconciliação cria um produto ou
// registra uma mudança de preço.
type Event struct {
	Source     string    `json:"source"`
	ProductID  string    `json:"product_id"`
	Action     string    `json:"action"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	OldPrice   *float64  `json:"old_price,omitempty"`
	Discount   *float64  `json:"discount,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// PriceDrop descreve uma queda de preço detectada na execução, para o
// notificador.
type PriceDrop struct {
	Source     string
	Name       string
	ProductURL string
	From       float64
	To         float64
}

// Summary resume uma execução por fonte.
type Summary struct {
	Source       string
	Pages        int
	PagesFailed  int
	Created      int
	PriceChanged int
	Unchanged    int
	Failed       int // itens que não viraram registro canônico
	Dropped      int // registros válidos perdidos por falha de persistência
	Failures     []scraper.RecordFailure // contextos de itens falhos e de descartes do store
	PriceDrops   []PriceDrop
	Duration     time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("fonte=%s páginas=%d criados=%d mudanças=%d iguais=%d itens_falhos=%d descartados=%d em %s",
		s.Source, s.Pages, s.Created, s.PriceChanged, s.Unchanged, s.Failed, s.Dropped, s.Duration.Round(time.Millisecond))
}

// Runner executa ingestões. Events é opcional.
type Runner struct {
	Fetcher         Fetcher
	Store           database.Store
	Events          EventSink
	Workers         int
	MaxPageFailures int

	keys keyedMutex
}

// Run ingere todas as páginas de uma fonte. Retorna o resumo mesmo quando
// a execução falha no meio.
func (r *Runner) Run(ctx context.Context, a scraper.Adapter) (Summary, error) {
	start := time.Now()
	sum := Summary{Source: a.Source()}

	workers := r.Workers
	if workers <= 0 {
		workers = 4
	}
	maxFail := r.MaxPageFailures
	if maxFail <= 0 {
		maxFail = 3
	}

	// a primeira página decide se a fonte está de pé
	first, err := r.Fetcher.Fetch(ctx, a.PageURL(1))
	if err != nil {
		sum.Duration = time.Since(start)
		return sum, fmt.Errorf("%w: primeira página de %s: %v", ErrRunFailed, a.Source(), err)
	}
	sum.Pages = 1
	nRecords, nFailures := r.processPage(ctx, a, first, &sum, nil)
	// página sem nenhum registro mas com falha é indistinguível de fonte
	// quebrada (ex.: markup mudou e o adapter não reconhece mais nada)
	if nRecords == 0 && nFailures > 0 {
		sum.Duration = time.Since(start)
		return sum, fmt.Errorf("%w: primeira página de %s não rendeu nenhum registro", ErrRunFailed, a.Source())
	}

	// a resposta da primeira página anuncia quantas existem
	var pages []int
	for cur := 1; ; {
		next, ok := a.NextPage(first, cur)
		if !ok {
			break
		}
		pages = append(pages, next)
		cur = next
	}

	var (
		mu          sync.Mutex
		failedPages []int
	)
	pageCh := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range pageCh {
				payload, err := r.Fetcher.Fetch(ctx, a.PageURL(page))
				if err != nil {
					log.Printf("[ingest] fonte %s: página %d falhou: %v", a.Source(), page, err)
					mu.Lock()
					failedPages = append(failedPages, page)
					mu.Unlock()
					continue
				}
				r.processPage(ctx, a, payload, &sum, &mu)
			}
		}()
	}

	for _, page := range pages {
		select {
		case <-ctx.Done():
			close(pageCh)
			wg.Wait()
			sum.Duration = time.Since(start)
			return sum, ctx.Err()
		case pageCh <- page:
		}
	}
	close(pageCh)
	wg.Wait()

	sum.Pages += len(pages) - len(failedPages)
	sum.PagesFailed = len(failedPages)
	sum.Duration = time.Since(start)

	// cancelamento vence qualquer veredito sobre a execução
	if ctx.Err() != nil {
		return sum, ctx.Err()
	}
	if run := longestConsecutive(failedPages); run >= maxFail {
		return sum, fmt.Errorf("%w: %d páginas consecutivas de %s falharam", ErrRunFailed, run, a.Source())
	}
	return sum, nil
}

// processPage reconcilia os registros de uma página e devolve quantos
// registros e falhas de item o adapter reportou. mu nil indica chamada
// ainda sem concorrência (primeira página).
func (r *Runner) processPage(ctx context.Context, a scraper.Adapter, payload []byte, sum *Summary, mu *sync.Mutex) (int, int) {
	records, failures := a.ParsePage(payload)
	for _, f := range failures {
		log.Printf("[ingest] %v", f)
	}

	type outcome struct {
		action  reconciler.Action
		drop    *PriceDrop
		dropped bool
		failure *scraper.RecordFailure
	}
	var outcomes []outcome

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		o := outcome{}

		// serializa reconciliações do mesmo produto vindas de páginas
		// concorrentes
		unlock := r.keys.lock(a.Source() + "|" + rec.ProductID)
		existing, open, err := r.Store.GetCurrent(ctx, a.Source(), rec.ProductID)
		if err != nil {
			unlock()
			log.Printf("[ingest] fonte %s, item %s: leitura falhou: %v", a.Source(), rec.ProductID, err)
			o.dropped = true
			o.failure = &scraper.RecordFailure{Source: a.Source(), Fragment: rec.ProductID, Field: "store", Err: err}
			outcomes = append(outcomes, o)
			continue
		}
		d := reconciler.Decide(existing, open, rec)
		if err := r.Store.Apply(ctx, a.Source(), d); err != nil {
			unlock()
			log.Printf("[ingest] fonte %s, item %s: persistência falhou: %v", a.Source(), rec.ProductID, err)
			o.dropped = true
			o.failure = &scraper.RecordFailure{Source: a.Source(), Fragment: rec.ProductID, Field: "store", Err: err}
			outcomes = append(outcomes, o)
			continue
		}
		unlock()

		o.action = d.Action
		if d.Action == reconciler.ActionPriceChange && open != nil && rec.Price < open.Price {
			o.drop = &PriceDrop{
				Source:     a.Source(),
				Name:       rec.Name,
				ProductURL: rec.ProductURL,
				From:       open.Price,
				To:         rec.Price,
			}
		}
		outcomes = append(outcomes, o)

		if r.Events != nil && d.Action != reconciler.ActionNoChange {
			ev := Event{
				Source:     a.Source(),
				ProductID:  rec.ProductID,
				Action:     d.Action.String(),
				Name:       rec.Name,
				Price:      rec.Price,
				OldPrice:   rec.OldPrice,
				Discount:   rec.Discount,
				ObservedAt: rec.ObservedAt,
			}
			if err := r.Events.Publish(ctx, ev); err != nil {
				log.Printf("[ingest] publicação de evento falhou: %v", err)
			}
		}
	}

	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	sum.Failed += len(failures)
	sum.Failures = append(sum.Failures, failures...)
	for _, o := range outcomes {
		if o.dropped {
			sum.Dropped++
			if o.failure != nil {
				sum.Failures = append(sum.Failures, *o.failure)
			}
			continue
		}
		switch o.action {
		case reconciler.ActionCreate:
			sum.Created++
		case reconciler.ActionPriceChange:
			sum.PriceChanged++
		case reconciler.ActionNoChange:
			sum.Unchanged++
		}
		if o.drop != nil {
			sum.PriceDrops = append(sum.PriceDrops, *o.drop)
		}
	}
	return len(records), len(failures)
}

// longestConsecutive mede a maior sequência de números de página adjacentes.
func longestConsecutive(pages []int) int {
	if len(pages) == 0 {
		return 0
	}
	sort.Ints(pages)
	best, run := 1, 1
	for i := 1; i < len(pages); i++ {
		if pages[i] == pages[i-1]+1 {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}
	return best
}

// keyedMutex serializa por chave de produto sem manter um mutex global
// durante o acesso ao banco.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
