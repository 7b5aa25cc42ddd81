// Package monitor agenda as execuções de ingestão: uma passada imediata na
// subida e depois uma a cada intervalo, com as fontes rodando em paralelo.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"catalogo-precos/internal/ingest"
	"catalogo-precos/internal/notifier"
	"catalogo-precos/internal/scraper"
)

// Monitor roda o ciclo de verificação de preços.
type Monitor struct {
	Runner   *ingest.Runner
	Registry *scraper.Registry
	Notifier *notifier.Notifier
	Interval time.Duration
}

// Start bloqueia até o contexto ser cancelado, executando uma passada
// completa imediatamente e depois a cada intervalo.
func (m *Monitor) Start(ctx context.Context) {
	log.Printf("[monitor] iniciando, intervalo de %s", m.Interval)
	m.runAll(ctx)

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[monitor] encerrando")
			return
		case <-ticker.C:
			m.runAll(ctx)
		}
	}
}

// runAll dispara uma execução por fonte e espera todas terminarem. Uma
// fonte falhando não atrapalha as outras.
func (m *Monitor) runAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, a := range m.Registry.All() {
		wg.Add(1)
		go func(a scraper.Adapter) {
			defer wg.Done()
			sum, err := m.Runner.Run(ctx, a)
			if err != nil {
				log.Printf("[monitor] %s: %v (%s)", a.Source(), err, sum)
				return
			}
			log.Printf("[monitor] %s", sum)
			if len(sum.PriceDrops) > 0 {
				m.Notifier.NotifyDrops(sum.PriceDrops)
			}
		}(a)
	}
	wg.Wait()
}
