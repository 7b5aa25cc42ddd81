// Package database persiste o catálogo e a trilha de preços. Dois backends:
// SQLite em arquivo (padrão) e PostgreSQL via pgx, escolhidos pelo DSN.
// Toda aplicação de decisão roda em transação única: fechar a linha aberta
// e abrir a nova é atômico.
package database

import (
	"context"
	"fmt"
	"strings"

	"catalogo-precos/internal/models"
	"catalogo-precos/internal/reconciler"
)

// StoreFailure descreve uma operação de persistência que falhou. O registro
// que a causou conta como descartado na sumarização da execução.
type StoreFailure struct {
	Op  string
	Err error
}

func (e *StoreFailure) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreFailure) Unwrap() error { return e.Err }

// Store é o contrato de persistência do catálogo. GetCurrent devolve
// (nil, nil, nil) quando o produto não existe.
type Store interface {
	// GetCurrent busca o produto de uma fonte e sua linha de histórico
	// aberta, se houver.
	GetCurrent(ctx context.Context, source, productID string) (*models.Product, *models.PriceHistory, error)
	// Apply aplica uma decisão de reconciliação em transação única.
	Apply(ctx context.Context, source string, d reconciler.Decision) error
	// ListProducts pagina o catálogo, mais recentes primeiro.
	ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error)
	// GetProduct busca um produto pela chave da linha.
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	// GetPriceHistory devolve a trilha de um produto, mais recente primeiro.
	GetPriceHistory(ctx context.Context, productRef int64, limit int) ([]models.PriceHistory, error)
	Close() error
}

// Open escolhe o backend pelo DSN: prefixo postgres:// ou postgresql://
// abre um pool pgx, qualquer outro valor é tratado como caminho de arquivo
// SQLite.
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return openPostgres(ctx, dsn)
	}
	return openSQLite(dsn)
}
