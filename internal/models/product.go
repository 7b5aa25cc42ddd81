package models

import "time"

// Record representa um produto normalizado extraído de uma página raspada.
// É efêmero: existe apenas entre o adapter e a reconciliação, nunca é
// persistido diretamente.
type Record struct {
	ProductID  string // identificador único dentro da fonte
	Name       string
	Price      float64  // preço de venda atual, obrigatório, >= 0
	OldPrice   *float64 // preço antes do desconto, quando anunciado
	Discount   *float64 // percentual de desconto (0-100), quando anunciado
	ProductURL string
	ImageURL   string
	ObservedAt time.Time // momento da raspagem
}

// PriceTuple é a tupla comparada pela reconciliação. Qualquer campo
// diferente caracteriza um evento de preço, mesmo que o preço em si
// não tenha mudado (ex.: promoção registrada só via desconto).
type PriceTuple struct {
	Price    float64
	OldPrice *float64
	Discount *float64
}

// Tuple retorna a tupla de preço do registro.
func (r Record) Tuple() PriceTuple {
	return PriceTuple{Price: r.Price, OldPrice: r.OldPrice, Discount: r.Discount}
}

// Equal compara duas tuplas campo a campo, tratando ausência como valor.
func (t PriceTuple) Equal(o PriceTuple) bool {
	return t.Price == o.Price &&
		floatPtrEqual(t.OldPrice, o.OldPrice) &&
		floatPtrEqual(t.Discount, o.Discount)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Product é a linha persistente: uma por (source, product_id), criada na
// primeira aparição e nunca removida pelo núcleo. Os campos espelham o
// último Record reconciliado com sucesso.
type Product struct {
	ID         int64
	Source     string
	ProductID  string
	Name       string
	Price      float64
	OldPrice   *float64
	Discount   *float64
	ProductURL string
	ImageURL   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastSeenAt time.Time // última aparição na fonte; base para políticas externas de expiração
}

// Tuple retorna a tupla de preço espelhada no produto.
func (p Product) Tuple() PriceTuple {
	return PriceTuple{Price: p.Price, OldPrice: p.OldPrice, Discount: p.Discount}
}

// PriceHistory é uma linha da trilha de auditoria de preços. Por produto,
// no máximo uma linha está aberta (IsOpen) a qualquer momento; linhas
// fechadas nunca são alteradas.
type PriceHistory struct {
	ID         int64
	ProductRef int64 // linha em products; o histórico pertence exclusivamente ao produto
	Price      float64
	OldPrice   *float64
	Discount   *float64
	IsOpen     bool
	ValidFrom  time.Time
	ValidTo    *time.Time // nulo enquanto aberta
}

// Tuple retorna a tupla de preço do snapshot.
func (h PriceHistory) Tuple() PriceTuple {
	return PriceTuple{Price: h.Price, OldPrice: h.OldPrice, Discount: h.Discount}
}
