// Package reconciler decide o que fazer com um registro recém-raspado
// comparado ao estado atual do catálogo. A decisão é pura: quem aplica no
// banco é o store, dentro de uma transação.
package reconciler

import (
	"catalogo-precos/internal/models"
)

// Action é o tipo de mudança decidida para um registro.
type Action int

const (
	// ActionCreate indica produto nunca visto: cria o produto e abre a
	// primeira linha de histórico.
	ActionCreate Action = iota
	// ActionNoChange indica preço idêntico ao vigente: só atualiza
	// metadados e o visto-por-último.
	ActionNoChange
	// ActionPriceChange indica tupla de preço diferente: fecha a linha
	// aberta e abre uma nova.
	ActionPriceChange
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionNoChange:
		return "no_change"
	case ActionPriceChange:
		return "price_change"
	}
	return "unknown"
}

// Decision carrega a ação e o registro que a motivou. Para
// ActionPriceChange, ObservedAt do registro é o instante que fecha a linha
// antiga e abre a nova, sem lacuna.
type Decision struct {
	Action  Action
	Record  models.Record
	Product *models.Product
}

// Decide compara o registro de entrada com o produto existente e sua linha
// de histórico aberta. existing nil significa produto novo. open nil com
// produto existente não deveria ocorrer (invariante do store), mas é
// tratado como mudança de preço para reabrir o histórico.
func Decide(existing *models.Product, open *models.PriceHistory, in models.Record) Decision {
	if existing == nil {
		return Decision{Action: ActionCreate, Record: in}
	}
	if open != nil && open.Tuple().Equal(in.Tuple()) {
		return Decision{Action: ActionNoChange, Record: in, Product: existing}
	}
	return Decision{Action: ActionPriceChange, Record: in, Product: existing}
}
