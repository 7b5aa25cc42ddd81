package reconciler

import (
	"testing"
	"time"

	"catalogo-precos/internal/models"
)

func fptr(v float64) *float64 { return &v }

func record(price float64, old, disc *float64) models.Record {
	return models.Record{
		ProductID:  "abc-1",
		Name:       "Produto Teste",
		Price:      price,
		OldPrice:   old,
		Discount:   disc,
		ProductURL: "https://loja.example/p/abc-1",
		ObservedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDecideCreate(t *testing.T) {
	d := Decide(nil, nil, record(19.99, nil, nil))
	if d.Action != ActionCreate {
		t.Fatalf("Action = %v, esperava create", d.Action)
	}
	if d.Record.Price != 19.99 {
		t.Errorf("Record.Price = %v", d.Record.Price)
	}
}

func TestDecideNoChange(t *testing.T) {
	p := &models.Product{ID: 7, Source: "neptun", ProductID: "abc-1", Price: 19.99}
	open := &models.PriceHistory{ProductRef: 7, Price: 19.99, IsOpen: true}

	d := Decide(p, open, record(19.99, nil, nil))
	if d.Action != ActionNoChange {
		t.Fatalf("Action = %v, esperava no_change", d.Action)
	}
	if d.Product == nil || d.Product.ID != 7 {
		t.Errorf("Product não propagado na decisão")
	}
}

func TestDecidePriceChange(t *testing.T) {
	p := &models.Product{ID: 7, Price: 19.99}
	open := &models.PriceHistory{ProductRef: 7, Price: 19.99, IsOpen: true}

	d := Decide(p, open, record(14.99, fptr(19.99), fptr(25.01)))
	if d.Action != ActionPriceChange {
		t.Fatalf("Action = %v, esperava price_change", d.Action)
	}
}

// Mudança só no desconto, com preço de venda idêntico, ainda é um evento
// de preço: a tupla inteira conta.
func TestDecideDiscountOnlyChange(t *testing.T) {
	p := &models.Product{ID: 7, Price: 19.99}
	open := &models.PriceHistory{ProductRef: 7, Price: 19.99, IsOpen: true}

	d := Decide(p, open, record(19.99, fptr(24.99), fptr(20.01)))
	if d.Action != ActionPriceChange {
		t.Fatalf("Action = %v, esperava price_change para tupla com desconto novo", d.Action)
	}
}

// Metadados (nome, URL) não entram na tupla: mudam sem gerar histórico.
func TestDecideMetadataOnly(t *testing.T) {
	p := &models.Product{ID: 7, Price: 19.99, Name: "Nome Antigo"}
	open := &models.PriceHistory{ProductRef: 7, Price: 19.99, IsOpen: true}

	in := record(19.99, nil, nil)
	in.Name = "Nome Novo"

	d := Decide(p, open, in)
	if d.Action != ActionNoChange {
		t.Fatalf("Action = %v, metadados não disparam histórico", d.Action)
	}
}

// Produto existente sem linha aberta é anômalo; reabrimos via price_change.
func TestDecideMissingOpenRow(t *testing.T) {
	p := &models.Product{ID: 7, Price: 19.99}

	d := Decide(p, nil, record(19.99, nil, nil))
	if d.Action != ActionPriceChange {
		t.Fatalf("Action = %v, esperava price_change sem linha aberta", d.Action)
	}
}

func TestTupleEqualNilVsValue(t *testing.T) {
	a := models.PriceTuple{Price: 10}
	b := models.PriceTuple{Price: 10, OldPrice: fptr(15)}
	if a.Equal(b) {
		t.Error("tuplas com OldPrice nil vs valor não podem ser iguais")
	}
}
