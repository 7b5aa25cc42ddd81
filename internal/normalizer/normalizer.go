// Package normalizer converte os campos textuais brutos extraídos das
// páginas em valores canônicos tipados. Todas as funções são puras: entrada
// malformada vira um *ParseError, nunca um panic.
package normalizer

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Locale indica a convenção de separadores usada pela fonte. As duas
// convenções são ambíguas entre si ("1.234,56" vs "1,234.56"), então a
// dica é declarada por fonte em vez de detectada.
type Locale string

const (
	// LocaleCommaDecimal: vírgula decimal, ponto como milhar ("1.234,56").
	LocaleCommaDecimal Locale = "comma-decimal"
	// LocaleDotDecimal: ponto decimal, vírgula como milhar ("1,234.56").
	LocaleDotDecimal Locale = "dot-decimal"
)

// ParseError descreve um campo que não pôde ser normalizado.
type ParseError struct {
	Field  string
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("campo %s: %s (valor bruto: %q)", e.Field, e.Reason, e.Raw)
}

// símbolos de moeda e ruído que as fontes colocam junto do preço
var currencyRe = regexp.MustCompile(`(?i)(€|\$|eur|lek|r\$)`)

var validNumberRe = regexp.MustCompile(`^-?[0-9.,]+$`)

// formatos aceitos por convenção: inteiro com milhares agrupados de três em
// três e parte decimal opcional
var (
	commaDecimalRe = regexp.MustCompile(`^(\d{1,3}(\.\d{3})*|\d+)(,\d+)?$`)
	dotDecimalRe   = regexp.MustCompile(`^(\d{1,3}(,\d{3})*|\d+)(\.\d+)?$`)
)

// ParsePrice normaliza um preço textual ("1.234,56 €") para float64 com
// duas casas, seguindo a convenção de separadores da fonte. Preços
// negativos são rejeitados.
func ParsePrice(raw string, locale Locale) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ParseError{Field: "price", Raw: raw, Reason: "vazio"}
	}

	s = currencyRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || !validNumberRe.MatchString(s) {
		return 0, &ParseError{Field: "price", Raw: raw, Reason: "caracteres inválidos"}
	}

	switch locale {
	case LocaleCommaDecimal:
		if !commaDecimalRe.MatchString(s) {
			return 0, &ParseError{Field: "price", Raw: raw, Reason: "formato não bate com a convenção vírgula-decimal"}
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case LocaleDotDecimal:
		if !dotDecimalRe.MatchString(s) {
			return 0, &ParseError{Field: "price", Raw: raw, Reason: "formato não bate com a convenção ponto-decimal"}
		}
		s = strings.ReplaceAll(s, ",", "")
	default:
		return 0, &ParseError{Field: "price", Raw: raw, Reason: fmt.Sprintf("locale desconhecido %q", locale)}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ParseError{Field: "price", Raw: raw, Reason: "não é um número"}
	}
	if v < 0 {
		return 0, &ParseError{Field: "price", Raw: raw, Reason: "preço negativo"}
	}
	return round2(v), nil
}

// ParsePercent normaliza um rótulo de desconto ("-15%") para o percentual
// absoluto.
func ParsePercent(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ParseError{Field: "discount", Raw: raw, Reason: "vazio"}
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 100 {
		return 0, &ParseError{Field: "discount", Raw: raw, Reason: "percentual inválido"}
	}
	return round2(v), nil
}

// Discount calcula o percentual de desconto a partir do preço antigo e do
// atual. Retorna nil quando não há desconto a registrar (sem preço antigo,
// ou antigo <= atual).
func Discount(oldPrice *float64, price float64) *float64 {
	if oldPrice == nil || *oldPrice <= 0 || *oldPrice <= price {
		return nil
	}
	d := round2((*oldPrice - price) / *oldPrice * 100)
	return &d
}

// ConsistentDiscount verifica se o desconto anunciado pela fonte bate com o
// calculado a partir dos preços, dentro da tolerância (pontos percentuais).
// É validação: inconsistência é registrada em log, não derruba o registro.
func ConsistentDiscount(oldPrice, price, claimed, tolerance float64) bool {
	if oldPrice <= 0 {
		return false
	}
	expected := (oldPrice - price) / oldPrice * 100
	return math.Abs(expected-claimed) <= tolerance
}

// ResolveURL resolve uma URL possivelmente relativa contra a base da fonte.
func ResolveURL(raw, base string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ParseError{Field: "url", Raw: raw, Reason: "vazia"}
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", &ParseError{Field: "url", Raw: raw, Reason: "malformada"}
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return "", &ParseError{Field: "url", Raw: raw, Reason: "base inválida para URL relativa"}
	}
	return b.ResolveReference(u).String(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
