package service

import (
	"sort"
	"strings"

	"grocery/catalog/internal/config"
	"grocery/catalog/internal/domain"

	"github.com/shopspring/decimal"
)

// rank scores every product and sorts by descending score. The sort is stable
// so equally scored products keep their discovery order.
func rank(products []domain.Product, q query, cfg config.SearchConfig) {
	for i := range products {
		products[i].Score = score(products[i], q, cfg)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Score > products[j].Score
	})
}

func score(p domain.Product, q query, cfg config.SearchConfig) int {
	name := strings.ToLower(p.Name)
	brand := strings.ToLower(p.Brand)
	total := 0

	switch {
	case name == q.text:
		total += cfg.ScoreExactName
	case strings.HasPrefix(name, q.text):
		total += cfg.ScoreNamePrefix
	case strings.Contains(name, q.text):
		total += cfg.ScoreNameContains
	}

	for _, w := range q.words {
		if strings.Contains(name, w) {
			total += cfg.ScoreWordInName
		}
		if brand != "" && strings.Contains(brand, w) {
			total += cfg.ScoreWordInBrand
		}
	}

	if price, ok := parsePrice(p.UnitPrice); ok {
		switch {
		case price.LessThan(decimal.NewFromFloat(cfg.CheapBelow)):
			total += cfg.ScoreCheap
		case price.LessThan(decimal.NewFromFloat(cfg.AffordableBelow)):
			total += cfg.ScoreAffordable
		}
	}

	if p.IsDiscounted {
		total += cfg.ScoreDiscounted
	}

	return total
}
