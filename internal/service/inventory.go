package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Ingredient is one entry of a product's recipe, read from the product's
// metadata {"ingredients":[{"name":"Flour","quantity":0.2}]}.
type Ingredient struct {
	Name     string
	Quantity decimal.Decimal
}

type ingredientMetadata struct {
	Ingredients []struct {
		Name     string          `json:"name"`
		Quantity json.RawMessage `json:"quantity"`
	} `json:"ingredients"`
}

// ParseIngredients extracts the usable ingredients from product metadata.
// Entries without a name or with a missing or non-numeric quantity are
// returned in skipped instead. Quantities may be JSON numbers or numeric
// strings.
func ParseIngredients(metadata []byte) (ingredients []Ingredient, skipped []string, err error) {
	if len(metadata) == 0 || string(metadata) == "null" {
		return nil, nil, nil
	}
	var meta ingredientMetadata
	if err := json.Unmarshal(metadata, &meta); err != nil {
		return nil, nil, fmt.Errorf("parse ingredients: %w", err)
	}
	for i, raw := range meta.Ingredients {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			skipped = append(skipped, fmt.Sprintf("ingredient[%d]: missing name", i))
			continue
		}
		qty, ok := parseQuantity(raw.Quantity)
		if !ok {
			skipped = append(skipped, fmt.Sprintf("%s: invalid quantity", name))
			continue
		}
		ingredients = append(ingredients, Ingredient{Name: name, Quantity: qty})
	}
	return ingredients, skipped, nil
}

func parseQuantity(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, false
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, false
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
