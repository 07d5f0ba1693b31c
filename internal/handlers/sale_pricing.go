package handlers

import (
	"fmt"

	"canteen/internal/models"
)

type saleUpdateInput struct {
	BasePrice   *float64
	SaleEnabled *bool
	SalePrice   *float64
}

func validateSaleFields(price float64, saleEnabled bool, salePrice float64, salePriceSet bool) error {
	if price < 0 {
		return fmt.Errorf("basePrice cannot be negative")
	}
	if !saleEnabled {
		return nil
	}
	if !salePriceSet {
		return fmt.Errorf("salePrice is required when saleEnabled is true")
	}
	if salePrice <= 0 {
		return fmt.Errorf("salePrice must be greater than 0")
	}
	if salePrice >= price {
		return fmt.Errorf("salePrice must be less than basePrice")
	}
	return nil
}

// resolveSaleUpdate merges a partial pricing update over existing pricing.
// Disabling the sale clears the sale price.
func resolveSaleUpdate(existing models.ProductPricing, input saleUpdateInput) (models.ProductPricing, error) {
	result := existing

	if input.BasePrice != nil {
		result.BasePrice = *input.BasePrice
	}

	salePriceSetForValidation := existing.SalePrice > 0

	if input.SaleEnabled != nil {
		result.SaleEnabled = *input.SaleEnabled
		if !*input.SaleEnabled {
			result.SalePrice = 0
			salePriceSetForValidation = false
		}
	}

	if input.SalePrice != nil && result.SaleEnabled {
		result.SalePrice = *input.SalePrice
		salePriceSetForValidation = true
	}

	if err := validateSaleFields(result.BasePrice, result.SaleEnabled, result.SalePrice, salePriceSetForValidation); err != nil {
		return models.ProductPricing{}, err
	}

	return result, nil
}
