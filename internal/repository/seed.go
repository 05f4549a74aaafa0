package repository

import "github.com/Lixing-Zhang/smart-checkout/backend/internal/models"

// DefaultProducts returns the kiosk's built-in produce list.
func DefaultProducts() []models.Product {
	return []models.Product{
		{
			Label: "apple", Name: "Apple", Price: models.MustMoney("2.99"), Unit: models.UnitPerWeight,
			Category: models.CategoryFruit, Icon: "🍎", Barcode: "123456001",
			Description: "Fresh, crispy red apples", Nutrition: "95 calories per serving", Origin: "Local Farm",
		},
		{Label: "banana", Name: "Banana", Price: models.MustMoney("1.49"), Unit: models.UnitPerWeight, Category: models.CategoryFruit, Icon: "🍌", Barcode: "123456002"},
		{Label: "orange", Name: "Orange", Price: models.MustMoney("3.49"), Unit: models.UnitPerWeight, Category: models.CategoryFruit, Icon: "🍊", Barcode: "123456003"},
		{Label: "mango", Name: "Mango", Price: models.MustMoney("4.99"), Unit: models.UnitPerItem, Category: models.CategoryFruit, Icon: "🥭", Barcode: "123456004"},
		{Label: "watermelon", Name: "Watermelon", Price: models.MustMoney("5.99"), Unit: models.UnitPerItem, Category: models.CategoryFruit, Icon: "🍉", Barcode: "123456005"},
		{Label: "tomato", Name: "Tomato", Price: models.MustMoney("2.99"), Unit: models.UnitPerWeight, Category: models.CategoryVegetable, Icon: "🍅", Barcode: "123456006"},
		{Label: "potato", Name: "Potato", Price: models.MustMoney("1.99"), Unit: models.UnitPerWeight, Category: models.CategoryVegetable, Icon: "🥔", Barcode: "123456007"},
		{Label: "carrot", Name: "Carrot", Price: models.MustMoney("2.49"), Unit: models.UnitPerWeight, Category: models.CategoryVegetable, Icon: "🥕", Barcode: "123456008"},
		{Label: "cucumber", Name: "Cucumber", Price: models.MustMoney("1.99"), Unit: models.UnitPerItem, Category: models.CategoryVegetable, Icon: "🥒", Barcode: "123456009"},
		{Label: "bell pepper", Name: "Bell Pepper", Price: models.MustMoney("3.99"), Unit: models.UnitPerWeight, Category: models.CategoryVegetable, Icon: "🫑", Barcode: "123456010"},
		{Label: "onion", Name: "Onion", Price: models.MustMoney("1.79"), Unit: models.UnitPerWeight, Category: models.CategoryVegetable, Icon: "🧅", Barcode: "123456011"},
		{Label: "garlic", Name: "Garlic", Price: models.MustMoney("1.99"), Unit: models.UnitPerWeight, Category: models.CategoryVegetable, Icon: "🧄", Barcode: "123456012"},
		{Label: "lettuce", Name: "Lettuce", Price: models.MustMoney("2.49"), Unit: models.UnitPerItem, Category: models.CategoryVegetable, Icon: "🥬", Barcode: "123456013"},
		{Label: "grapes", Name: "Grapes", Price: models.MustMoney("4.99"), Unit: models.UnitPerWeight, Category: models.CategoryFruit, Icon: "🍇", Barcode: "123456014"},
		{Label: "lemon", Name: "Lemon", Price: models.MustMoney("0.79"), Unit: models.UnitPerItem, Category: models.CategoryFruit, Icon: "🍋", Barcode: "123456015"},
	}
}
