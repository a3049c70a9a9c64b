package domain

const (
	ShoppingListFilename = "shopping_list.txt"
	ShoppingListSubject  = "Your shopping list"
)

// ShoppingListItem is one merged line of the shopping list.
type ShoppingListItem struct {
	Name            string `json:"name" gorm:"column:name"`
	MeasurementUnit string `json:"measurement_unit" gorm:"column:measurement_unit"`
	TotalAmount     int64  `json:"total_amount" gorm:"column:total_amount"`
}
