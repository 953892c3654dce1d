package models

// Complaint categories double as contractor specializations.
const (
	CategoryWater        = "water"
	CategoryRoad         = "road"
	CategoryGarbage      = "garbage"
	CategoryElectricity  = "electricity"
	CategorySewage       = "sewage"
	CategoryParks        = "parks"
	CategoryStreetlights = "streetlights"
	CategoryTraffic      = "traffic"
	CategoryOther        = "other"
)

// Choice is a value with its human readable label.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Categories lists all complaint categories in display order.
var Categories = []Choice{
	{Value: CategoryWater, Label: "Water Leakage"},
	{Value: CategoryRoad, Label: "Broken Road/Potholes"},
	{Value: CategoryGarbage, Label: "Garbage Collection"},
	{Value: CategoryElectricity, Label: "Electricity Issues"},
	{Value: CategorySewage, Label: "Sewage Problems"},
	{Value: CategoryParks, Label: "Park Maintenance"},
	{Value: CategoryStreetlights, Label: "Street Light Issues"},
	{Value: CategoryTraffic, Label: "Traffic Problems"},
	{Value: CategoryOther, Label: "Other"},
}

// IsValidCategory reports whether value is one of the known categories.
func IsValidCategory(value string) bool {
	for _, c := range Categories {
		if c.Value == value {
			return true
		}
	}
	return false
}

// CategoryLabel returns the display label of a category or the raw value if unknown.
func CategoryLabel(value string) string {
	for _, c := range Categories {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}
