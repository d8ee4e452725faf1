package usage

import "strings"

const (
	TypeMeat      = "Meat & Poultry"
	TypeVegetable = "Vegetables"
	TypeSpice     = "Spices & Seasonings"
	TypePackaging = "Packaging"
	TypeLiquid    = "Liquids"
	TypeOther     = "Other"
)

// keywordTypes is checked in order; the first matching keyword wins.
var keywordTypes = []struct {
	typ      string
	keywords []string
}{
	{TypeMeat, []string{"chicken", "beef", "pork", "meat", "poultry", "turkey", "duck", "lamb", "bacon", "ham", "sausage", "fish", "shrimp"}},
	{TypeVegetable, []string{"onion", "garlic", "carrot", "cabbage", "tomato", "potato", "celery", "lettuce", "vegetable", "bell pepper", "ginger", "spinach", "mushroom"}},
	{TypeSpice, []string{"salt", "pepper", "spice", "cumin", "paprika", "oregano", "basil", "cinnamon", "seasoning", "msg", "bay leaf", "chili powder"}},
	{TypePackaging, []string{"box", "bag", "wrap", "label", "container", "tray", "cup", "lid", "sticker", "packaging", "film", "carton"}},
	{TypeLiquid, []string{"oil", "water", "sauce", "vinegar", "milk", "soy", "syrup", "juice", "broth", "stock", "cream"}},
}

// Classify prefers an explicit catalog type and otherwise infers one from the
// material name.
func Classify(explicit, name string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	lower := strings.ToLower(name)
	for _, group := range keywordTypes {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.typ
			}
		}
	}
	return TypeOther
}
