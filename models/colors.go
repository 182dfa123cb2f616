package models

// Цвета категорий. Категория - источник истины, цвет производный.
var categoryColors = map[Category]string{
	CategoryStudio:      "#5B92FF",
	CategorySocial:      "#FF704E",
	CategorySport:       "#FFB772",
	CategoryPassions:    "#85DE91",
	CategoryCoffeeBreak: "#E895FF",
	CategoryLunch:       "#FB2E74",
}

// DefaultPinColor используется для категорий вне закрытого набора.
const DefaultPinColor = "#8D7ED4"

// CanonicalColor возвращает цвет категории и false, если категория неизвестна.
func CanonicalColor(c Category) (string, bool) {
	color, ok := categoryColors[c]
	return color, ok
}

// PinColor возвращает цвет булавки для отображения.
func PinColor(c Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return DefaultPinColor
}
