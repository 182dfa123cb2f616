package models

import (
	"slices"
	"strings"
	"time"
)

// Category - категория пост-ита. Набор закрытый.
type Category string

const (
	CategoryStudio      Category = "Studio"
	CategorySocial      Category = "Social"
	CategorySport       Category = "Sport"
	CategoryPassions    Category = "Passioni/Interessi"
	CategoryCoffeeBreak Category = "Pausa Caffè"
	CategoryLunch       Category = "Pranzo"
)

// Categories возвращает все допустимые категории в порядке отображения.
func Categories() []Category {
	return []Category{CategoryStudio, CategorySocial, CategorySport, CategoryPassions, CategoryCoffeeBreak, CategoryLunch}
}

// Valid сообщает, входит ли категория в закрытый набор.
func (c Category) Valid() bool {
	_, ok := categoryColors[c]
	return ok
}

// Campus - кампус, к которому привязан пост-ит.
type Campus string

const (
	CampusLeonardo Campus = "Leonardo"
	CampusBovisa   Campus = "Bovisa"
)

// Campuses возвращает все допустимые кампусы.
func Campuses() []Campus {
	return []Campus{CampusLeonardo, CampusBovisa}
}

func (c Campus) Valid() bool {
	return c == CampusLeonardo || c == CampusBovisa
}

// Position - координаты пост-ита на доске.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PostIt представляет заметку на доске кампуса.
type PostIt struct {
	ID             string   `json:"id"`
	Title          string   `json:"title,omitempty"`
	Content        string   `json:"content"`
	Category       Category `json:"category"`
	Campus         Campus   `json:"campus"`
	Date           string   `json:"date,omitempty"`      // Только для отображения
	CreatedAt      string   `json:"createdAt,omitempty"` // ISO-8601, нужен для "старения"
	Participants   int      `json:"participants"`
	ParticipantIDs []string `json:"participantIds,omitempty"` // Матрикулы; если заданы - главнее счетчика
	Position       Position `json:"position"`
	Color          string   `json:"color"`
}

// Clone возвращает копию пост-ита, не разделяющую срез ParticipantIDs.
func (p PostIt) Clone() PostIt {
	if p.ParticipantIDs != nil {
		p.ParticipantIDs = slices.Clone(p.ParticipantIDs)
	}
	return p
}

// TracksParticipants сообщает, ведется ли для пост-ита список участников.
func (p PostIt) TracksParticipants() bool {
	return p.ParticipantIDs != nil
}

// HasParticipant проверяет, есть ли пользователь в списке участников.
func (p PostIt) HasParticipant(userID string) bool {
	return slices.Contains(p.ParticipantIDs, userID)
}

// HasCanonicalColor сообщает, совпадает ли цвет с цветом категории.
// Для неизвестных категорий цвет считается корректным.
func (p PostIt) HasCanonicalColor() bool {
	expected, ok := CanonicalColor(p.Category)
	return !ok || strings.EqualFold(p.Color, expected)
}

const maxAgeDays = 30

// AgeFactor возвращает коэффициент "старения" от 0 (новый) до 1 (30 дней и старше).
func (p PostIt) AgeFactor(now time.Time) float64 {
	if p.CreatedAt == "" {
		return 0
	}
	created, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil {
		return 0
	}
	days := now.Sub(created).Hours() / 24
	if days <= 0 {
		return 0
	}
	return min(days/maxAgeDays, 1)
}

// Draft - данные новой заметки из формы создания.
type Draft struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category Category `json:"category"`
	Campus   Campus   `json:"campus"`
	Date     string   `json:"date,omitempty"`
}

// Validate проверяет черновик до любой попытки сохранения.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return validationf("content is required")
	}
	if !d.Category.Valid() {
		return validationf("unknown category %q", d.Category)
	}
	if !d.Campus.Valid() {
		return validationf("unknown campus %q", d.Campus)
	}
	return nil
}
