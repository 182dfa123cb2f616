package models

import (
	"encoding/json"
	"math"
)

// LooseNumber - число из внешнего источника. Valid=false, если значение
// отсутствует или не является числом. Разбор никогда не возвращает ошибку.
type LooseNumber struct {
	Value float64
	Valid bool
}

// Num создает валидное LooseNumber.
func Num(v float64) LooseNumber {
	return LooseNumber{Value: v, Valid: true}
}

// UnmarshalJSON реализует мягкий разбор для LooseNumber
func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		*n = LooseNumber{}
		return nil
	}
	switch v := value.(type) {
	case float64:
		*n = LooseNumber{Value: v, Valid: true}
	default:
		*n = LooseNumber{}
	}
	return nil
}

func (n LooseNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// LooseString - строка из внешнего источника; любые другие типы считаются отсутствующими.
type LooseString struct {
	Value string
	Valid bool
}

// Str создает валидное LooseString.
func Str(v string) LooseString {
	return LooseString{Value: v, Valid: true}
}

// UnmarshalJSON реализует мягкий разбор для LooseString
func (s *LooseString) UnmarshalJSON(data []byte) error {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		*s = LooseString{}
		return nil
	}
	if v, ok := value.(string); ok {
		*s = LooseString{Value: v, Valid: true}
	} else {
		*s = LooseString{}
	}
	return nil
}

func (s LooseString) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// WirePosition - позиция в том виде, в каком она пришла. Present=false,
// если поле отсутствует или не является объектом.
type WirePosition struct {
	X       LooseNumber
	Y       LooseNumber
	Present bool
}

// At создает корректную позицию.
func At(x, y float64) WirePosition {
	return WirePosition{X: Num(x), Y: Num(y), Present: true}
}

// Valid сообщает, что обе координаты - числа.
func (p WirePosition) Valid() bool {
	return p.Present && p.X.Valid && p.Y.Valid && !math.IsNaN(p.X.Value) && !math.IsNaN(p.Y.Value)
}

// UnmarshalJSON реализует мягкий разбор для WirePosition
func (p *WirePosition) UnmarshalJSON(data []byte) error {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		*p = WirePosition{}
		return nil
	}
	m, ok := value.(map[string]interface{})
	if !ok {
		*p = WirePosition{}
		return nil
	}
	*p = WirePosition{Present: true}
	if x, ok := m["x"].(float64); ok {
		p.X = Num(x)
	}
	if y, ok := m["y"].(float64); ok {
		p.Y = Num(y)
	}
	return nil
}

func (p WirePosition) MarshalJSON() ([]byte, error) {
	if !p.Present {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		X LooseNumber `json:"x"`
		Y LooseNumber `json:"y"`
	}{p.X, p.Y})
}

// WireRecord - запись пост-ита из хранилища или сети. Формату не доверяем:
// перед использованием запись проходит через Sanitize.
type WireRecord struct {
	ID             LooseString  `json:"id"`
	Title          string       `json:"title,omitempty"`
	Content        string       `json:"content"`
	Category       Category     `json:"category"`
	Campus         Campus       `json:"campus"`
	Date           string       `json:"date,omitempty"`
	CreatedAt      string       `json:"createdAt,omitempty"`
	Participants   LooseNumber  `json:"participants"`
	ParticipantIDs []string     `json:"participantIds,omitempty"`
	Position       WirePosition `json:"position"`
	Color          string       `json:"color"`
}

// Wire переводит пост-ит в формат обмена.
func (p PostIt) Wire() WireRecord {
	return WireRecord{
		ID:             Str(p.ID),
		Title:          p.Title,
		Content:        p.Content,
		Category:       p.Category,
		Campus:         p.Campus,
		Date:           p.Date,
		CreatedAt:      p.CreatedAt,
		Participants:   Num(float64(p.Participants)),
		ParticipantIDs: p.ParticipantIDs,
		Position:       At(p.Position.X, p.Position.Y),
		Color:          p.Color,
	}
}

// Sanitize применяет правило очистки: запись без id или с нечисловой
// позицией отбрасывается, у остальных участники и координаты приводятся
// к неотрицательным числам. Повторное применение ничего не меняет.
func (w WireRecord) Sanitize() (PostIt, bool) {
	if !w.ID.Valid || w.ID.Value == "" {
		return PostIt{}, false
	}
	if !w.Position.Valid() {
		return PostIt{}, false
	}

	p := PostIt{
		ID:        w.ID.Value,
		Title:     w.Title,
		Content:   w.Content,
		Category:  w.Category,
		Campus:    w.Campus,
		Date:      w.Date,
		CreatedAt: w.CreatedAt,
		Color:     w.Color,
		Position: Position{
			X: nonNegative(w.Position.X.Value),
			Y: nonNegative(w.Position.Y.Value),
		},
	}
	if w.Participants.Valid && !math.IsNaN(w.Participants.Value) {
		p.Participants = int(nonNegative(math.Floor(w.Participants.Value)))
	}
	// Пустой список эквивалентен неотслеживаемому с нулем участников:
	// иначе он не переживет сериализацию с omitempty.
	if len(w.ParticipantIDs) > 0 {
		p.ParticipantIDs = dedupe(w.ParticipantIDs)
		p.Participants = len(p.ParticipantIDs)
	} else if w.ParticipantIDs != nil {
		p.Participants = 0
	}
	return p, true
}

// ParseWireRecords разбирает записи по одной; неразбираемые отбрасываются.
func ParseWireRecords(items []json.RawMessage) (records []WireRecord, dropped int) {
	records = make([]WireRecord, 0, len(items))
	for _, item := range items {
		var rec WireRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
