package models

// ChangeType - тип изменения в ленте реального времени.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent - событие об изменении записи в удаленном хранилище.
// Для DELETE заполнен только ID.
type ChangeEvent struct {
	Type   ChangeType  `json:"type"`
	ID     string      `json:"id,omitempty"`
	Record *WireRecord `json:"record,omitempty"`
}
