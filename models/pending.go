package models

// PendingChanges - локальные изменения, которые хранилище еще не подтвердило.
// Upserts - id записей, чья локальная версия новее; Deletes - id удаленных
// локально записей.
type PendingChanges struct {
	Upserts []string `json:"upserts,omitempty"`
	Deletes []string `json:"deletes,omitempty"`
}

// Empty сообщает, что неподтвержденных изменений нет.
func (p PendingChanges) Empty() bool {
	return len(p.Upserts) == 0 && len(p.Deletes) == 0
}
