package syncengine

import (
	"github.com/juju/collections/set"

	"connectme/models"
)

// Sanitize очищает коллекцию из внешнего источника: записи без id или с
// нечисловой позицией отбрасываются, повторяющиеся id схлопываются
// (место первой записи, значение последней). Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(records []models.WireRecord) []models.PostIt {
	out := make([]models.PostIt, 0, len(records))
	index := make(map[string]int, len(records))
	dropped := 0
	for _, rec := range records {
		p, ok := rec.Sanitize()
		if !ok {
			dropped++
			continue
		}
		if i, seen := index[p.ID]; seen {
			out[i] = p
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if dropped > 0 {
		logger.Warningf("dropped %d malformed post-its", dropped)
	}
	return out
}

// SanitizePostIts применяет то же правило к уже типизированной коллекции.
func SanitizePostIts(postIts []models.PostIt) []models.PostIt {
	records := make([]models.WireRecord, len(postIts))
	for i, p := range postIts {
		records[i] = p.Wire()
	}
	return Sanitize(records)
}

func idSet(postIts []models.PostIt) set.Strings {
	ids := set.NewStrings()
	for _, p := range postIts {
		ids.Add(p.ID)
	}
	return ids
}
