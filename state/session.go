// Package state содержит явное состояние сессии: коллекцию пост-итов,
// присоединения пользователя и открытый раздел. Структура передается в
// движок синхронизации и контроллер при создании; глобальных синглтонов нет.
package state

import (
	"slices"
	"sync"

	"github.com/juju/collections/set"

	"connectme/models"
)

// DefaultSection - раздел, открываемый при первом запуске.
const DefaultSection = "home"

// Sections - разделы навигации приложения.
var Sections = []string{"home", "bacheca", "agenda", "polimi", "campus"}

// Session хранит состояние текущей сессии. Безопасна для конкурентного использования.
type Session struct {
	mu            sync.RWMutex
	user          models.UserProfile
	postIts       []models.PostIt
	joined        set.Strings
	activeSection string
}

// New создает пустую сессию для пользователя.
func New(user models.UserProfile) *Session {
	return &Session{
		user:          user,
		joined:        set.NewStrings(),
		activeSection: DefaultSection,
	}
}

// User возвращает пользователя сессии.
func (s *Session) User() models.UserProfile {
	return s.user
}

// PostIts возвращает копию коллекции.
func (s *Session) PostIts() []models.PostIt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePostIts(s.postIts)
}

// Len возвращает число пост-итов.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postIts)
}

// Replace заменяет коллекцию целиком.
func (s *Session) Replace(postIts []models.PostIt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postIts = clonePostIts(postIts)
}

// Find возвращает копию пост-ита по id.
func (s *Session) Find(id string) (models.PostIt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.postIts[i].Clone(), true
	}
	return models.PostIt{}, false
}

// Has сообщает, есть ли пост-ит с таким id.
func (s *Session) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index(id) >= 0
}

// Update применяет fn к пост-иту и возвращает состояние до и после.
func (s *Session) Update(id string, fn func(p *models.PostIt)) (before, after models.PostIt, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.PostIt{}, models.PostIt{}, false
	}
	before = s.postIts[i].Clone()
	fn(&s.postIts[i])
	return before, s.postIts[i].Clone(), true
}

// Put заменяет пост-ит с тем же id или добавляет его в конец.
func (s *Session) Put(p models.PostIt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(p.ID); i >= 0 {
		s.postIts[i] = p.Clone()
		return
	}
	s.postIts = append(s.postIts, p.Clone())
}

// Remove удаляет пост-ит и возвращает удаленную запись.
func (s *Session) Remove(id string) (models.PostIt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.PostIt{}, false
	}
	removed := s.postIts[i]
	s.postIts = slices.Delete(s.postIts, i, i+1)
	return removed, true
}

func (s *Session) index(id string) int {
	return slices.IndexFunc(s.postIts, func(p models.PostIt) bool { return p.ID == id })
}

// Joined возвращает отсортированный список id, к которым присоединился пользователь.
func (s *Session) Joined() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joined.SortedValues()
}

// IsJoined проверяет членство в JoinedSet.
func (s *Session) IsJoined(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joined.Contains(id)
}

// SetJoined заменяет JoinedSet целиком.
func (s *Session) SetJoined(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined = set.NewStrings(ids...)
}

// SetMembership добавляет или убирает id из JoinedSet.
func (s *Session) SetMembership(id string, joined bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if joined {
		s.joined.Add(id)
	} else {
		s.joined.Remove(id)
	}
}

// ActiveSection возвращает открытый раздел.
func (s *Session) ActiveSection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSection
}

// SetActiveSection меняет открытый раздел и сообщает, изменился ли он.
func (s *Session) SetActiveSection(section string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeSection == section {
		return false
	}
	s.activeSection = section
	return true
}

// ValidSection проверяет, что раздел существует.
func ValidSection(section string) bool {
	return slices.Contains(Sections, section)
}

func clonePostIts(in []models.PostIt) []models.PostIt {
	if in == nil {
		return nil
	}
	out := make([]models.PostIt, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
