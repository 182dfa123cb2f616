package models

// UserProfile представляет текущего пользователя. Логина нет, профиль фиксированный.
type UserProfile struct {
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Matricola string `json:"matricola"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
}

// DefaultUser - жестко заданный пользователь сессии.
func DefaultUser() UserProfile {
	return UserProfile{
		Name:      "Marco",
		Surname:   "Rossi",
		Matricola: "10123456",
		Email:     "marco.rossi@mail.polimi.it",
		Avatar:    "https://images.unsplash.com/photo-1729824186570-4d4aede00043?w=1080",
	}
}
