package models

import "time"

// User — учётная запись пользователя каталога.
// PasswordHash никогда не покидает сервисный слой.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Favorites    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile — публичное представление пользователя без хэша пароля.
type Profile struct {
	ID        string
	Email     string
	Favorites []string
}

// Profile возвращает публичную часть записи.
func (u *User) Profile() Profile {
	favorites := u.Favorites
	if favorites == nil {
		favorites = []string{}
	}

	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Favorites: favorites,
	}
}
