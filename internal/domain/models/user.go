package models

import "time"

// User представляет покупателя магазина
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileUpdate - изменяемые поля профиля; nil означает "не менять"
type ProfileUpdate struct {
	Name    *string
	Phone   *string
	Address *string
}
