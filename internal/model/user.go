package model

import "time"

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	FieldOfWork string     `json:"field_of_work"`
	Country     string     `json:"country"`
	AvatarURL   string     `json:"avatar_url"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DisabledAt  *time.Time `json:"-"` // not null = account disabled, cannot sign in
}

type UserPublic struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	FieldOfWork string `json:"field_of_work"`
	Country     string `json:"country"`
	AvatarURL   string `json:"avatar_url"`
}

func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		FieldOfWork: u.FieldOfWork,
		Country:     u.Country,
		AvatarURL:   u.AvatarURL,
	}
}

// ProfileUpdate carries the editable profile fields. Nil means "leave unchanged".
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	FieldOfWork *string `json:"field_of_work,omitempty"`
	Country     *string `json:"country,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}
