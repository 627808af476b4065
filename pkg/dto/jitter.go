package dto

import "jittr/pkg/domain"

// JitterDTO is the boundary representation of a jitter account. The
// password field carries the bcrypt hash: incoming credentials are hashed
// at the transport boundary before the representation is built, so the
// plain secret never crosses the facade. Bcrypt output is 60 characters,
// hence the 5-60 size constraint.
type JitterDTO struct {
	ID       int64       `json:"id" validate:"required"`
	Username string      `json:"username" validate:"required,min=1,max=32,handle"`
	Password string      `json:"password" validate:"required,min=5,max=60"`
	Role     domain.Role `json:"role" validate:"required,oneof=ROLE_JITTER ROLE_ADMIN"`
	FullName string      `json:"fullName" validate:"required,min=5,max=32,fullname"`
	Email    string      `json:"email,omitempty" validate:"omitempty,email"`
}

// FromJitter maps a stored jitter to its representation.
func FromJitter(j domain.Jitter) JitterDTO {
	return JitterDTO{
		ID:       j.ID,
		Username: j.Username,
		Password: j.Password,
		Role:     j.Role,
		FullName: j.FullName,
		Email:    j.Email,
	}
}

// ToJitter maps the representation to a storage entity.
func ToJitter(d JitterDTO) domain.Jitter {
	return domain.Jitter{
		ID:       d.ID,
		Username: d.Username,
		Password: d.Password,
		Role:     d.Role,
		FullName: d.FullName,
		Email:    d.Email,
	}
}
