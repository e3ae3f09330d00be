package model

import (
	"time"
)

type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every table the frontier needs, in migration order.
func All() []interface{} {
	return []interface{}{
		&OwnerType{},
		&Owner{},
		&Language{},
		&Repo{},
		&RepoLanguage{},
		&NewRepo{},
		&RepoTodo{},
		&RepoError{},
		&FetchError{},
		&QueryCost{},
	}
}
