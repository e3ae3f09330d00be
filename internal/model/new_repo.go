package model

// NewRepo is a discovered (owner, name) pair waiting for its detail fetch.
type NewRepo struct {
	Model
	OwnerID uint   `json:"owner_id" gorm:"column:owner_id;not null;uniqueIndex:idx_new_repo_identity"`
	Name    string `json:"name" gorm:"column:name;type:varchar(255);not null;uniqueIndex:idx_new_repo_identity"`
	Owner   Owner  `json:"-" gorm:"foreignKey:OwnerID"`
}

func (n *NewRepo) TableName() string {
	return "new_repos"
}

// FullName returns "owner/name", the owner must be preloaded.
func (n *NewRepo) FullName() string {
	return n.Owner.Login + "/" + n.Name
}
