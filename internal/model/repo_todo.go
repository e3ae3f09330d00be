package model

// RepoTodo marks a fetched repository whose neighbors are not explored yet.
type RepoTodo struct {
	Model
	RepoID uint `json:"repo_id" gorm:"column:repo_id;uniqueIndex;not null"`
	Repo   Repo `json:"-" gorm:"foreignKey:RepoID"`
}

func (r *RepoTodo) TableName() string {
	return "repos_todo"
}

// RepoError excludes a repository from expansion for good.
type RepoError struct {
	Model
	RepoID    uint   `json:"repo_id" gorm:"column:repo_id;uniqueIndex;not null"`
	ErrorText string `json:"error_text" gorm:"column:error_text;type:text"`
	Repo      Repo   `json:"-" gorm:"foreignKey:RepoID"`
}

func (r *RepoError) TableName() string {
	return "repo_errors"
}

// FetchError records a discovered repository dropped after the provider kept
// omitting it from batch responses.
type FetchError struct {
	Model
	OwnerLogin string `json:"owner_login" gorm:"column:owner_login;type:varchar(255);not null"`
	Name       string `json:"name" gorm:"column:name;type:varchar(255);not null"`
	ErrorText  string `json:"error_text" gorm:"column:error_text;type:text"`
}

func (f *FetchError) TableName() string {
	return "fetch_errors"
}
