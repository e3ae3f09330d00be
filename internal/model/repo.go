package model

// Repo is a fetched repository. Discovered but unfetched ones live in NewRepo.
type Repo struct {
	Model
	OwnerID     uint           `json:"owner_id" gorm:"column:owner_id;not null;uniqueIndex:idx_repo_identity"`
	Name        string         `json:"name" gorm:"column:name;type:varchar(255);not null;uniqueIndex:idx_repo_identity"`
	Description string         `json:"description" gorm:"column:description;type:text"`
	DiskUsage   int64          `json:"disk_usage" gorm:"column:disk_usage"`
	Url         string         `json:"url" gorm:"column:url;type:varchar(512)"`
	IsFork      bool           `json:"is_fork" gorm:"column:is_fork"`
	IsMirror    bool           `json:"is_mirror" gorm:"column:is_mirror"`
	Owner       Owner          `json:"-" gorm:"foreignKey:OwnerID"`
	Languages   []RepoLanguage `json:"-" gorm:"foreignKey:RepoID"`
}

func (r *Repo) TableName() string {
	return "repositories"
}

type Language struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Name  string `json:"name" gorm:"column:name;type:varchar(128);uniqueIndex;not null"`
	Color string `json:"color" gorm:"column:color;type:varchar(16)"`
}

func (l *Language) TableName() string {
	return "languages"
}

type RepoLanguage struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	RepoID    uint     `json:"repo_id" gorm:"column:repo_id;index;uniqueIndex:idx_repo_lang"`
	LangID    uint     `json:"lang_id" gorm:"column:lang_id;index;uniqueIndex:idx_repo_lang"`
	BytesUsed int64    `json:"bytes_used" gorm:"column:bytes_used"`
	Language  Language `json:"-" gorm:"foreignKey:LangID"`
}

func (r *RepoLanguage) TableName() string {
	return "repo_languages"
}
