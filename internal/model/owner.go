package model

const (
	OwnerKindUser         = "User"
	OwnerKindOrganization = "Organization"
)

// ValidOwnerKind reports whether kind is one of the two owner classifications.
func ValidOwnerKind(kind string) bool {
	return kind == OwnerKindUser || kind == OwnerKindOrganization
}

type OwnerType struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Typename string `json:"type" gorm:"column:type;type:varchar(32);uniqueIndex;not null"`
}

func (o *OwnerType) TableName() string {
	return "owner_types"
}

// Owner is created the first time a repository references it and never updated.
type Owner struct {
	Model
	Login     string    `json:"login" gorm:"column:login;type:varchar(255);uniqueIndex;not null"`
	TypeID    uint      `json:"type_id" gorm:"column:type_id"`
	OwnerType OwnerType `json:"-" gorm:"foreignKey:TypeID"`
}

func (o *Owner) TableName() string {
	return "owners"
}
