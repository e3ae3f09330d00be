package model

// QueryCost is an append-only calibration sample. Guess is in request units,
// NormalizedActual is the reported point cost multiplied by the cost scale.
type QueryCost struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	Kind             string `json:"kind" gorm:"column:kind;type:varchar(16);index"`
	BatchSize        int    `json:"batch_size" gorm:"column:batch_size"`
	Guess            int    `json:"guess" gorm:"column:guess"`
	NormalizedActual int    `json:"normalized_actual" gorm:"column:normalized_actual"`
}

func (q *QueryCost) TableName() string {
	return "query_costs"
}
