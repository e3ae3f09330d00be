package model

// RepoMessage là cấu trúc dữ liệu Repository gửi tới Kafka
type RepoMessage struct {
	ID          uint             `json:"id"`
	Owner       string           `json:"owner"`
	OwnerKind   string           `json:"owner_kind"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	DiskUsage   int64            `json:"disk_usage"`
	Url         string           `json:"url"`
	IsFork      bool             `json:"is_fork"`
	IsMirror    bool             `json:"is_mirror"`
	Languages   map[string]int64 `json:"languages"`
}
