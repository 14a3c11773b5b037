package models

type Like struct {
	BaseModel
	UserID     string     `gorm:"type:varchar(36);not null;uniqueIndex:uniq_like"`
	TargetType TargetType `gorm:"type:varchar(20);not null;uniqueIndex:uniq_like;index:idx_like_target"`
	TargetID   string     `gorm:"type:varchar(36);not null;uniqueIndex:uniq_like;index:idx_like_target"`
}

type Collect struct {
	BaseModel
	UserID     string     `gorm:"type:varchar(36);not null;uniqueIndex:uniq_collect"`
	TargetType TargetType `gorm:"type:varchar(20);not null;uniqueIndex:uniq_collect;index:idx_collect_target"`
	TargetID   string     `gorm:"type:varchar(36);not null;uniqueIndex:uniq_collect;index:idx_collect_target"`
}
