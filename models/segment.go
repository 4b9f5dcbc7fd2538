package models

import "time"

// Segment 是场景下的一个 B-roll 镜头。SegmentNumber 在所属场景内从 1 连续编号，
// SceneNumber 冗余一份，方便按"场景序 -> 片段序"做确定性的全局扫描。
// 约束：StatusVideo 只有在 StatusImage 为 done 之后才可能变为 done
// （B-roll 视频由生成出的首帧图驱动）。
type Segment struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectId        string    `gorm:"index" json:"projectId"`
	SceneId          string    `gorm:"index" json:"sceneId"`
	SceneNumber      int       `json:"sceneNumber"`
	SegmentNumber    int       `json:"segmentNumber"`
	SegmentName      string    `json:"segmentName"`
	StartImagePrompt string    `gorm:"type:text" json:"startImagePrompt"`
	VideoPrompt      string    `gorm:"type:text" json:"videoPrompt"`
	StatusImage      string    `json:"statusImage"`
	StatusVideo      string    `json:"statusVideo"`
	SegmentImageURL  string    `gorm:"column:segment_image_url" json:"segmentImageUrl"`
	SegmentVideoURL  string    `gorm:"column:segment_video_url" json:"segmentVideoUrl"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (Segment) TableName() string {
	return "longform_segment"
}
