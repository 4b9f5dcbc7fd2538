package models

import "time"

// 单个资产的生命周期：pending -> processing -> done/error，一次生成尝试只走一遍
const (
	AssetStatusPending    = "pending"
	AssetStatusProcessing = "processing"
	AssetStatusDone       = "done"
	AssetStatusError      = "error"
)

// Scene 是口播脚本的一个叙事段落，配音/口播视频状态相互独立，
// 某个场景失败不影响兄弟场景。
type Scene struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectId     string    `gorm:"index" json:"projectId"`
	SceneNumber   int       `json:"sceneNumber"`
	SceneName     string    `json:"sceneName"`
	Script        string    `gorm:"type:text" json:"script"`
	SpeechPrompt  string    `gorm:"type:text" json:"speechPrompt"`
	EstimateMins  float64   `json:"estimateMins"`
	WordCount     int       `json:"wordCount"`
	StatusVoice   string    `json:"statusVoice"`
	StatusVideo   string    `json:"statusVideo"`
	StatusBroll   string    `json:"statusBroll"`
	SceneVoiceURL string    `gorm:"column:scene_voice_url" json:"sceneVoiceUrl"`
	SceneVideoURL string    `gorm:"column:scene_video_url" json:"sceneVideoUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Scene) TableName() string {
	return "longform_scene"
}
