package models

import "time"

// 项目状态常量（流水线按固定顺序推进，error 为终态，任何阶段都可能跳入）
const (
	ProjectStatusCreate    = "create"    // 项目已创建，流水线尚未启动
	ProjectStatusScripting = "scripting" // 正在生成脚本与分镜提示词
	ProjectStatusVoice     = "voice"     // 正在逐场景生成配音
	ProjectStatusVideo     = "video"     // 正在逐场景生成口播视频
	ProjectStatusBroll     = "broll"     // 正在逐片段生成 B-roll 素材
	ProjectStatusDone      = "done"      // 所有已配置阶段执行完毕
	ProjectStatusError     = "error"     // 流水线级失败（脚本生成失败或阶段外异常）
)

type Project struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectName   string    `json:"projectName"`
	InputRequest  string    `gorm:"type:text" json:"inputRequest"`
	InputVoiceID  string    `gorm:"column:input_voice_id" json:"inputVoiceId"`
	InputImageURL string    `gorm:"column:input_image_url" json:"inputImageUrl"`
	Status        string    `json:"status"`
	Error         string    `gorm:"type:text" json:"error"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Project) TableName() string {
	return "longform_project"
}
