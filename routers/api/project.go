package api

import (
	"log"
	"net/http"
	"strings"

	"longform-server/models"
	"longform-server/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Dispatcher 是 API 层需要的入队能力，由 service.Queue 实现
type Dispatcher interface {
	DispatchPipeline(projectID string) error
	DispatchRetry(target, id string) error
}

type ProjectHandler struct {
	Store models.Store
	Queue Dispatcher
}

func NewProjectHandler(store models.Store, queue Dispatcher) *ProjectHandler {
	return &ProjectHandler{Store: store, Queue: queue}
}

// 项目列表（最新的在前）
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.Store.ListProjects()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取项目列表失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// 创建项目并异步启动流水线，响应立即返回新建的项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req struct {
		Topic    string `json:"topic"`
		VoiceID  string `json:"voice_id"`
		ImageURL string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}

	project := models.Project{
		ID:            uuid.NewString(),
		ProjectName:   projectNameFromTopic(req.Topic),
		InputRequest:  req.Topic,
		InputVoiceID:  req.VoiceID,
		InputImageURL: req.ImageURL,
		Status:        models.ProjectStatusCreate,
	}
	if err := h.Store.CreateProject(&project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建项目失败: " + err.Error()})
		return
	}

	// 项目记录已落库，此时入队才能保证流水线读到它。
	// 入队失败意味着流水线永远不会启动，必须落成项目级 error，不能静默吞掉。
	if err := h.Queue.DispatchPipeline(project.ID); err != nil {
		log.Printf("流水线任务入队失败: %v", err)
		if uerr := h.Store.UpdateProject(project.ID, map[string]interface{}{
			"status": models.ProjectStatusError,
			"error":  "流水线任务入队失败: " + err.Error(),
		}); uerr != nil {
			log.Printf("写入失败状态失败: %v", uerr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "流水线任务入队失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

type sceneDetail struct {
	models.Scene
	Segments []models.Segment `json:"segments"`
}

// 项目详情：项目 + 按序场景，每个场景内嵌按序片段
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID := c.Param("project_id")

	project, err := h.Store.GetProjectByID(projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "项目未找到: " + err.Error()})
		return
	}

	scenes, err := h.Store.ScenesByProject(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取场景失败: " + err.Error()})
		return
	}
	segments, err := h.Store.SegmentsByProject(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取片段失败: " + err.Error()})
		return
	}

	bySceneID := make(map[string][]models.Segment)
	for _, seg := range segments {
		bySceneID[seg.SceneId] = append(bySceneID[seg.SceneId], seg)
	}
	details := make([]sceneDetail, 0, len(scenes))
	for _, sc := range scenes {
		details = append(details, sceneDetail{Scene: sc, Segments: bySceneID[sc.ID]})
	}

	c.JSON(http.StatusOK, gin.H{
		"project": project,
		"scenes":  details,
	})
}

// 删除项目（级联删除场景与片段）
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID := c.Param("project_id")
	if err := h.Store.DeleteProject(projectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除项目失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "项目已删除",
	})
}

// 单场景配音重试
func (h *ProjectHandler) RetrySceneVoice(c *gin.Context) {
	h.retryScene(c, service.RetryTargetSceneVoice)
}

// 单场景口播视频重试
func (h *ProjectHandler) RetrySceneVideo(c *gin.Context) {
	h.retryScene(c, service.RetryTargetSceneVideo)
}

func (h *ProjectHandler) retryScene(c *gin.Context, target string) {
	sceneID := c.Param("scene_id")
	if _, err := h.Store.GetSceneByID(sceneID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "场景未找到: " + err.Error()})
		return
	}
	if err := h.Queue.DispatchRetry(target, sceneID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重试任务入队失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scene_id": sceneID, "message": "重试任务已入队"})
}

// 单片段 B-roll 重试
func (h *ProjectHandler) RetrySegmentBroll(c *gin.Context) {
	segmentID := c.Param("segment_id")
	if _, err := h.Store.GetSegmentByID(segmentID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "片段未找到: " + err.Error()})
		return
	}
	if err := h.Queue.DispatchRetry(service.RetryTargetSegment, segmentID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重试任务入队失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"segment_id": segmentID, "message": "重试任务已入队"})
}

// 项目名取话题前 50 个字符
func projectNameFromTopic(topic string) string {
	runes := []rune(topic)
	if len(runes) <= 50 {
		return topic
	}
	return string(runes[:50]) + "..."
}
