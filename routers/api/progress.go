package api

import (
	"net/http"
	"time"

	"longform-server/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ProgressHandler struct {
	Store models.Store

	interval time.Duration
}

func NewProgressHandler(store models.Store) *ProgressHandler {
	return &ProgressHandler{Store: store, interval: time.Second}
}

type progressSnapshot struct {
	Project  *models.Project  `json:"project"`
	Scenes   []models.Scene   `json:"scenes"`
	Segments []models.Segment `json:"segments"`
}

// 场景/片段的状态写入不触碰项目行，所以变更检测要覆盖三张表
func (s *progressSnapshot) latestUpdate() time.Time {
	latest := s.Project.UpdatedAt
	for _, sc := range s.Scenes {
		if sc.UpdatedAt.After(latest) {
			latest = sc.UpdatedAt
		}
	}
	for _, seg := range s.Segments {
		if seg.UpdatedAt.After(latest) {
			latest = seg.UpdatedAt
		}
	}
	return latest
}

// 项目进度 WebSocket 推送。以数据库为来源：每秒轮询一次，
// 项目、场景或片段任一行有更新就推送快照，
// 到达 done/error 终态后推送最终快照并关闭。
func (h *ProgressHandler) ProjectProgressWebSocket(c *gin.Context) {
	projectID := c.Param("project_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "WebSocket升级失败"})
		return
	}
	defer conn.Close()

	snap, err := h.snapshot(projectID)
	if err != nil {
		conn.WriteJSON(map[string]interface{}{"error": "project not found: " + err.Error()})
		return
	}
	_ = conn.WriteJSON(snap)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	prev := snap.latestUpdate()
	for range ticker.C {
		cur, err := h.snapshot(projectID)
		if err != nil {
			// 查询失败继续重试
			continue
		}
		if latest := cur.latestUpdate(); latest.After(prev) {
			if err := conn.WriteJSON(cur); err != nil {
				break
			}
			prev = latest
		}
		if cur.Project.Status == models.ProjectStatusDone || cur.Project.Status == models.ProjectStatusError {
			_ = conn.WriteJSON(cur)
			break
		}
	}
}

func (h *ProgressHandler) snapshot(projectID string) (*progressSnapshot, error) {
	project, err := h.Store.GetProjectByID(projectID)
	if err != nil {
		return nil, err
	}
	scenes, err := h.Store.ScenesByProject(projectID)
	if err != nil {
		return nil, err
	}
	segments, err := h.Store.SegmentsByProject(projectID)
	if err != nil {
		return nil, err
	}
	return &progressSnapshot{Project: project, Scenes: scenes, Segments: segments}, nil
}
