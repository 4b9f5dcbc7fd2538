package routers

import (
	"longform-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter(projects *api.ProjectHandler, progress *api.ProgressHandler) *gin.Engine {
	r := gin.Default()
	v1 := r.Group("/v1/api")
	{
		v1.GET("/projects", projects.ListProjects)
		v1.POST("/projects", projects.CreateProject)
		v1.GET("/projects/:project_id", projects.GetProject)
		v1.DELETE("/projects/:project_id", projects.DeleteProject)
		v1.POST("/scenes/:scene_id/voice", projects.RetrySceneVoice)
		v1.POST("/scenes/:scene_id/video", projects.RetrySceneVideo)
		v1.POST("/segments/:segment_id/broll", projects.RetrySegmentBroll)
	}
	r.GET("/projects/:project_id/ws", progress.ProjectProgressWebSocket)
	return r
}
