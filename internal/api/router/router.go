package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"csm-matcher/config"
	"csm-matcher/internal/api/handler"
	"csm-matcher/internal/api/middleware"
	"csm-matcher/pkg/jwt"
	"csm-matcher/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// 课程内的角色（协调员/导师）由 Service 层按匹配器名单鉴权，这里只校验 Token
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 写接口限流；未启用时为空操作
	limit := func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		limit = middleware.RateLimit(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	// 请求体上限按路由区分：文件导入放宽到 ICS 上限，其余 JSON 接口用 server.max_body_bytes
	jsonLimit := middleware.BodyLimit(cfg.Server.MaxBodyBytes)
	importLimit := middleware.BodyLimit(handler.MaxImportBytes)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
	{
		m := authorized.Group("/matcher")
		{
			m.GET("/active", h.Matcher.ListActive)
			m.POST("/:course_id/slots/import", importLimit, limit, h.Slot.ImportSlots)

			course := m.Group("/:course_id", jsonLimit)
			{
				// 时段
				course.GET("/slots", h.Slot.ListSlots)
				course.POST("/slots", limit, h.Slot.ReplaceSlots)
				course.POST("/slots/tile", h.Slot.TileSlots)
				course.GET("/slots/ics", h.Export.ExportSlotsICS)
				course.GET("/calendar", h.Slot.GetCalendar)

				// 偏好
				course.GET("/preferences", h.Preference.ListPreferences)
				course.GET("/preferences/me", h.Preference.GetMyPreferences)
				course.POST("/preferences", limit, h.Preference.SubmitPreferences)

				// 配置与求解
				course.GET("/stage", h.Matcher.GetStage)
				course.GET("/configure", h.Matcher.GetConfig)
				course.POST("/configure", limit, h.Matcher.Configure)

				// 分配
				course.GET("/assignment", h.Matcher.GetAssignment)
				course.PUT("/assignment", limit, h.Matcher.UpdateAssignment)
				course.GET("/assignment/export", h.Export.ExportAssignment)
				course.POST("/create", limit, h.Matcher.Commit)

				// 导师名单
				course.GET("/mentors", h.Mentor.ListMentors)
				course.POST("/mentors", limit, h.Mentor.AddMentors)
				course.DELETE("/mentors", limit, h.Mentor.RemoveMentors)
			}
		}

		// ── 运维（仅管理员）──
		admin := authorized.Group("/admin", middleware.RoleAuth(jwt.RoleAdmin))
		{
			admin.POST("/forms/close-expired", h.Matcher.CloseExpired)
		}
	}

	return r, nil
}
