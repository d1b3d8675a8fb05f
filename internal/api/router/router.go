package router

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Sudeep845/Raktsewa-sub000/config"
	"github.com/Sudeep845/Raktsewa-sub000/internal/api/handler"
	"github.com/Sudeep845/Raktsewa-sub000/internal/api/middleware"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/jwt"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/redis"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 2 * time.Second
)

// Deps 路由依赖
type Deps struct {
	Config  *config.Config
	Handler *handler.Handler
	JWT     *jwt.Manager
	Session session.Store
	Redis   *redis.Client // 可为 nil：限流降级放行
	DB      *sql.DB
	Logger  *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(d Deps) *gin.Engine {
	h := d.Handler
	handler.RegisterValidatorTagNames()

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(d.Config.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 运维 ──
	r.GET("/health", healthCheck(d.DB, d.Redis))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	loginLimit := middleware.RateLimit(d.Redis, d.Config.RateLimit.LoginPerMinute, time.Minute, d.Logger)
	emergencyLimit := middleware.RateLimit(d.Redis, d.Config.RateLimit.EmergencyPerMinute, time.Minute, d.Logger)

	staff := middleware.RoleAuth(model.RoleHospital, model.RoleAdmin)
	admin := middleware.RoleAuth(model.RoleAdmin)
	donor := middleware.RoleAuth(model.RoleDonor)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 公开接口
		v1.POST("/auth/register", h.Auth.Register)
		v1.POST("/auth/login", loginLimit, h.Auth.Login)
		v1.GET("/hospitals/approved", h.Hospital.ListApproved)
		v1.POST("/emergency-requests", emergencyLimit, h.Emergency.CreateRequest)

		// 需要登录
		authorized := v1.Group("")
		authorized.Use(middleware.SessionAuth(d.JWT, d.Session, d.Config.Auth.Cookie.Name, d.Logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			authorized.GET("/dashboard", h.Dashboard.GetDashboard)

			// 用户
			users := authorized.Group("/users")
			{
				users.GET("/me", h.User.GetMe)
				users.PUT("/me", h.User.UpdateMe)
				users.GET("", admin, h.User.ListUsers)
				users.PUT("/:id/active", admin, h.User.SetActive)
			}

			// 献血者
			donors := authorized.Group("/donors", donor)
			{
				donors.GET("/eligibility", h.Donor.GetEligibility)
				donors.GET("/donations", h.Donor.ListDonations)
			}

			// 预约（范围与状态权限由 Service 层按角色判定）
			appointments := authorized.Group("/appointments")
			{
				appointments.POST("", donor, h.Appointment.CreateAppointment)
				appointments.GET("", h.Appointment.ListAppointments)
				appointments.GET("/:id", h.Appointment.GetAppointment)
				appointments.PUT("/:id/status", h.Appointment.UpdateStatus)
				appointments.PUT("/:id/reschedule", h.Appointment.Reschedule)
			}

			// 库存
			inventory := authorized.Group("/inventory")
			{
				inventory.GET("/network", h.Inventory.GetNetworkTotals)
				inventory.GET("", staff, h.Inventory.GetInventory)
				inventory.POST("/adjust", staff, h.Inventory.AdjustInventory)
				inventory.PUT("/required", staff, h.Inventory.SetRequired)
				inventory.GET("/history", staff, h.Inventory.ListHistory)
			}

			// 医院审核
			hospitals := authorized.Group("/hospitals")
			{
				hospitals.GET("", admin, h.Hospital.ListHospitals)
				hospitals.GET("/:id", h.Hospital.GetHospital)
				hospitals.POST("/:id/approve", admin, h.Hospital.Transition(service.HospitalActionApprove))
				hospitals.POST("/:id/reject", admin, h.Hospital.Transition(service.HospitalActionReject))
				hospitals.POST("/:id/suspend", admin, h.Hospital.Transition(service.HospitalActionSuspend))
				hospitals.POST("/:id/reactivate", admin, h.Hospital.Transition(service.HospitalActionReactivate))
			}

			// 紧急用血
			emergency := authorized.Group("/emergency-requests", staff)
			{
				emergency.GET("", h.Emergency.ListRequests)
				emergency.POST("/:id/fulfill", h.Emergency.FulfillRequest)
				emergency.POST("/:id/cancel", h.Emergency.CancelRequest)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}

			// 导出
			export := authorized.Group("/export")
			{
				export.GET("/inventory", staff, h.Export.ExportInventory)
				export.GET("/appointments.ics", h.Export.ExportAppointments)
			}
		}
	}

	return r
}

// healthCheck 数据库不可达返回 503；Redis 可选，仅上报状态
func healthCheck(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		result := gin.H{"status": "ok", "database": "up"}
		if db == nil || db.PingContext(ctx) != nil {
			status = http.StatusServiceUnavailable
			result["status"] = "degraded"
			result["database"] = "down"
		}

		switch {
		case rdb == nil:
			result["redis"] = "disabled"
		case rdb.Ping(ctx) != nil:
			result["redis"] = "down"
		default:
			result["redis"] = "up"
		}

		c.JSON(status, result)
	}
}
