package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP 层
var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raktsewa",
		Name:      "http_requests_total",
		Help:      "按路由、方法、状态码统计的请求数",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "raktsewa",
		Name:      "http_request_duration_seconds",
		Help:      "请求处理耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// 业务层
var (
	InventoryAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raktsewa",
		Name:      "inventory_adjustments_total",
		Help:      "库存调整次数（按操作类型）",
	}, []string{"mode"})

	AppointmentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raktsewa",
		Name:      "appointment_transitions_total",
		Help:      "预约状态流转次数（按目标状态）",
	}, []string{"status"})

	AppointmentConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "raktsewa",
		Name:      "appointment_conflicts_total",
		Help:      "因时段或同日冲突被拒绝的预约数",
	})

	EmergencyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raktsewa",
		Name:      "emergency_requests_total",
		Help:      "紧急用血申请数（按紧急程度）",
	}, []string{"urgency"})

	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raktsewa",
		Name:      "side_effect_failures_total",
		Help:      "通知、审计日志等非关键写入失败次数",
	}, []string{"kind"})
)
