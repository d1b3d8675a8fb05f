package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Sudeep845/Raktsewa-sub000/config"
	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	pkgerrors "github.com/Sudeep845/Raktsewa-sub000/pkg/errors"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Donor        *DonorHandler
	Appointment  *AppointmentHandler
	Inventory    *InventoryHandler
	Hospital     *HospitalHandler
	Emergency    *EmergencyHandler
	Notification *NotificationHandler
	Dashboard    *DashboardHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, cookie config.CookieConfig) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, cookie),
		User:         NewUserHandler(svc.User),
		Donor:        NewDonorHandler(svc.Donor),
		Appointment:  NewAppointmentHandler(svc.Appointment),
		Inventory:    NewInventoryHandler(svc.Inventory),
		Hospital:     NewHospitalHandler(svc.Hospital),
		Emergency:    NewEmergencyHandler(svc.Emergency),
		Notification: NewNotificationHandler(svc.Notification),
		Dashboard:    NewDashboardHandler(svc.Dashboard),
		Export:       NewExportHandler(svc.Export),
	}
}

// RegisterValidatorTagNames 让 binding 校验错误使用 json / form 标签名作为字段名
func RegisterValidatorTagNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// ── 公共错误响应 ──

// respondBindError 参数绑定失败：校验错误返回字段级信息，其余为格式错误
func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		response.ValidationFailed(c, fields)
		return
	}
	response.BadRequest(c, 10001, "请求参数格式错误")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "email":
		return "邮箱格式无效"
	case "uuid":
		return "ID 格式无效"
	case "oneof":
		return fmt.Sprintf("取值必须为: %s", fe.Param())
	case "min", "gt", "gte":
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "max", "lt", "lte":
		return fmt.Sprintf("不能大于 %s", fe.Param())
	case "alphanum":
		return "只能包含字母和数字"
	default:
		return "格式无效"
	}
}

func isCheckViolation(err error) bool {
	_, ok := pkgerrors.CheckViolation(err)
	return ok
}

// respondError 各模块未识别的错误统一兜底
func respondError(c *gin.Context, err error) {
	if verr, ok := pkgerrors.AsValidation(err); ok {
		response.ValidationFailed(c, verr.Fields)
		return
	}
	switch {
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权操作")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, "用户不存在")
	case errors.Is(err, service.ErrHospitalNotFound):
		response.NotFound(c, 15001, "医院不存在")
	case isCheckViolation(err):
		_ = c.Error(err)
		response.Conflict(c, 10006, "数据不满足约束条件")
	case pkgerrors.IsDependency(err):
		_ = c.Error(err)
		response.ServiceUnavailable(c)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
