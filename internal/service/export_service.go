package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
)

// 单次导出的最大预约数
const maxExportAppointments = 1000

// AppointmentDuration 日历事件时长
const AppointmentDuration = time.Hour

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportInventory 导出库存报表 (.xlsx)；管理员未指定医院时导出全网汇总
	ExportInventory(ctx context.Context, caller Caller, hospitalID string) (*bytes.Buffer, string, error)
	// ExportAppointmentsICS 导出预约日历 (.ics)，仅包含未取消、未完成的预约
	ExportAppointmentsICS(ctx context.Context, caller Caller, req *dto.AppointmentListRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	clock  clock
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, clock: newClock(loc), logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportInventory 导出库存报表
// ═══════════════════════════════════════════════════════════
//
// 表头：血型 | 可用量 | 需求量 | 状态 | 更新时间

func (s *exportService) ExportInventory(ctx context.Context, caller Caller, hospitalID string) (*bytes.Buffer, string, error) {
	title := "全网库存汇总"
	var rows [][]interface{}

	if caller.IsAdmin() && hospitalID == "" {
		totals, err := networkTotals(ctx, s.repo, s.logger)
		if err != nil {
			return nil, "", err
		}
		for _, t := range totals {
			rows = append(rows, []interface{}{t.BloodType, t.UnitsAvailable, t.UnitsRequired, t.Status, ""})
		}
	} else {
		id, err := resolveHospital(caller, hospitalID)
		if err != nil {
			return nil, "", err
		}
		h, err := s.repo.Hospital.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", ErrHospitalNotFound
			}
			s.logger.Error("查询医院失败", zap.String("hospital_id", id), zap.Error(err))
			return nil, "", err
		}
		inv, err := s.repo.Inventory.ListByHospital(ctx, id)
		if err != nil {
			s.logger.Error("查询库存失败", zap.String("hospital_id", id), zap.Error(err))
			return nil, "", err
		}
		title = h.HospitalName
		for _, it := range inventoryItems(inv) {
			rows = append(rows, []interface{}{it.BloodType, it.UnitsAvailable, it.UnitsRequired, it.Status, it.UpdatedAt})
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "库存"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "D", 12)
	f.SetColWidth(sheet, "E", "E", 24)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#C00000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s（导出于 %s）", title, s.clock.Now().Format("2006-01-02 15:04")))
	f.MergeCell(sheet, "A1", "E1")
	f.SetCellStyle(sheet, "A1", "E1", headerStyle)

	// 表头
	for i, h := range []string{"血型", "可用量", "需求量", "状态", "更新时间"} {
		c, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheet, c, h)
	}
	f.SetCellStyle(sheet, "A2", "E2", headerStyle)

	// 数据行
	for r, row := range rows {
		start, _ := excelize.CoordinatesToCellName(1, r+3)
		if err := f.SetSheetRow(sheet, start, &row); err != nil {
			s.logger.Error("写入库存行失败", zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("库存_%s_%s.xlsx", title, s.clock.Today().Format(model.DateLayout))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportAppointmentsICS 导出预约日历
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportAppointmentsICS(ctx context.Context, caller Caller, req *dto.AppointmentListRequest) (*bytes.Buffer, string, error) {
	filter, err := appointmentFilterFor(caller, req)
	if err != nil {
		return nil, "", err
	}
	if filter.DateFrom == nil {
		today := s.clock.Today()
		filter.DateFrom = &today
	}

	appts, _, err := s.repo.Appointment.List(ctx, filter, repository.Page{Limit: maxExportAppointments})
	if err != nil {
		s.logger.Error("查询预约失败", zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Raktsewa//Blood Donation Appointments//ZH")

	stamp := s.clock.Now()
	for i := range appts {
		a := &appts[i]
		if !model.IsActiveAppointmentStatus(a.Status) {
			continue
		}
		start, err := a.StartsAt(s.clock.loc)
		if err != nil {
			s.logger.Warn("预约时间无法解析，已跳过", zap.String("appointment_id", a.AppointmentID), zap.Error(err))
			continue
		}

		event := cal.AddEvent(a.AppointmentID + "@raktsewa")
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(AppointmentDuration))
		event.SetSummary(appointmentSummary(caller, a))
		if a.Hospital != nil {
			event.SetLocation(fmt.Sprintf("%s, %s", a.Hospital.Address, a.Hospital.City))
		}
		event.SetDescription(fmt.Sprintf("血型 %s，状态 %s。%s", a.BloodType, a.Status, a.Notes))
		if a.Status == model.AppointmentConfirmed {
			event.SetStatus(ics.ObjectStatusConfirmed)
		} else {
			event.SetStatus(ics.ObjectStatusTentative)
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("appointments_%s.ics", s.clock.Today().Format(model.DateLayout))
	return buf, filename, nil
}

// appointmentSummary 献血者看到医院名，医院看到献血者姓名
func appointmentSummary(caller Caller, a *model.Appointment) string {
	if caller.IsDonor() && a.Hospital != nil {
		return "献血预约 - " + a.Hospital.HospitalName
	}
	if a.Donor != nil {
		return fmt.Sprintf("献血预约 - %s (%s)", a.Donor.FullName, a.BloodType)
	}
	return "献血预约 (" + a.BloodType + ")"
}
