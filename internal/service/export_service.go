package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tutorhub/backend/config"
	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/repository"
	"tutorhub/backend/internal/scheduling"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSessions   = errors.New("该辅导班尚未生成课次")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportClassSessions 导出辅导班课次表为 Excel
	ExportClassSessions(ctx context.Context, classID string, callerID, callerRole string) (*bytes.Buffer, string, error)
}

type exportService struct {
	cfg    *config.ScheduleConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.ScheduleConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportClassSessions：导出课次表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "课表"：行为周课表时段（按录入顺序），列为第 1..N 周，单元格为日期与状态
//   - Sheet "课次明细"：每个课次一行
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportClassSessions(ctx context.Context, classID string, callerID, callerRole string) (*bytes.Buffer, string, error) {
	// 1. 查询班级
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrClassNotFound
		}
		s.logger.Error("查询辅导班失败", zap.String("class_id", classID), zap.Error(err))
		return nil, "", err
	}
	if class.Status == model.ClassStatusDraft && class.TutorID != callerID && callerRole != model.RoleCoordinator {
		return nil, "", ErrClassNotFound
	}

	// 2. 查询课次
	records, err := s.repo.Session.List(ctx, repository.SessionFilter{ClassID: classID})
	if err != nil {
		s.logger.Error("查询课次失败", zap.String("class_id", classID), zap.Error(err))
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", ErrExportNoSessions
	}

	loc := s.cfg.Location()
	sessions := make([]scheduling.Session, 0, len(records))
	for i := range records {
		sessions = append(sessions, toEngineSession(&records[i], loc))
	}

	title := class.ClassCode
	if class.Subject != nil {
		title = fmt.Sprintf("%s %s", class.ClassCode, class.Subject.Name)
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	writeGridSheet(f, "课表", title, toSchedule(class.Slots), class.WeekCount, s.cfg.PeriodMinutes, sessions, headerStyle)
	writeDetailSheet(f, "课次明细", sessions, records, headerStyle)

	idx, _ := f.GetSheetIndex("课表")
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课次表_%s.xlsx", class.ClassCode)
	return buf, filename, nil
}

// writeGridSheet 时段 × 周次 网格
func writeGridSheet(f *excelize.File, sheet, title string, schedule scheduling.WeeklySchedule, weeks, periodMinutes int,
	sessions []scheduling.Session, headerStyle int) {
	f.NewSheet(sheet)

	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 10)
	f.SetColWidth(sheet, "C", "C", 14)
	for i := 0; i < weeks; i++ {
		col := colName(3 + i)
		f.SetColWidth(sheet, col, col, 16)
	}

	// 标题行
	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s — 课次表", title))
	f.MergeCell(sheet, "A1", cell(colName(2+weeks), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(sheet, cell("A", 2), "星期")
	f.SetCellValue(sheet, cell("B", 2), "节次")
	f.SetCellValue(sheet, cell("C", 2), "时间")
	for wn := 1; wn <= weeks; wn++ {
		f.SetCellValue(sheet, cell(colName(2+wn), 2), fmt.Sprintf("第%d周", wn))
	}

	// "周次:星期:开始节次" → 单元格文本
	index := make(map[string]string, len(sessions))
	for _, sess := range sessions {
		text := sess.SessionDate.Format("01-02")
		if sess.Status != scheduling.SessionScheduled {
			text += " " + sessionStatusLabel(sess.Status)
		}
		index[fmt.Sprintf("%d:%d:%d", sess.WeekNumber, sess.DayOfWeek, sess.StartPeriod)] = text
	}

	// 数据行
	row := 3
	for _, slot := range schedule {
		first := scheduling.Session{StartPeriod: slot.StartPeriod, DurationMinutes: slot.DurationMinutes(periodMinutes)}
		f.SetCellValue(sheet, cell("A", row), scheduling.DayName(slot.DayOfWeek))
		f.SetCellValue(sheet, cell("B", row), slot.Range().String())
		f.SetCellValue(sheet, cell("C", row), fmt.Sprintf("%s-%s", first.StartsAt().Format("15:04"), first.EndsAt().Format("15:04")))
		for wn := 1; wn <= weeks; wn++ {
			text, ok := index[fmt.Sprintf("%d:%d:%d", wn, slot.DayOfWeek, slot.StartPeriod)]
			if !ok {
				text = "-"
			}
			f.SetCellValue(sheet, cell(colName(2+wn), row), text)
		}
		row++
	}
}

// writeDetailSheet 课次逐行明细
func writeDetailSheet(f *excelize.File, sheet string, sessions []scheduling.Session, records []model.Session, headerStyle int) {
	f.NewSheet(sheet)

	headers := []string{"周次", "日期", "星期", "节次", "开始", "结束", "时长(分钟)", "状态", "取消原因"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(sheet, "B", "B", 12)
	f.SetColWidth(sheet, "I", "I", 30)

	for i, sess := range sessions {
		row := i + 2
		values := []interface{}{
			sess.WeekNumber,
			sess.SessionDate.Format(dateLayout),
			scheduling.DayName(sess.DayOfWeek),
			fmt.Sprintf("%d-%d", sess.StartPeriod, sess.EndPeriod),
			sess.StartsAt().Format("15:04"),
			sess.EndsAt().Format("15:04"),
			sess.DurationMinutes,
			sessionStatusLabel(sess.Status),
			records[i].CancelReason,
		}
		for j, v := range values {
			f.SetCellValue(sheet, cell(colName(j), row), v)
		}
	}
}

func sessionStatusLabel(status scheduling.SessionStatus) string {
	switch status {
	case scheduling.SessionCompleted:
		return "已完成"
	case scheduling.SessionCancelled:
		return "已取消"
	default:
		return "待上课"
	}
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
