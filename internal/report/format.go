package report

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
)

// FormatFinal 将最终结果格式化为纯文本，命令行输出和邮件正文共用
func FormatFinal(report *domain.FinalReport) string {
	var b strings.Builder

	summary := uitable.New()
	summary.AddRow("运行:", report.RunID)
	summary.AddRow("迭代次数:", report.Generations)
	summary.AddRow("找到无冲突课表:", report.Solved)
	summary.AddRow("最好的适应度:", report.BestFitness)
	summary.AddRow("冲突数量:", report.Clashes)
	summary.AddRow("耗时:", report.Elapsed)
	b.WriteString(summary.String())
	b.WriteString("\n\n")

	classes := uitable.New()
	classes.MaxColWidth = 20
	classes.AddRow("课", "小组", "课程", "时间段", "教室", "教师")
	for _, class := range report.Classes {
		classes.AddRow(class.ID, class.GroupID, class.ModuleID, class.TimeslotID, class.RoomID, class.ProfessorID)
	}
	b.WriteString(classes.String())
	b.WriteString("\n")

	return b.String()
}

func FinalSubject(report *domain.FinalReport) string {
	if report.Solved {
		return fmt.Sprintf("排课完成 - %s", report.RunID)
	}
	return fmt.Sprintf("排课未完成 (%d 个冲突) - %s", report.Clashes, report.RunID)
}
