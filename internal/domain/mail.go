package domain

// ReportMessage 是发布到消息队列中的报告
// Type 为 "generation" 时 Data 为 GenerationReport，为 "final" 时 Data 为 FinalReport
type ReportMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	ReportTypeGeneration = "generation"
	ReportTypeFinal      = "final"
)
