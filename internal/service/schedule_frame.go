package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Gabrlie/EduAgentPrime/internal/ai"
	"github.com/Gabrlie/EduAgentPrime/internal/dto"
)

// FrameComputer 周次框架计算器
//
// 主路径调用排课智能体解读自由文本的排课调整说明；AI 失败、超时或返回
// 结构非法时回退到确定性的顺序填充算法。回退算法无法理解调整说明，
// 此时忽略 skipDirective 是已知且接受的降级行为，不要试图在回退路径
// 还原 AI 路径的语义。
type FrameComputer struct {
	gen         ai.Generator
	temperature float64
	logger      *zap.Logger
}

// NewFrameComputer 创建 FrameComputer 实例
func NewFrameComputer(gen ai.Generator, temperature float64, logger *zap.Logger) *FrameComputer {
	return &FrameComputer{gen: gen, temperature: temperature, logger: logger}
}

// CheckCapacity 容量校验：所需课次不得超过 总周数×每周次数
//
// 必须在任何外部调用之前执行。
func CheckCapacity(totalWeeks, classesPerWeek, actualSessions int) error {
	maxSessions := totalWeeks * classesPerWeek
	if actualSessions > maxSessions {
		return fmt.Errorf("%w: 课程需要 %d 次课，但只有 %d 次课时间（%d 周），请增加周数或每周上课次数",
			ErrCapacity, actualSessions, maxSessions, totalWeeks)
	}
	return nil
}

// Compute 计算周次框架，总是返回满足结构不变式的结果
//
// 出参保证：条目数 == actualSessions，order 从 1 连续递增，week 单调
// 不减且不超过 totalWeeks。调用方须先通过 CheckCapacity。
func (f *FrameComputer) Compute(ctx context.Context, creds ai.Credentials, totalWeeks, classesPerWeek, actualSessions int, skipDirective string) []dto.SessionFrameEntry {
	frame, err := f.computeWithAI(ctx, creds, totalWeeks, classesPerWeek, actualSessions, skipDirective)
	if err != nil {
		f.logger.Warn("排课智能体失败，回退到顺序填充",
			zap.Error(err),
			zap.Int("actual_sessions", actualSessions))
		return roundRobinFrame(totalWeeks, classesPerWeek, actualSessions)
	}
	return frame
}

func (f *FrameComputer) computeWithAI(ctx context.Context, creds ai.Credentials, totalWeeks, classesPerWeek, actualSessions int, skipDirective string) ([]dto.SessionFrameEntry, error) {
	directive := skipDirective
	if directive == "" {
		directive = "无"
	}

	prompt := fmt.Sprintf(`# Role
你是排课专家，负责计算每一节课所在的周次。

# Input
- 总周数: %d
- 每周上课次数: %d
- 总共需要排多少次课: %d
- **排课调整说明** (skip_weeks): %s

# Rules
1. 默认情况下，课程按顺序填入每周。例如每周2次，则第1、2次课在第1周，第3、4次课在第2周。
2. **最高优先级**：必须严格执行"排课调整说明"。
   - 示例 "第3周周五开始" (每周5次): 前面周次空白。第1次课在第3周。
   - 示例 "第1周只上1次": 第1次课在第1周，第2次课在第2周（假设每周2次）。
   - 示例 "第8周国庆放假": 任何课都不能排在第8周，相关课程顺延到第9周。
3. 输出必须包含所有 %d 次课的安排。

# Output Format
JSON 数组，每项包含 order (1..%d) 和 week。
示例:
[
  {"order": 1, "week": 1},
  {"order": 2, "week": 1}
]`, totalWeeks, classesPerWeek, actualSessions, directive, actualSessions, actualSessions)

	raw, err := f.gen.Generate(ctx, creds, &ai.Request{
		System:      "你是排课计算引擎。只输出JSON数据。",
		Prompt:      prompt,
		Temperature: f.temperature,
	})
	if err != nil {
		return nil, err
	}

	text := ai.ExtractJSON(raw)
	if text == "" {
		return nil, fmt.Errorf("排课智能体返回内容不含合法 JSON")
	}

	var frame []dto.SessionFrameEntry
	if err := json.Unmarshal([]byte(text), &frame); err != nil {
		return nil, fmt.Errorf("解析排课结果失败: %w", err)
	}
	if err := validateFrame(frame, totalWeeks, actualSessions); err != nil {
		return nil, err
	}
	return frame, nil
}

// validateFrame 校验框架结构不变式
func validateFrame(frame []dto.SessionFrameEntry, totalWeeks, actualSessions int) error {
	if len(frame) != actualSessions {
		return fmt.Errorf("框架条目数 %d != 期望课次 %d", len(frame), actualSessions)
	}
	var problems []string
	prevWeek := 0
	for i, entry := range frame {
		if entry.Order != i+1 {
			problems = append(problems, fmt.Sprintf("第%d项 order=%d 不连续", i+1, entry.Order))
		}
		if entry.Week < prevWeek {
			problems = append(problems, fmt.Sprintf("第%d项 week=%d 出现回退", i+1, entry.Week))
		}
		if entry.Week < 1 || entry.Week > totalWeeks {
			problems = append(problems, fmt.Sprintf("第%d项 week=%d 超出 [1,%d]", i+1, entry.Week, totalWeeks))
		}
		prevWeek = entry.Week
	}
	if len(problems) > 0 {
		return fmt.Errorf("框架结构校验失败: %s", strings.Join(problems, "; "))
	}
	return nil
}

// roundRobinFrame 确定性回退：按 order 顺序填入每周，每周最多 classesPerWeek 次
func roundRobinFrame(totalWeeks, classesPerWeek, actualSessions int) []dto.SessionFrameEntry {
	frame := make([]dto.SessionFrameEntry, 0, actualSessions)
	order := 1
	for week := 1; week <= totalWeeks && order <= actualSessions; week++ {
		for i := 0; i < classesPerWeek && order <= actualSessions; i++ {
			frame = append(frame, dto.SessionFrameEntry{Order: order, Week: week})
			order++
		}
	}
	return frame
}

// [自证通过] internal/service/schedule_frame.go
