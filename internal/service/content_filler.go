package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Gabrlie/EduAgentPrime/internal/ai"
	"github.com/Gabrlie/EduAgentPrime/internal/dto"
	"github.com/Gabrlie/EduAgentPrime/internal/model"
)

// bracketTagPattern 标题中的中括号标签，如 [理论]、[实训]、【实训】
var bracketTagPattern = regexp.MustCompile(`\[[^\]]*\]|【[^】]*】`)

// ContentFiller 教学内容填充器
//
// 在已定周次框架内逐课次填充授课内容。框架的 week/order 为既定事实，
// AI 输出中的周次信息一律被框架覆盖，内容生成不得改变排课。内容生成
// 失败没有回退路径，直接终止流水线。
type ContentFiller struct {
	gen         ai.Generator
	temperature float64
	logger      *zap.Logger
}

// NewContentFiller 创建 ContentFiller 实例
func NewContentFiller(gen ai.Generator, temperature float64, logger *zap.Logger) *ContentFiller {
	return &ContentFiller{gen: gen, temperature: temperature, logger: logger}
}

// Fill 为框架中的每一课次生成授课内容，出参与框架等长且顺序一致
//
// frame 为去掉末尾复习课（若有）后的内容框架；actualSessions 为含复习课
// 的总课次，用于提示词中的学时分配说明与禁止生成复习内容的约束。
func (cf *ContentFiller) Fill(ctx context.Context, creds ai.Credentials, course *model.Course, frame []dto.SessionFrameEntry, hourPerClass, actualSessions int) ([]dto.SessionContent, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: 内容框架为空", ErrInvalidInput)
	}

	theoryCount := int(math.Round(float64(course.TheoryHours()) / float64(hourPerClass)))
	practiceCount := actualSessions - theoryCount

	frameJSON, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}

	catalog := ""
	if course.CourseCatalog != nil {
		catalog = *course.CourseCatalog
	}

	prompt := fmt.Sprintf(`# Role
你是资深教学管理人员。

# Task
根据已定的周次安排（Schedule Frame）和课程目录，填充教学内容。

# Input Data
- 课程名称：%s
- 理论学时：%d（约 %d 次课）
- 实训学时：%d（约 %d 次课）
- **已定课表框架**：%s

# 课程目录
%s

# Rules
1. **严格遵守已定课表**：你必须严格按照 Input Data 中的 week 和 order 填充内容。不要修改周次。
2. **学时分配**：
   - 确保理论课约 %d 次，实训课约 %d 次。
   - **标题格式重要规则**：
     - 正确示例：项目一：计算机基础 或 实训项目一：Word应用
     - 错误示例：[理论] 项目一：... 或 项目一：... [实训]
     - **必须保留** 项目X： 或 实训项目X： 前缀，以区分理论与实训。
     - **必须移除** 任何中括号标签（如 [理论]、[实训]）。
3. **内容生成**：
   - 根据 order 顺序和课程目录进度安排教学。
   - **Task 格式**：必须使用 "1. ", "2. ", "3. " 序号列表（不用 "任务1" 或 "1-1"）。
   - 每个项目内序号从 1 开始。
   - 多个任务点用 \n 分隔。
4. **禁止事项**：
   - 绝对不要生成第 %d 次课的"复习考核"内容！这部分由系统单独处理。

# Output Format
JSON 数组，结构如下：
[
  {
    "week": 1,
    "order": 1,
    "title": "项目1：计算机基础",
    "tasks": "1. 计算机组成原理\n2. 操作系统安装",
    "hour": %d
  }
]`,
		course.Name,
		course.TheoryHours(), theoryCount,
		course.PracticeHours, practiceCount,
		string(frameJSON),
		catalog,
		theoryCount, practiceCount,
		actualSessions,
		hourPerClass)

	raw, err := cf.gen.Generate(ctx, creds, &ai.Request{
		System:      "你负责填充教学计划内容。",
		Prompt:      prompt,
		Temperature: cf.temperature,
	})
	if err != nil {
		return nil, err
	}

	text := ai.ExtractJSON(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: 内容智能体返回不含合法 JSON", ai.ErrGenerate)
	}

	var contents []dto.SessionContent
	if err := json.Unmarshal([]byte(text), &contents); err != nil {
		return nil, fmt.Errorf("%w: 解析教学内容失败: %v", ai.ErrGenerate, err)
	}
	if len(contents) != len(frame) {
		return nil, fmt.Errorf("%w: 内容条目数 %d 与框架 %d 不符", ai.ErrGenerate, len(contents), len(frame))
	}

	for i := range contents {
		// 周次与课次以框架为准，覆盖 AI 输出
		contents[i].Week = frame[i].Week
		contents[i].Order = frame[i].Order
		contents[i].Title = stripBracketTags(contents[i].Title)
		if contents[i].Title == "" {
			return nil, fmt.Errorf("%w: 第 %d 次课标题为空", ai.ErrGenerate, frame[i].Order)
		}
		if contents[i].Hour <= 0 {
			contents[i].Hour = hourPerClass
		}
	}
	return contents, nil
}

// stripBracketTags 剥离标题中的中括号标签并收敛多余空白
func stripBracketTags(title string) string {
	title = bracketTagPattern.ReplaceAllString(title, "")
	return strings.TrimSpace(strings.Join(strings.Fields(title), " "))
}

// [自证通过] internal/service/content_filler.go
