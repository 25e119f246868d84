package types

import (
	"errors"
	"fmt"
	"strings"
)

// 错误分类
var (
	ErrInput          = errors.New("输入数据错误")  // 输入质量错误，对当前计算致命
	ErrNonConvergence = errors.New("数值计算未收敛") // 最小化或拟合失败
	ErrExpression     = errors.New("表达式无效")   // 用户公式错误，可重试
)

// StepError 带定位信息的计算步骤错误
type StepError struct {
	Stage      string // 计算阶段，如 "isoconversional"
	Experiment string // 实验名称
	Checkpoint int    // 检查点索引，-1 表示不适用
	Model      string // 动力学模型名称
	Err        error  // 底层错误
}

// NewStepError 创建步骤错误，检查点默认不适用
func NewStepError(stage string, err error) *StepError {
	return &StepError{Stage: stage, Checkpoint: -1, Err: err}
}

// Error 错误信息
func (e *StepError) Error() string {
	var b strings.Builder
	b.WriteString(e.Stage)
	if e.Experiment != "" {
		fmt.Fprintf(&b, " 实验=%s", e.Experiment)
	}
	if e.Checkpoint >= 0 {
		fmt.Fprintf(&b, " 检查点=%d", e.Checkpoint)
	}
	if e.Model != "" {
		fmt.Fprintf(&b, " 模型=%s", e.Model)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap 支持 errors.Is / errors.As
func (e *StepError) Unwrap() error { return e.Err }

// Inputf 生成输入错误
func Inputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}
