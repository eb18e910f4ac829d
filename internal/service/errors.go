package service

import (
	"errors"

	"github.com/qs3c/rfq_alchemy/internal/session"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrActionItemNotFound = errors.New("action item not found")
	ErrNoProposals        = errors.New("no proposals available for analysis")
	ErrAnalysisNotReady   = errors.New("analysis has not completed yet")
	ErrEmptyMessage       = errors.New("message must not be empty")
	ErrDocumentBusy       = session.ErrDocumentBusy
)

// ProgressFunc 分析步骤回调，worker 用它推送进度
type ProgressFunc func(step string)

func (f ProgressFunc) report(step string) {
	if f != nil {
		f(step)
	}
}

// sessionErr 把会话存储的错误转换成服务层错误
func sessionErr(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}
