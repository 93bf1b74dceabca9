// Package solver 将识别出的棋盘状态提交给外部求解服务
package solver

import (
	"context"
	"fmt"

	"github.com/zoeyai/snapreader/pkg/board"
)

// Direction 单词方向
type Direction int

const (
	Horizontal Direction = iota
	Vertical
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Move 求解服务返回的一步走法，X/Y 为起始格的列与行
type Move struct {
	Word      string    `json:"word"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Direction Direction `json:"direction"`
	Score     int       `json:"score,omitempty"`
}

// String 格式: WORD (x, y) (horizontal)
func (m Move) String() string {
	return fmt.Sprintf("%s (%d, %d) (%s)", m.Word, m.X, m.Y, m.Direction)
}

// Solver 求解器，任何失败都返回空列表
type Solver interface {
	Solve(ctx context.Context, state *board.State) []Move
}

// DryRun 不访问网络的求解器
type DryRun struct{}

// Solve 始终返回空列表
func (DryRun) Solve(context.Context, *board.State) []Move {
	return []Move{}
}
