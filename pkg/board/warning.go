package board

import (
	"fmt"
)

// Expectation 识别完整性的期望值
type Expectation struct {
	// RackLetters 期望的字母架字母数
	RackLetters int
	// MinBoardCells 棋盘上至少应识别的格子数 (字母 + 奖励格)
	MinBoardCells int
}

// DefaultExpectation 字母架满 7 个，棋盘不作要求
func DefaultExpectation() Expectation {
	return Expectation{RackLetters: RackSlots}
}

// PartialRecognitionWarning 识别结果不完整，状态仍然可用
type PartialRecognitionWarning struct {
	BoardCells    int
	MinBoardCells int
	RackLetters   int
	ExpectedRack  int
	MissingSlots  []int
}

func (w *PartialRecognitionWarning) Error() string {
	return fmt.Sprintf("识别结果不完整: 棋盘 %d 格 (至少 %d), 字母架 %d/%d, 缺失槽位 %v",
		w.BoardCells, w.MinBoardCells, w.RackLetters, w.ExpectedRack, w.MissingSlots)
}

// Check 检查识别是否完整，不完整时返回警告
func Check(s *State, expect Expectation) *PartialRecognitionWarning {
	boardCells := len(s.Letters) + len(s.Bonuses)
	if len(s.Rack) >= expect.RackLetters && boardCells >= expect.MinBoardCells {
		return nil
	}
	return &PartialRecognitionWarning{
		BoardCells:    boardCells,
		MinBoardCells: expect.MinBoardCells,
		RackLetters:   len(s.Rack),
		ExpectedRack:  expect.RackLetters,
		MissingSlots:  s.MissingSlots(),
	}
}
