package board

import (
	"github.com/samber/lo"

	"github.com/zoeyai/snapreader/pkg/templates"
)

// Resolve 将原始匹配映射到最近的格子/槽位，每个位置保留最佳候选
// 结果与输入顺序无关
func Resolve(matches []RawMatch, grid Grid) *State {
	state := NewState()
	if len(grid.Board) == 0 && len(grid.Rack) == 0 {
		return state
	}

	cells := map[Cell]Candidate{}
	slots := map[int]Candidate{}

	for _, m := range matches {
		cand := Candidate{Label: m.Label, Confidence: m.Confidence, Source: SourceTemplate}

		switch m.Kind {
		case KindBoard:
			// 分界线以下的棋盘命中丢弃
			if m.Y >= grid.SplitY || len(grid.Board) == 0 {
				continue
			}
			p := grid.Board[nearest(grid.Board, m.X, m.Y)]
			cell := Cell{Col: p.Col, Row: p.Row}
			if cur, ok := cells[cell]; !ok || cand.better(cur) {
				cells[cell] = cand
			}
		case KindRack:
			// 分界线以上的字母架命中丢弃
			if m.Y < grid.SplitY || len(grid.Rack) == 0 {
				continue
			}
			p := grid.Rack[nearest(grid.Rack, m.X, m.Y)]
			if cur, ok := slots[p.Slot]; !ok || cand.better(cur) {
				slots[p.Slot] = cand
			}
		}
	}

	state.Cells = cells
	state.Bonuses = lo.MapValues(
		lo.PickBy(cells, func(_ Cell, c Candidate) bool { return templates.IsBonus(c.Label) }),
		func(c Candidate, _ Cell) string { return c.Label },
	)
	state.Letters = lo.MapValues(
		lo.OmitBy(cells, func(_ Cell, c Candidate) bool { return templates.IsBonus(c.Label) }),
		func(c Candidate, _ Cell) string { return c.Label },
	)
	state.RackSlots = slots
	state.rebuildRack()
	return state
}
