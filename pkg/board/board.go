// Package board 定义棋盘状态，并将原始匹配结果映射到逻辑网格
package board

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// 棋盘尺寸
const (
	Cols      = 8
	Rows      = 7
	RackSlots = 7
)

// Kind 匹配来源区域
type Kind int

const (
	KindBoard Kind = iota
	KindRack
)

func (k Kind) String() string {
	if k == KindRack {
		return "rack"
	}
	return "board"
}

// Cell 棋盘格坐标
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.Col, c.Row)
}

// RawMatch 匹配引擎输出的原始命中，X/Y 为模板中心
type RawMatch struct {
	Label      string  `json:"label"`
	Kind       Kind    `json:"kind"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Source 候选来源
type Source string

const (
	SourceTemplate Source = "template"
	SourceOCR      Source = "ocr"
)

// Candidate 某个格子/槽位上保留的候选
type Candidate struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// better 判断 c 是否优于 other: 置信度高者优先，相同时取字典序较小的标签
func (c Candidate) better(other Candidate) bool {
	if c.Confidence != other.Confidence {
		return c.Confidence > other.Confidence
	}
	return c.Label < other.Label
}

// State 一次识别得到的棋盘状态
type State struct {
	Letters   map[Cell]string   `json:"-"`
	Bonuses   map[Cell]string   `json:"-"`
	Rack      []string          `json:"rack"`
	RackSlots map[int]Candidate `json:"rack_slots"`
	// Cells 棋盘格上保留的候选 (含字母与奖励格)
	Cells map[Cell]Candidate `json:"-"`
}

// NewState 创建空状态
func NewState() *State {
	return &State{
		Letters:   map[Cell]string{},
		Bonuses:   map[Cell]string{},
		Rack:      []string{},
		RackSlots: map[int]Candidate{},
		Cells:     map[Cell]Candidate{},
	}
}

// MissingSlots 返回没有识别结果的槽位
func (s *State) MissingSlots() []int {
	var missing []int
	for i := 0; i < RackSlots; i++ {
		if _, ok := s.RackSlots[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// SetRackSlot 写入槽位并重建有序字母架
func (s *State) SetRackSlot(slot int, c Candidate) {
	s.RackSlots[slot] = c
	s.rebuildRack()
}

func (s *State) rebuildRack() {
	slots := make([]int, 0, len(s.RackSlots))
	for slot := range s.RackSlots {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	s.Rack = make([]string, 0, len(slots))
	for _, slot := range slots {
		s.Rack = append(s.Rack, s.RackSlots[slot].Label)
	}
}

// Render 以文本网格形式输出棋盘，奖励格用小写表示
func (s *State) Render() string {
	var b strings.Builder
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			cell := Cell{Col: col, Row: row}
			switch {
			case s.Letters[cell] != "":
				fmt.Fprintf(&b, " %-2s", s.Letters[cell])
			case s.Bonuses[cell] != "":
				fmt.Fprintf(&b, " %-2s", strings.ToLower(s.Bonuses[cell]))
			default:
				b.WriteString(" . ")
			}
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "rack: %s\n", strings.Join(s.Rack, ""))
	return b.String()
}

// Placement 格子上的一个标签
type Placement struct {
	Col   int    `json:"col"`
	Row   int    `json:"row"`
	Label string `json:"label"`
}

// placements 按行优先顺序展开
func placements(m map[Cell]string) []Placement {
	out := make([]Placement, 0, len(m))
	for c, label := range m {
		out = append(out, Placement{Col: c.Col, Row: c.Row, Label: label})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// MarshalJSON 输出字母、奖励格与字母架
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Letters   []Placement       `json:"letters"`
		Bonuses   []Placement       `json:"bonuses"`
		Rack      []string          `json:"rack"`
		RackSlots map[int]Candidate `json:"rack_slots"`
	}{
		Letters:   placements(s.Letters),
		Bonuses:   placements(s.Bonuses),
		Rack:      s.Rack,
		RackSlots: s.RackSlots,
	})
}
