package board

import (
	"encoding/json"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func TestBuildGridCoordinates(t *testing.T) {
	sizes := [][2]int{{644, 680}, {1920, 1080}, {100, 100}, {37, 53}}

	for _, sz := range sizes {
		w, h := sz[0], sz[1]
		boardPts, rackPts := BuildGridCoordinates(w, h)
		if len(boardPts) != 56 {
			t.Errorf("%dx%d: 棋盘点数 = %d, want 56", w, h, len(boardPts))
		}
		if len(rackPts) != 7 {
			t.Errorf("%dx%d: 字母架点数 = %d, want 7", w, h, len(rackPts))
		}

		split := float64(h) * DefaultSplit
		for _, p := range boardPts {
			if p.Y >= split {
				t.Errorf("%dx%d: 棋盘点 %+v 不在分界线以上", w, h, p)
			}
		}
		for _, p := range rackPts {
			if p.Y < split {
				t.Errorf("%dx%d: 字母架点 %+v 在分界线以上", w, h, p)
			}
		}
	}
}

func TestGridRowMajor(t *testing.T) {
	boardPts, rackPts := BuildGridCoordinates(800, 700)

	for i, p := range boardPts {
		if p.Col != i%Cols || p.Row != i/Cols {
			t.Fatalf("第 %d 个点坐标 = (%d, %d)", i, p.Col, p.Row)
		}
	}
	// 800 宽 8 列: 列中心 50, 150, ...
	if boardPts[0].X != 50 || boardPts[7].X != 750 {
		t.Errorf("列中心不正确: %v, %v", boardPts[0].X, boardPts[7].X)
	}
	// 分界线 595, 7 行每行 85
	if boardPts[0].Y != 42.5 || boardPts[55].Y != 552.5 {
		t.Errorf("行中心不正确: %v, %v", boardPts[0].Y, boardPts[55].Y)
	}
	for i, p := range rackPts {
		if p.Slot != i || p.Y != 595 {
			t.Errorf("槽位 %d = %+v", i, p)
		}
	}
}

func testGrid() Grid {
	return NewGrid(800, 700, DefaultSplit)
}

func TestResolveSingleLetter(t *testing.T) {
	grid := testGrid()
	p := grid.Board[2*Cols+5]

	state := Resolve([]RawMatch{{Label: "Q", Kind: KindBoard, X: p.X + 3, Y: p.Y - 2, Confidence: 0.93}}, grid)

	want := map[Cell]string{{Col: 5, Row: 2}: "Q"}
	if !reflect.DeepEqual(state.Letters, want) {
		t.Errorf("Letters = %v, want %v", state.Letters, want)
	}
	if len(state.Bonuses) != 0 || len(state.Rack) != 0 {
		t.Errorf("不应有其他结果: bonuses=%v rack=%v", state.Bonuses, state.Rack)
	}
}

func TestResolveKeepsHigherConfidence(t *testing.T) {
	grid := testGrid()
	p := grid.Board[Cols+1]

	matches := []RawMatch{
		{Label: "E", Kind: KindBoard, X: p.X, Y: p.Y, Confidence: 0.95},
		{Label: "F", Kind: KindBoard, X: p.X + 4, Y: p.Y + 1, Confidence: 0.70},
		{Label: "A", Kind: KindRack, X: grid.Rack[0].X, Y: grid.Rack[0].Y + 10, Confidence: 0.9},
		{Label: "R", Kind: KindRack, X: grid.Rack[0].X - 2, Y: grid.Rack[0].Y + 10, Confidence: 0.85},
		{Label: "2W", Kind: KindBoard, X: grid.Board[0].X, Y: grid.Board[0].Y, Confidence: 0.9},
	}

	want := Resolve(matches, grid)
	if want.Letters[Cell{Col: 1, Row: 1}] != "E" {
		t.Fatalf("应保留置信度 0.95 的 E: %v", want.Letters)
	}

	// 任意顺序结果一致
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]RawMatch(nil), matches...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Resolve(shuffled, grid)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("顺序 %v 结果不同:\n%v\nvs\n%v", shuffled, got.Render(), want.Render())
		}
	}
}

func TestResolveEqualConfidence(t *testing.T) {
	grid := testGrid()
	p := grid.Board[0]

	a := RawMatch{Label: "O", Kind: KindBoard, X: p.X, Y: p.Y, Confidence: 0.9}
	b := RawMatch{Label: "D", Kind: KindBoard, X: p.X, Y: p.Y, Confidence: 0.9}

	for _, order := range [][]RawMatch{{a, b}, {b, a}} {
		state := Resolve(order, grid)
		if got := state.Letters[Cell{}]; got != "D" {
			t.Errorf("相同置信度应取字典序较小的标签, got %q", got)
		}
	}
}

func TestResolveTieBreak(t *testing.T) {
	grid := testGrid()

	// 四个格子的公共角点: 取最小行，再取最小列
	corner := RawMatch{Label: "X", Kind: KindBoard, X: 200, Y: 170, Confidence: 0.9}
	state := Resolve([]RawMatch{corner}, grid)
	if _, ok := state.Letters[Cell{Col: 1, Row: 1}]; !ok {
		t.Errorf("等距时应分配到 (1, 1): %v", state.Letters)
	}

	// 两个槽位正中: 取较小槽位
	rackGrid := NewGrid(700, 700, DefaultSplit)
	state = Resolve([]RawMatch{{Label: "K", Kind: KindRack, X: 300, Y: rackGrid.SplitY + 5, Confidence: 0.9}}, rackGrid)
	if c, ok := state.RackSlots[2]; !ok || c.Label != "K" {
		t.Errorf("等距时应分配到槽位 2: %v", state.RackSlots)
	}
}

func TestResolveSplitFilter(t *testing.T) {
	grid := testGrid()

	matches := []RawMatch{
		{Label: "A", Kind: KindBoard, X: 50, Y: grid.SplitY + 20, Confidence: 0.99},
		{Label: "B", Kind: KindRack, X: 50, Y: grid.SplitY - 20, Confidence: 0.99},
	}
	state := Resolve(matches, grid)
	if len(state.Letters) != 0 || len(state.Rack) != 0 {
		t.Errorf("越过分界线的命中应被丢弃: letters=%v rack=%v", state.Letters, state.Rack)
	}
}

func TestResolvePartitionAndRackOrder(t *testing.T) {
	grid := testGrid()

	var matches []RawMatch
	for slot, l := range []string{"A", "D", "E", "F", "G", "H", "I"} {
		if slot == 3 {
			continue
		}
		p := grid.Rack[slot]
		// 倒序添加，验证按槽位排序
		matches = append([]RawMatch{{Label: l, Kind: KindRack, X: p.X, Y: p.Y + 25, Confidence: 0.9}}, matches...)
	}
	matches = append(matches,
		RawMatch{Label: "3L", Kind: KindBoard, X: grid.Board[9].X, Y: grid.Board[9].Y, Confidence: 0.9},
		RawMatch{Label: "T", Kind: KindBoard, X: grid.Board[10].X, Y: grid.Board[10].Y, Confidence: 0.9},
	)

	state := Resolve(matches, grid)

	if got := strings.Join(state.Rack, ""); got != "ADEGHI" {
		t.Errorf("Rack = %q, want ADEGHI", got)
	}
	if !reflect.DeepEqual(state.MissingSlots(), []int{3}) {
		t.Errorf("MissingSlots = %v", state.MissingSlots())
	}
	if state.Bonuses[Cell{Col: 1, Row: 1}] != "3L" || len(state.Bonuses) != 1 {
		t.Errorf("Bonuses = %v", state.Bonuses)
	}
	if state.Letters[Cell{Col: 2, Row: 1}] != "T" || len(state.Letters) != 1 {
		t.Errorf("Letters = %v", state.Letters)
	}

	state.SetRackSlot(3, Candidate{Label: "F", Confidence: 0.6, Source: SourceOCR})
	if got := strings.Join(state.Rack, ""); got != "ADEFGHI" {
		t.Errorf("补齐后 Rack = %q", got)
	}
}

func TestCheck(t *testing.T) {
	grid := testGrid()
	var matches []RawMatch
	for slot := 0; slot < 5; slot++ {
		p := grid.Rack[slot]
		matches = append(matches, RawMatch{Label: "S", Kind: KindRack, X: p.X, Y: p.Y + 20, Confidence: 0.9})
	}
	state := Resolve(matches, grid)

	w := Check(state, DefaultExpectation())
	if w == nil {
		t.Fatal("字母架不足应返回警告")
	}
	var err error = w
	var target *PartialRecognitionWarning
	if !errors.As(err, &target) {
		t.Fatal("警告应可通过 errors.As 识别")
	}
	if target.RackLetters != 5 || !reflect.DeepEqual(target.MissingSlots, []int{5, 6}) {
		t.Errorf("警告内容不正确: %+v", target)
	}

	if w := Check(state, Expectation{RackLetters: 5}); w != nil {
		t.Errorf("满足期望时不应有警告: %v", w)
	}
	if w := Check(state, Expectation{RackLetters: 5, MinBoardCells: 1}); w == nil {
		t.Error("棋盘格不足应返回警告")
	}
}

func TestRender(t *testing.T) {
	s := NewState()
	s.Letters[Cell{Col: 0, Row: 0}] = "A"
	s.Bonuses[Cell{Col: 1, Row: 0}] = "2W"
	s.SetRackSlot(0, Candidate{Label: "Z"})

	out := s.Render()
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], " A  2w") {
		t.Errorf("第一行 = %q", lines[0])
	}
	if !strings.Contains(out, "rack: Z") {
		t.Errorf("缺少字母架: %q", out)
	}
}

func TestStateMarshalJSON(t *testing.T) {
	s := NewState()
	s.Letters[Cell{Col: 2, Row: 1}] = "B"
	s.Letters[Cell{Col: 5, Row: 0}] = "A"
	s.Bonuses[Cell{Col: 0, Row: 6}] = "3W"
	s.SetRackSlot(0, Candidate{Label: "Z", Confidence: 0.9, Source: SourceTemplate})

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal 失败: %v", err)
	}

	var got struct {
		Letters []Placement `json:"letters"`
		Bonuses []Placement `json:"bonuses"`
		Rack    []string    `json:"rack"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal 失败: %v", err)
	}

	wantLetters := []Placement{{Col: 5, Row: 0, Label: "A"}, {Col: 2, Row: 1, Label: "B"}}
	if !reflect.DeepEqual(got.Letters, wantLetters) {
		t.Errorf("letters = %+v, want %+v", got.Letters, wantLetters)
	}
	if len(got.Bonuses) != 1 || got.Bonuses[0].Label != "3W" {
		t.Errorf("bonuses = %+v", got.Bonuses)
	}
	if !reflect.DeepEqual(got.Rack, []string{"Z"}) {
		t.Errorf("rack = %v", got.Rack)
	}
}
