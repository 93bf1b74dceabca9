package match

import (
	"context"
	"errors"
	"image"
	"reflect"
	"testing"

	"github.com/zoeyai/snapreader/internal/testutil"
	"github.com/zoeyai/snapreader/pkg/board"
	"github.com/zoeyai/snapreader/pkg/templates"
)

func loadSet(t *testing.T) *templates.Set {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTemplates(t, dir)

	lib, err := templates.NewLibrary(dir, nil)
	if err != nil {
		t.Fatalf("NewLibrary 失败: %v", err)
	}
	t.Cleanup(lib.Close)

	set, err := lib.Load(templates.DefaultProfileKey)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	return set
}

func TestMatchAllSingleLetter(t *testing.T) {
	set := loadSet(t)
	grid := board.NewGrid(644, 680, board.DefaultSplit)

	img := testutil.Blank(644, 680)
	defer img.Close()
	p := grid.Board[4*board.Cols+3]
	testutil.PasteCentered(&img, set.Board["M"].Image, int(p.X), int(p.Y))

	matches, err := New().MatchAll(context.Background(), img, board.KindBoard, set.Board)
	if err != nil {
		t.Fatalf("MatchAll 失败: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("没有命中")
	}

	state := board.Resolve(matches, grid)
	want := map[board.Cell]string{{Col: 3, Row: 4}: "M"}
	if !reflect.DeepEqual(state.Letters, want) {
		t.Errorf("Letters = %v, want %v", state.Letters, want)
	}
	if len(state.Bonuses) != 0 || len(state.Rack) != 0 {
		t.Errorf("不应有其他结果: %v %v", state.Bonuses, state.Rack)
	}
}

func TestMatchAllPeaks(t *testing.T) {
	set := loadSet(t)
	tmpl := map[string]*templates.Template{"T": set.Board["T"]}

	img := testutil.Blank(400, 200)
	defer img.Close()
	positions := []image.Point{{10, 10}, {200, 10}, {100, 110}}
	for _, pt := range positions {
		testutil.Paste(&img, tmpl["T"].Image, pt.X, pt.Y)
	}

	matches, err := New(WithThreshold(0.9)).MatchAll(context.Background(), img, board.KindBoard, tmpl)
	if err != nil {
		t.Fatalf("MatchAll 失败: %v", err)
	}
	if len(matches) != len(positions) {
		t.Fatalf("命中数 = %d, want %d: %+v", len(matches), len(positions), matches)
	}

	// 按 (y, x) 排序
	want := []board.RawMatch{
		{Label: "T", Kind: board.KindBoard, X: 50, Y: 50},
		{Label: "T", Kind: board.KindBoard, X: 240, Y: 50},
		{Label: "T", Kind: board.KindBoard, X: 140, Y: 150},
	}
	for i, m := range matches {
		if m.X != want[i].X || m.Y != want[i].Y || m.Label != "T" {
			t.Errorf("第 %d 个命中 = %+v, want %+v", i, m, want[i])
		}
		if m.Confidence < 0.99 {
			t.Errorf("置信度过低: %.3f", m.Confidence)
		}
	}
}

func TestMatchAllDeterministic(t *testing.T) {
	set := loadSet(t)

	img := testutil.Blank(644, 680)
	defer img.Close()
	for i, l := range []string{"C", "A", "T", "S"} {
		testutil.Paste(&img, set.Board[l].Image, 20+i*81, 100)
	}

	serial, err := New(WithWorkers(1)).MatchAll(context.Background(), img, board.KindBoard, set.Board)
	if err != nil {
		t.Fatalf("串行匹配失败: %v", err)
	}
	parallel, err := New(WithWorkers(8)).MatchAll(context.Background(), img, board.KindBoard, set.Board)
	if err != nil {
		t.Fatalf("并行匹配失败: %v", err)
	}
	if !reflect.DeepEqual(serial, parallel) {
		t.Errorf("并行结果与串行不同:\n%v\n%v", serial, parallel)
	}
}

func TestMatchAllSkipsOversizedTemplates(t *testing.T) {
	set := loadSet(t)

	img := testutil.Blank(40, 40)
	defer img.Close()

	matches, err := New().MatchAll(context.Background(), img, board.KindRack, set.Rack)
	if err != nil {
		t.Fatalf("超尺寸模板应被跳过: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("不应有命中: %v", matches)
	}
}

func TestMatchAllCancelled(t *testing.T) {
	set := loadSet(t)
	img := testutil.Blank(200, 200)
	defer img.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().MatchAll(ctx, img, board.KindBoard, set.Board)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled, got %v", err)
	}
}
