package solver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/zoeyai/snapreader/internal/logger"
	"github.com/zoeyai/snapreader/pkg/board"
	"github.com/zoeyai/snapreader/pkg/config"
)

// DefaultURL Scrabulizer 求解接口
const DefaultURL = "https://www.scrabulizer.com/solver/results"

// 表单中的棋盘为 16x16，实际只使用 8x7
const formBoardSize = 16

// LetterScores Snap Attack 字母分值
var LetterScores = map[string]int{
	"A": 2, "B": 5, "C": 3, "D": 3, "E": 1, "F": 5,
	"G": 4, "H": 4, "I": 2, "J": 10, "K": 6, "L": 3,
	"M": 4, "N": 2, "O": 2, "P": 4, "Q": 10, "R": 2,
	"S": 2, "T": 2, "U": 4, "V": 6, "W": 6, "X": 9,
	"Y": 5, "Z": 10,
}

// bingoBonuses 一次用掉 n 个字母的额外奖励
var bingoBonuses = [8]int{0, 0, 0, 0, 0, 0, 35, 50}

var (
	movesPattern = regexp.MustCompile(`moves = ([^;]+);`)
	movePattern  = regexp.MustCompile(`\["(\w+)",\s*\[(\d+),\s*(\d+)\],\s*(\d+),(?:\s*(\d+),)?`)
)

var requestHeaders = map[string]string{
	"Origin":              "http://www.scrabulizer.com",
	"Referer":             "http://www.scrabulizer.com/",
	"Accept":              "text/javascript, text/html, application/xml, text/xml, */*",
	"Accept-Language":     "en-US,en;q=0.9",
	"Content-Type":        "application/x-www-form-urlencoded; charset=UTF-8",
	"User-Agent":          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/63.0.3239.132 Safari/537.36",
	"X-Prototype-Version": "1.7",
	"X-Requested-With":    "XMLHttpRequest",
	"X-JS-Version":        "3",
}

// Scrabulizer Scrabulizer 网页求解器客户端
type Scrabulizer struct {
	url        string
	dictionary int
	client     *http.Client
	limiter    *rate.Limiter
}

// NewScrabulizer 创建客户端，请求间隔至少 1 秒
func NewScrabulizer(cfg config.SolverConfig) *Scrabulizer {
	u := cfg.URL
	if u == "" {
		u = DefaultURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dict := cfg.Dictionary
	if dict <= 0 {
		dict = 4
	}
	return &Scrabulizer{
		url:        u,
		dictionary: dict,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Solve 查询走法，失败时记录日志并返回空列表
func (s *Scrabulizer) Solve(ctx context.Context, state *board.State) []Move {
	start := time.Now()
	moves, err := s.query(ctx, state)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		logger.LogEvent("SOLVE", false, elapsed, err.Error())
		return []Move{}
	}
	logger.LogEvent("SOLVE", true, elapsed, fmt.Sprintf("%d 个走法", len(moves)))
	return moves
}

func (s *Scrabulizer) query(ctx context.Context, state *board.State) ([]Move, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := BuildPayload(state, s.dictionary)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(payload.Encode()))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	for k, v := range requestHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求求解服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("求解服务返回异常状态: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return ParseMoves(string(body))
}

// BuildPayload 生成求解表单: 选项、空白 16x16 棋盘、字母分值，再填入识别结果
func BuildPayload(state *board.State, dictionary int) url.Values {
	v := url.Values{}
	v.Set("dictionary", strconv.Itoa(dictionary))
	v.Set("opponent_count", "1")
	v.Set("design", "")
	v.Set("sort_by", "0")
	v.Set("tc_", "0")
	v.Set("ts_", "0")
	v.Set("boardWidth", strconv.Itoa(board.Cols))
	v.Set("boardHeight", strconv.Itoa(board.Rows))
	v.Set("rackLength", strconv.Itoa(board.RackSlots))
	for i, b := range bingoBonuses {
		v.Set(fmt.Sprintf("bingo%d", i+1), strconv.Itoa(b))
	}

	for x := 0; x < formBoardSize; x++ {
		for y := 0; y < formBoardSize; y++ {
			v.Set(fmt.Sprintf("s_%d_%d", x, y), "")
			v.Set(fmt.Sprintf("b_%d_%d", x, y), "")
		}
	}
	for letter, score := range LetterScores {
		v.Set("tc"+letter, "1")
		v.Set("ts"+letter, strconv.Itoa(score))
	}

	for cell, letter := range state.Letters {
		v.Set(fmt.Sprintf("s_%d_%d", cell.Col, cell.Row), letter)
	}
	for cell, bonus := range state.Bonuses {
		v.Set(fmt.Sprintf("b_%d_%d", cell.Col, cell.Row), bonus)
	}
	v.Set("rack", strings.Join(state.Rack, ""))
	return v
}

// ParseMoves 从响应脚本中解析 moves 数组
func ParseMoves(body string) ([]Move, error) {
	m := movesPattern.FindStringSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("响应格式异常: 未找到 moves 列表")
	}

	found := movePattern.FindAllStringSubmatch(m[1], -1)
	moves := make([]Move, 0, len(found))
	for _, f := range found {
		x, _ := strconv.Atoi(f[2])
		y, _ := strconv.Atoi(f[3])
		dir := Horizontal
		if f[4] != "0" {
			dir = Vertical
		}
		score := 0
		if f[5] != "" {
			score, _ = strconv.Atoi(f[5])
		}
		moves = append(moves, Move{Word: f[1], X: x, Y: y, Direction: dir, Score: score})
	}
	return moves, nil
}
