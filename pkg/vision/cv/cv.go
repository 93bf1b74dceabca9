// Package cv 提供基于 OpenCV 的灰度图像匹配功能
//
// 支持以下匹配方法:
//   - 模板匹配 (TM_CCOEFF_NORMED)，可返回相关度曲面上的所有峰值
//   - 多尺度模板匹配，用于估计未知分辨率下的模板缩放比例
//
// 基本用法:
//
//	screen, _ := cv.LoadGrayscale("board.png")
//	defer screen.Close()
//	tmpl, _ := cv.ReadImageGray("templates/letters/A.png")
//	defer tmpl.Close()
//
//	m := cv.NewTemplateMatching(tmpl, screen, 0.85)
//	results, err := m.FindAllResults()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Printf("位置: (%d, %d) 置信度: %.2f\n", r.Result.X, r.Result.Y, r.Confidence)
//	}
package cv
