package cv

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

var (
	labelFont     *truetype.Font
	labelFontErr  error
	labelFontOnce sync.Once
)

// LabelFont 加载内置的 Go Bold 字体
func LabelFont() (*truetype.Font, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = truetype.Parse(gobold.TTF)
		if labelFontErr != nil {
			labelFontErr = fmt.Errorf("加载字体失败: %w", labelFontErr)
		}
	})
	return labelFont, labelFontErr
}

// MeasureLabel 计算文字在指定字号下的像素宽度
func MeasureLabel(text string, fontSize float64) (int, error) {
	f, err := LabelFont()
	if err != nil {
		return 0, err
	}
	face := truetype.NewFace(f, &truetype.Options{Size: fontSize, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()
	return font.MeasureString(face, text).Ceil(), nil
}

// DrawLabel 在图像上绘制文字，(x, y) 为文字框左上角
func DrawLabel(img draw.Image, x, y int, text string, fontSize float64, col color.Color) error {
	return DrawLabelBaseline(img, x, y+int(fontSize), text, fontSize, col)
}

// DrawLabelBaseline 在图像上绘制文字，(x, baseline) 为基线起点
func DrawLabelBaseline(img draw.Image, x, baseline int, text string, fontSize float64, col color.Color) error {
	f, err := LabelFont()
	if err != nil {
		return err
	}

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(fontSize)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(col))
	c.SetHinting(font.HintingFull)

	if _, err := c.DrawString(text, freetype.Pt(x, baseline)); err != nil {
		return fmt.Errorf("绘制文字失败: %w", err)
	}
	return nil
}
