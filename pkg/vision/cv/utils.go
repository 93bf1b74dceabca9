package cv

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// ReadImage 读取图像文件 (BGR)
func ReadImage(filename string) (gocv.Mat, error) {
	if _, err := os.Stat(filename); err != nil {
		return gocv.NewMat(), fmt.Errorf("无法读取图像: %s: %w", filename, err)
	}
	mat := gocv.IMRead(filename, gocv.IMReadColor)
	if mat.Empty() {
		return mat, fmt.Errorf("无法解码图像: %s", filename)
	}
	return mat, nil
}

// ReadImageGray 读取灰度图像
func ReadImageGray(filename string) (gocv.Mat, error) {
	if _, err := os.Stat(filename); err != nil {
		return gocv.NewMat(), fmt.Errorf("无法读取图像: %s: %w", filename, err)
	}
	mat := gocv.IMRead(filename, gocv.IMReadGrayScale)
	if mat.Empty() {
		return mat, fmt.Errorf("无法解码图像: %s", filename)
	}
	return mat, nil
}

// WriteImage 保存图像文件
func WriteImage(filename string, img gocv.Mat) error {
	// 确保目录存在
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	if ok := gocv.IMWrite(filename, img); !ok {
		return fmt.Errorf("保存图像失败: %s", filename)
	}
	return nil
}

// ToGray 转换为灰度图，调用方负责 Close
func ToGray(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	switch src.Channels() {
	case 1:
		src.CopyTo(&dst)
	case 4:
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	}
	return dst
}

// GrayThreshold 转灰度并做 Otsu 阈值截断 (低于阈值置 0，高于阈值保留原值)
func GrayThreshold(src gocv.Mat) gocv.Mat {
	gray := ToGray(src)
	dst := gocv.NewMat()
	gocv.Threshold(gray, &dst, 0, 255, gocv.ThresholdToZero|gocv.ThresholdOtsu)
	gray.Close()
	return dst
}

// LoadGrayscale 读取图像并执行 GrayThreshold
func LoadGrayscale(filename string) (gocv.Mat, error) {
	img, err := ReadImage(filename)
	if err != nil {
		return img, err
	}
	defer img.Close()
	return GrayThreshold(img), nil
}

// GetResolution 获取图像分辨率 (width, height)
func GetResolution(img gocv.Mat) (int, int) {
	return img.Cols(), img.Rows()
}

// ClampRect 将矩形限制在图像范围内
func ClampRect(img gocv.Mat, rect image.Rectangle) image.Rectangle {
	return rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
}

// CropImage 裁剪图像，超出边界的部分会被截掉
func CropImage(img gocv.Mat, rect image.Rectangle) gocv.Mat {
	rect = ClampRect(img, rect)
	if rect.Empty() {
		return gocv.NewMat()
	}

	region := img.Region(rect)
	defer region.Close()
	return region.Clone()
}

// ResizeImage 调整图像大小
func ResizeImage(img gocv.Mat, width, height int) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Resize(img, &dst, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
	return dst
}

// ScaleImage 按 x/y 比例缩放图像，结果尺寸至少为 1x1
func ScaleImage(img gocv.Mat, sx, sy float64) gocv.Mat {
	if sx <= 0 || sy <= 0 || (sx == 1 && sy == 1) {
		return img.Clone()
	}
	newW := max(1, int(math.Round(float64(img.Cols())*sx)))
	newH := max(1, int(math.Round(float64(img.Rows())*sy)))
	return ResizeImage(img, newW, newH)
}

// ImageToMat 将 image.Image 转换为 gocv.Mat (BGR)
func ImageToMat(img image.Image) (gocv.Mat, error) {
	if gray, ok := img.(*image.Gray); ok {
		mat, err := gocv.ImageGrayToMatGray(gray)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("图像转换失败: %w", err)
		}
		return mat, nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("图像转换失败: %w", err)
	}
	// 转换为 BGR（OpenCV 默认格式）
	dst := gocv.NewMat()
	gocv.CvtColor(mat, &dst, gocv.ColorRGBToBGR)
	mat.Close()
	return dst, nil
}

// MatToImage 将 gocv.Mat 转换为 image.Image
func MatToImage(mat gocv.Mat) (image.Image, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("Mat 转换失败: %w", err)
	}
	return img, nil
}
