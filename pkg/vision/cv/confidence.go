package cv

import (
	"gocv.io/x/gocv"
)

// CalCcoeffConfidence 使用 TM_CCOEFF_NORMED 计算两张图的最大相关度
func CalCcoeffConfidence(imgSource, imgSearch gocv.Mat) float64 {
	if err := checkSourceLargerThanSearch(imgSource, imgSearch); err != nil {
		return 0
	}

	srcGray, srcOwned := grayView(imgSource)
	searchGray, searchOwned := grayView(imgSearch)
	if srcOwned {
		defer srcGray.Close()
	}
	if searchOwned {
		defer searchGray.Close()
	}

	mask := gocv.NewMat()
	defer mask.Close()
	result := gocv.NewMat()
	defer result.Close()

	gocv.MatchTemplate(srcGray, searchGray, &result, gocv.TmCcoeffNormed, mask)
	if result.Empty() {
		return 0
	}

	_, maxVal, _, _ := gocv.MinMaxLoc(result)
	return float64(maxVal)
}
