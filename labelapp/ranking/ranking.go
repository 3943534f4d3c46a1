package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrison-roh/tensorflow-label-image/labelapp/constants"
	"github.com/pkg/errors"
)

// InferLabel 이미지 추론 항목
type InferLabel struct {
	Prob  float32 `json:"probability"`
	Label string  `json:"label"`
}

type sortByProb []InferLabel

func (s sortByProb) Len() int {
	return len(s)
}

func (s sortByProb) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s sortByProb) Less(i, j int) bool {
	return s[i].Prob > s[j].Prob
}

// ValidatePercent minPercent가 [0, 100] 범위인지 검사 (NaN 포함 불가)
func ValidatePercent(minPercent float64) error {
	if !(minPercent >= 0 && minPercent <= 100) {
		return errors.Errorf("Min probability must be in [0, 100]: %v", minPercent)
	}

	return nil
}

// Rank 확률 내림차순으로 정렬 후 minPercent(%) 이상인 레이블만 반환
func Rank(probs []float32, labels []string, minPercent float64) ([]InferLabel, error) {
	if err := ValidatePercent(minPercent); err != nil {
		return nil, err
	}

	nrLabels := len(probs)
	if nrLabels > len(labels) {
		nrLabels = len(labels)
	}

	infers := make([]InferLabel, 0, nrLabels)
	for idx := 0; idx < nrLabels; idx++ {
		infers = append(infers, InferLabel{
			Prob:  probs[idx],
			Label: labels[idx],
		})
	}
	// 같은 확률은 레이블 순서 유지
	sort.Stable(sortByProb(infers))

	cutoff := minPercent / 100
	for idx, infer := range infers {
		if float64(infer.Prob) < cutoff {
			return infers[:idx], nil
		}
	}

	return infers, nil
}

// TopK 상위 k개 반환, k <= 0이면 기본값 사용
func TopK(infers []InferLabel, k int) []InferLabel {
	if k <= 0 {
		k = constants.DefaultTopK
	}

	if k > len(infers) {
		k = len(infers)
	}

	return infers[:k]
}

// Format 한 줄에 하나씩 "label (xx.xx% likely)" 형식으로 출력
func Format(infers []InferLabel) string {
	var sb strings.Builder
	for _, infer := range infers {
		fmt.Fprintf(&sb, "%s (%.2f%% likely)\n", infer.Label, infer.Prob*100)
	}

	return sb.String()
}
