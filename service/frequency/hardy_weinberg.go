/*
 * @module service/frequency/hardy_weinberg
 * @description 频率模型：在 Hardy-Weinberg 平衡假设下由等位基因频率推导基因型频率
 * @architecture 纯函数
 * @rules p、q 必须位于 [0,1] 且 p+q=1（容差内），越界行在解析阶段丢弃
 */

package frequency

import (
	"fmt"
	"math"

	"snpfreq-service/service/models"
)

// Tolerance 浮点比较容差
const Tolerance = 1e-9

// HardyWeinberg 返回 (p², 2pq, q²)，不做任何舍入
func HardyWeinberg(p, q float64) models.GenotypeFrequencies {
	return models.GenotypeFrequencies{
		HomRef: p * p,
		Het:    2 * p * q,
		HomAlt: q * q,
	}
}

// Validate 校验一对等位基因频率
func Validate(p, q float64) error {
	if math.IsNaN(p) || math.IsNaN(q) {
		return fmt.Errorf("allele frequency is NaN")
	}
	if p < 0 || p > 1 {
		return fmt.Errorf("reference frequency %v outside [0,1]", p)
	}
	if q < 0 || q > 1 {
		return fmt.Errorf("alternate frequency %v outside [0,1]", q)
	}
	if math.Abs(p+q-1) > Tolerance {
		return fmt.Errorf("allele frequencies %v + %v do not sum to 1", p, q)
	}
	return nil
}

// FromRecord 为频率行附加基因型频率
func FromRecord(rec models.AlleleFrequencyRecord) models.PopulationFrequency {
	return models.PopulationFrequency{
		AlleleFrequencyRecord: rec,
		GenotypeFreqs:         HardyWeinberg(rec.FreqRef, rec.FreqAlt),
	}
}
