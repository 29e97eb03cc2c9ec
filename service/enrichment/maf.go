package enrichment

import (
	"log/slog"

	"github.com/montanaflynn/stats"

	"snpfreq-service/service/models"
)

// MinorAlleleFlipWarning 不同人群次要等位基因不一致时的提示
const MinorAlleleFlipWarning = "Minor allele differs between populations (possible allele flip between cohorts)."

// MAF 分档阈值（左闭右开）
const (
	ultraRareThreshold    = 0.001
	rareThreshold         = 0.01
	lowFrequencyThreshold = 0.05
)

// CategorizeMAF 将 MAF 归入稀有度分档，恰好落在边界上的值归入较常见（稀有度较低）的一档
func CategorizeMAF(maf float64) models.MAFCategory {
	switch {
	case maf < ultraRareThreshold:
		return models.MAFUltraRare
	case maf < rareThreshold:
		return models.MAFRare
	case maf < lowFrequencyThreshold:
		return models.MAFLowFrequency
	default:
		return models.MAFCommon
	}
}

// MinorAllele 返回次要等位基因符号，p == q 时取参考等位基因
func MinorAllele(rec models.AlleleFrequencyRecord) string {
	if rec.FreqRef <= rec.FreqAlt {
		return rec.RefAllele
	}
	return rec.AltAllele
}

// FlipWarnings 各研究的次要等位基因符号超过一种时给出提示
func FlipWarnings(rows []models.PopulationFrequency) []string {
	minors := make(map[string]struct{})
	for _, row := range rows {
		minors[MinorAllele(row.AlleleFrequencyRecord)] = struct{}{}
	}
	if len(minors) > 1 {
		return []string{MinorAlleleFlipWarning}
	}
	return []string{}
}

// SummarizeMAF 跨研究 MAF 汇总，没有研究时返回零值
func SummarizeMAF(blocks []models.PopulationBlock) models.MAFSummary {
	if len(blocks) == 0 {
		return models.MAFSummary{}
	}

	data := make(stats.Float64Data, 0, len(blocks))
	for _, b := range blocks {
		data = append(data, b.MAF)
	}

	summary := models.MAFSummary{Studies: len(blocks)}
	var err error
	if summary.Min, err = data.Min(); err != nil {
		slog.Debug("MAF最小值计算失败", "error", err)
	}
	if summary.Max, err = data.Max(); err != nil {
		slog.Debug("MAF最大值计算失败", "error", err)
	}
	if summary.Mean, err = data.Mean(); err != nil {
		slog.Debug("MAF均值计算失败", "error", err)
	}
	if summary.Median, err = data.Median(); err != nil {
		slog.Debug("MAF中位数计算失败", "error", err)
	}
	return summary
}
