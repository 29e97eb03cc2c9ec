/*
 * @module service/enrichment/enricher
 * @description 结果富化：基本信息、人群 MAF 分档、等位基因翻转提示与 MAF 汇总
 * @architecture 纯函数 - 无 I/O
 * @stateFlow 原始记录 + 频率行 -> ExtendedSummary
 * @rules 人群块顺序与频率行一致；任何字段缺失都不导致失败
 * @dependencies math
 * @refs service/lookup/orchestrator.go
 */

package enrichment

import (
	"math"

	"snpfreq-service/service/models"
)

// Build 构建富化摘要
func Build(id models.VariantID, raw models.RawRecord, rows []models.PopulationFrequency) models.ExtendedSummary {
	blocks := make([]models.PopulationBlock, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, populationBlock(row))
	}

	return models.ExtendedSummary{
		BasicInfo:   ExtractBasicInfo(id, raw),
		Populations: blocks,
		Warnings:    FlipWarnings(rows),
		MAFSummary:  SummarizeMAF(blocks),
	}
}

func populationBlock(row models.PopulationFrequency) models.PopulationBlock {
	maf := math.Min(row.FreqRef, row.FreqAlt)
	return models.PopulationBlock{
		Name:      row.Study,
		Source:    row.Study,
		RefAllele: row.RefAllele,
		AltAllele: row.AltAllele,
		P:         row.FreqRef,
		Q:         row.FreqAlt,
		MAF:       maf,
		SampleN:   row.SampleSize(),
		Category:  CategorizeMAF(maf),
	}
}
