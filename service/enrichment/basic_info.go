/*
 * @module service/enrichment/basic_info
 * @description 容错解析层：把上游未类型化 JSON 树映射为 BasicInfo 的类型化字段
 * @architecture 纯函数 - 数据转换
 * @rules 任意字段缺失或类型不符都以 "-" 占位，绝不因单个字段失败而中断整个查询
 * @dependencies github.com/spf13/cast
 * @refs service/models/variant.go
 */

package enrichment

import (
	"strings"

	"github.com/spf13/cast"

	"snpfreq-service/service/models"
)

// ExtractBasicInfo 提取变异类型、GRCh38 位置、基因、HGVS 等基本信息
func ExtractBasicInfo(id models.VariantID, raw models.RawRecord) models.BasicInfo {
	primary := cast.ToStringMap(raw["primary_snapshot_data"])

	chrom, pos := extractLocus(primary)
	hgvsC, hgvsP := extractHGVS(raw, primary)

	return models.BasicInfo{
		RSID:           id.String(),
		VariantType:    firstNonEmpty(cast.ToString(raw["variant_type"]), cast.ToString(primary["variant_type"])),
		Chromosome:     chrom,
		PositionGRCh38: pos,
		Genes:          extractGenes(primary),
		HGVSCoding:     hgvsC,
		HGVSProtein:    hgvsP,
		Region:         models.UnknownField,
	}
}

// extractLocus 选择第一个 GRCh38 顶层（PTLP）放置的 spdi 坐标
func extractLocus(primary map[string]interface{}) (string, string) {
	for _, p := range cast.ToSlice(primary["placements_with_allele"]) {
		pl := cast.ToStringMap(p)
		annot := cast.ToStringMap(pl["placement_annot"])
		if !strings.Contains(cast.ToString(annot["assembly_name"]), "GRCh38") {
			continue
		}
		if !cast.ToBool(pl["is_ptlp"]) {
			continue
		}
		alleles := cast.ToSlice(pl["alleles"])
		if len(alleles) == 0 {
			continue
		}
		spdi := cast.ToStringMap(cast.ToStringMap(cast.ToStringMap(alleles[0])["allele"])["spdi"])
		seqID, position := spdi["seq_id"], spdi["position"]
		if seqID == nil || position == nil {
			continue
		}
		return firstNonEmpty(cast.ToString(seqID)), firstNonEmpty(cast.ToString(position))
	}
	return models.UnknownField, models.UnknownField
}

// extractGenes 收集去重后的基因符号，保持首次出现顺序
func extractGenes(primary map[string]interface{}) []string {
	var genes []string
	seen := make(map[string]bool)
	add := func(v interface{}) {
		symbol := strings.TrimSpace(cast.ToString(v))
		if symbol == "" || seen[symbol] {
			return
		}
		seen[symbol] = true
		genes = append(genes, symbol)
	}

	for _, a := range cast.ToSlice(primary["allele_annotations"]) {
		ann := cast.ToStringMap(a)

		info := ann["gene"]
		if isEmpty(info) {
			info = ann["genes"]
		}
		switch v := info.(type) {
		case map[string]interface{}:
			add(v["symbol"])
		case []interface{}:
			for _, g := range v {
				add(cast.ToStringMap(g)["symbol"])
			}
		}

		// dbSNP 的基因注释实际位于 assembly_annotation[*].genes[*].locus
		for _, asm := range cast.ToSlice(ann["assembly_annotation"]) {
			for _, g := range cast.ToSlice(cast.ToStringMap(asm)["genes"]) {
				gene := cast.ToStringMap(g)
				add(firstNonEmpty(cast.ToString(gene["locus"]), cast.ToString(gene["symbol"])))
			}
		}
	}

	if len(genes) == 0 || (len(genes) == 1 && genes[0] == models.UnknownField) {
		return []string{models.UnknownField}
	}
	return genes
}

// extractHGVS 取第一个编码（c.）和蛋白（p.）HGVS 表示
func extractHGVS(raw models.RawRecord, primary map[string]interface{}) (string, string) {
	candidates := make([]string, 0)
	for _, h := range cast.ToSlice(raw["hgvs"]) {
		candidates = append(candidates, cast.ToString(h))
	}
	for _, p := range cast.ToSlice(primary["placements_with_allele"]) {
		for _, a := range cast.ToSlice(cast.ToStringMap(p)["alleles"]) {
			if h := cast.ToString(cast.ToStringMap(a)["hgvs"]); h != "" {
				candidates = append(candidates, h)
			}
		}
	}

	coding, protein := models.UnknownField, models.UnknownField
	for _, s := range candidates {
		if coding == models.UnknownField && strings.Contains(s, ":c.") {
			coding = s
		}
		if protein == models.UnknownField && strings.Contains(s, ":p.") {
			protein = s
		}
	}
	return coding, protein
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]interface{}:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	case string:
		return t == ""
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return models.UnknownField
}
