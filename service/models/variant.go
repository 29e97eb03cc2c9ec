/*
 * @module service/models/variant
 * @description 变异位点查询的核心数据模型：rsID、等位基因频率记录、基因型频率、富化结果
 * @architecture 数据模型层
 * @stateFlow 上游原始记录 -> 频率行 -> 富化结果 -> 缓存序列化
 * @rules rsID 只以小写规范形式存储和缓存；富化结果构建后不可变
 * @dependencies regexp
 * @refs service/enrichment, service/cache, client/dbsnp
 */

package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ResultSchemaVersion 富化结果的结构版本，结构变化时必须递增，缓存键随之失效
const ResultSchemaVersion = 2

// UnknownField 上游缺失字段的占位符
const UnknownField = "-"

// ErrInvalidVariantID rsID 格式错误
var ErrInvalidVariantID = errors.New("invalid rsID format")

var variantIDPattern = regexp.MustCompile(`(?i)^rs[0-9]+$`)

// VariantID 规范化的 rsID（小写）
type VariantID string

// ParseVariantID 校验并规范化 rsID，大小写不敏感
func ParseVariantID(raw string) (VariantID, error) {
	s := strings.TrimSpace(raw)
	if !variantIDPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVariantID, raw)
	}
	return VariantID(strings.ToLower(s)), nil
}

// String 返回规范形式
func (v VariantID) String() string {
	return string(v)
}

// NumericSuffix 返回 rs 前缀之后的数字部分
func (v VariantID) NumericSuffix() string {
	return strings.TrimPrefix(string(v), "rs")
}

// RawRecord 上游返回的未类型化 JSON 树
type RawRecord map[string]interface{}

// AlleleFrequencyRecord 单个研究/人群的等位基因频率
type AlleleFrequencyRecord struct {
	Study        string  `json:"study"`
	RefAllele    string  `json:"ref_allele"`
	AltAllele    string  `json:"alt_allele"`
	FreqRef      float64 `json:"freq_ref"` // p
	FreqAlt      float64 `json:"freq_alt"` // q
	TotalAlleles int     `json:"total_alleles"`
}

// SampleSize 二倍体样本数，等于观测等位基因总数的一半（截断）
func (r AlleleFrequencyRecord) SampleSize() int {
	if r.TotalAlleles <= 0 {
		return 0
	}
	return r.TotalAlleles / 2
}

// GenotypeFrequencies Hardy-Weinberg 平衡下的基因型频率
type GenotypeFrequencies struct {
	HomRef float64 `json:"hom_ref"`
	Het    float64 `json:"het"`
	HomAlt float64 `json:"hom_alt"`
}

// Sum 三个基因型频率之和
func (g GenotypeFrequencies) Sum() float64 {
	return g.HomRef + g.Het + g.HomAlt
}

// PopulationFrequency 频率行及其派生的基因型频率
type PopulationFrequency struct {
	AlleleFrequencyRecord
	GenotypeFreqs GenotypeFrequencies `json:"genotype_freqs"`
}

// BasicInfo 变异位点基本信息，缺失字段统一为 UnknownField
type BasicInfo struct {
	RSID           string   `json:"rsid"`
	VariantType    string   `json:"variant_type"`
	Chromosome     string   `json:"chrom"`
	PositionGRCh38 string   `json:"pos38"`
	Genes          []string `json:"genes"`
	HGVSCoding     string   `json:"hgvs_c"`
	HGVSProtein    string   `json:"hgvs_p"`
	Region         string   `json:"region"`
}

// HasLocus 是否有可展示的染色体位置
func (b BasicInfo) HasLocus() bool {
	return b.Chromosome != UnknownField || b.PositionGRCh38 != UnknownField
}

// MAFCategory 次要等位基因频率分档
type MAFCategory string

const (
	MAFUltraRare    MAFCategory = "ultra-rare"
	MAFRare         MAFCategory = "rare"
	MAFLowFrequency MAFCategory = "low-frequency"
	MAFCommon       MAFCategory = "common"
)

// PopulationBlock 富化后的人群频率块
type PopulationBlock struct {
	Name      string      `json:"name"`
	Source    string      `json:"source"`
	RefAllele string      `json:"ref_allele"`
	AltAllele string      `json:"alt_allele"`
	P         float64     `json:"p"`
	Q         float64     `json:"q"`
	MAF       float64     `json:"maf"`
	SampleN   int         `json:"sample_n"`
	Category  MAFCategory `json:"category"`
}

// MAFSummary 跨人群 MAF 汇总统计
type MAFSummary struct {
	Studies int     `json:"studies"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
}

// ExtendedSummary 富化摘要
type ExtendedSummary struct {
	BasicInfo   BasicInfo         `json:"basic_info"`
	Populations []PopulationBlock `json:"populations"`
	Warnings    []string          `json:"warnings"`
	MAFSummary  MAFSummary        `json:"maf_summary"`
}

// EnrichedResult 一次缓存未命中构建出的完整结果，构建后不再修改
type EnrichedResult struct {
	SchemaVersion int                   `json:"schema_version"`
	RSID          VariantID             `json:"rsid"`
	Populations   []PopulationFrequency `json:"populations"`
	Summary       ExtendedSummary       `json:"extended_summary"`
	Images        []string              `json:"images"`
	Report        string                `json:"report,omitempty"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// HasFrequencies 是否提取到任何频率行
func (r *EnrichedResult) HasFrequencies() bool {
	return r != nil && len(r.Populations) > 0
}

// HistoryEntry 用户查询历史条目
type HistoryEntry struct {
	UserID    string    `json:"user_id"`
	RSID      VariantID `json:"rsid"`
	Timestamp time.Time `json:"timestamp"`
}
