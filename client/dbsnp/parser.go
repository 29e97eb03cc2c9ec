package dbsnp

import (
	"github.com/spf13/cast"

	"snpfreq-service/service/frequency"
	"snpfreq-service/service/models"
)

// ParseFrequencies 从 RefSNP 记录中提取各研究的等位基因频率行，保持上游顺序。
//
// 频率取自 primary_snapshot_data.allele_annotations[*].frequency[*]：
// 参考等位基因为 observation.deleted_sequence，替代等位基因为 observation.inserted_sequence，
// q = allele_count / total_count，p = 1 - q。计数缺失、总数为 0 或频率越界的行直接丢弃。
func ParseFrequencies(raw models.RawRecord) []models.AlleleFrequencyRecord {
	primary := cast.ToStringMap(raw["primary_snapshot_data"])

	rows := make([]models.AlleleFrequencyRecord, 0)
	for _, a := range cast.ToSlice(primary["allele_annotations"]) {
		ann := cast.ToStringMap(a)
		for _, f := range cast.ToSlice(ann["frequency"]) {
			if row, ok := parseFrequencyRow(cast.ToStringMap(f)); ok {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func parseFrequencyRow(freq map[string]interface{}) (models.AlleleFrequencyRecord, bool) {
	if freq["allele_count"] == nil || freq["total_count"] == nil {
		return models.AlleleFrequencyRecord{}, false
	}
	alleleCount, err := cast.ToFloat64E(freq["allele_count"])
	if err != nil {
		return models.AlleleFrequencyRecord{}, false
	}
	totalCount, err := cast.ToFloat64E(freq["total_count"])
	if err != nil || totalCount == 0 {
		return models.AlleleFrequencyRecord{}, false
	}

	q := alleleCount / totalCount
	p := 1 - q
	if frequency.Validate(p, q) != nil {
		return models.AlleleFrequencyRecord{}, false
	}

	obs := cast.ToStringMap(freq["observation"])
	return models.AlleleFrequencyRecord{
		Study:        orDefault(cast.ToString(freq["study_name"]), "unknown"),
		RefAllele:    orDefault(cast.ToString(obs["deleted_sequence"]), models.UnknownField),
		AltAllele:    orDefault(cast.ToString(obs["inserted_sequence"]), models.UnknownField),
		FreqRef:      p,
		FreqAlt:      q,
		TotalAlleles: int(totalCount),
	}, true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
