package dbsnp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snpfreq-service/service/models"
	"snpfreq-service/testutil"
)

// roundTrip 模拟真实 HTTP 解码后的数值类型（float64）
func roundTrip(t *testing.T, doc map[string]interface{}) models.RawRecord {
	t.Helper()
	var raw models.RawRecord
	require.NoError(t, json.Unmarshal(testutil.MustJSON(doc), &raw))
	return raw
}

func TestParseFrequencies_PreservesUpstreamOrder(t *testing.T) {
	raw := roundTrip(t, testutil.NewRefSNPDocument([]testutil.StudyFrequency{
		{Study: "TOPMED", Ref: "G", Alt: "A", AlleleCount: 250, TotalCount: 1000},
		{Study: "1000Genomes", Ref: "G", Alt: "A", AlleleCount: 300, TotalCount: 1000},
		{Study: "ALFA", Ref: "G", Alt: "A", AlleleCount: 10, TotalCount: 20},
	}))

	rows := ParseFrequencies(raw)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"TOPMED", "1000Genomes", "ALFA"}, []string{rows[0].Study, rows[1].Study, rows[2].Study})
	assert.InDelta(t, 0.7, rows[1].FreqRef, 1e-12)
	assert.InDelta(t, 0.3, rows[1].FreqAlt, 1e-12)
	assert.Equal(t, 1000, rows[1].TotalAlleles)
	assert.Equal(t, 10, rows[2].SampleSize())
}

func TestParseFrequencies_DropsInvalidRows(t *testing.T) {
	doc := map[string]interface{}{
		"primary_snapshot_data": map[string]interface{}{
			"allele_annotations": []interface{}{
				map[string]interface{}{
					"frequency": []interface{}{
						map[string]interface{}{"study_name": "NoCounts"},
						map[string]interface{}{"study_name": "ZeroTotal", "allele_count": 1, "total_count": 0},
						map[string]interface{}{"study_name": "Garbage", "allele_count": "abc", "total_count": 10},
						map[string]interface{}{"study_name": "OverOne", "allele_count": 12, "total_count": 10},
						map[string]interface{}{"study_name": "Negative", "allele_count": -1, "total_count": 10},
						map[string]interface{}{"study_name": "Good", "allele_count": "5", "total_count": "10"},
					},
				},
				map[string]interface{}{"frequency": nil},
				"not-a-map",
			},
		},
	}

	rows := ParseFrequencies(roundTrip(t, doc))

	require.Len(t, rows, 1)
	assert.Equal(t, "Good", rows[0].Study)
	assert.Equal(t, models.UnknownField, rows[0].RefAllele)
	assert.Equal(t, models.UnknownField, rows[0].AltAllele)
	assert.InDelta(t, 0.5, rows[0].FreqAlt, 1e-12)
}

func TestParseFrequencies_EmptyDocument(t *testing.T) {
	assert.Empty(t, ParseFrequencies(models.RawRecord{}))
	assert.Empty(t, ParseFrequencies(models.RawRecord{"primary_snapshot_data": "weird"}))
}

func TestParseFrequencies_UnknownStudyName(t *testing.T) {
	raw := roundTrip(t, testutil.NewRefSNPDocument([]testutil.StudyFrequency{
		{Study: "", Ref: "C", Alt: "T", AlleleCount: 1, TotalCount: 4},
	}))

	rows := ParseFrequencies(raw)

	require.Len(t, rows, 1)
	assert.Equal(t, "unknown", rows[0].Study)
}
