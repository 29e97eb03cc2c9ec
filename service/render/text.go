package render

import (
	"fmt"
	"strings"

	"snpfreq-service/service/models"
)

// MaxChunkLen 单段文本的最大长度
const MaxChunkLen = 3500

// Text 将结果渲染为纯文本并按 MaxChunkLen 分段，单行超长时独占一段
func Text(result *models.EnrichedResult) []string {
	return Chunk(textLines(result), MaxChunkLen)
}

func textLines(result *models.EnrichedResult) []string {
	if !result.HasFrequencies() {
		rsid := models.UnknownField
		if result != nil {
			rsid = result.RSID.String()
		}
		return []string{fmt.Sprintf("Could not extract frequencies for %s.", rsid)}
	}

	lines := []string{"RESULTS FOR " + result.RSID.String(), ""}

	basic := result.Summary.BasicInfo
	lines = append(lines,
		"General information:",
		"  Gene(s): "+joinGenes(basic.Genes),
		"  Variant type: "+orUnknown(basic.VariantType),
	)
	if basic.HasLocus() {
		lines = append(lines, fmt.Sprintf("  Locus (GRCh38): chr%s:%s", basic.Chromosome, basic.PositionGRCh38))
	}
	if c := basic.HGVSCoding; c != "" && c != models.UnknownField {
		lines = append(lines, "  HGVS (c.): "+c)
	}
	if p := basic.HGVSProtein; p != "" && p != models.UnknownField {
		lines = append(lines, "  HGVS (p.): "+p)
	}
	if r := basic.Region; r != "" && r != models.UnknownField {
		lines = append(lines, "  Region: "+r)
	}
	lines = append(lines, "", "Population frequencies:", "")

	blocks := make(map[string]models.PopulationBlock, len(result.Summary.Populations))
	for _, b := range result.Summary.Populations {
		blocks[b.Name] = b
	}

	for _, pop := range result.Populations {
		lines = append(lines,
			"Study / population: "+pop.Study,
			fmt.Sprintf("  Reference allele: %s (frequency: %.6f)", pop.RefAllele, pop.FreqRef),
			fmt.Sprintf("  Alternative allele: %s (frequency: %.6f)", pop.AltAllele, pop.FreqAlt),
			"  Expected genotype frequencies (Hardy-Weinberg):",
			fmt.Sprintf("    0/0: %.6f", pop.GenotypeFreqs.HomRef),
			fmt.Sprintf("    0/1: %.6f", pop.GenotypeFreqs.Het),
			fmt.Sprintf("    1/1: %.6f", pop.GenotypeFreqs.HomAlt),
		)
		if b, ok := blocks[pop.Study]; ok {
			lines = append(lines, fmt.Sprintf("  MAF: %.6f (category: %s)", b.MAF, b.Category))
			if b.SampleN > 0 {
				lines = append(lines, fmt.Sprintf("  Sample size (N): %d", b.SampleN))
			}
		}
		lines = append(lines, "")
	}

	if len(result.Summary.Warnings) > 0 {
		lines = append(lines, "Warnings:")
		for _, w := range result.Summary.Warnings {
			lines = append(lines, "  - "+w)
		}
		lines = append(lines, "")
	}

	return lines
}

// Chunk 按行拼接文本，每段加换行后不超过 maxLen
func Chunk(lines []string, maxLen int) []string {
	var chunks []string
	var current []string
	size := 0

	for _, line := range lines {
		add := len(line) + 1
		if size+add > maxLen && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			size = 0
		}
		current = append(current, line)
		size += add
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}
