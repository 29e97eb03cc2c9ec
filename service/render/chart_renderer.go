/*
 * @module service/render/chart_renderer
 * @description 图表产物：各研究等位基因频率堆叠柱状图与首个研究的基因型饼图，写入 xlsx 工作簿
 * @architecture 渲染协作者 - 只产出文件路径，编排层不解析内容
 * @rules 没有频率行时不生成文件并返回空路径
 * @dependencies github.com/xuri/excelize/v2
 * @refs service/lookup/orchestrator.go
 */

package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"snpfreq-service/service/models"
)

const (
	allelesSheet   = "Alleles"
	genotypesSheet = "Genotypes"
)

// ChartRenderer xlsx 图表渲染器
type ChartRenderer struct {
	dir string
}

// NewChartRenderer 创建图表渲染器，产物写入 dir
func NewChartRenderer(dir string) *ChartRenderer {
	return &ChartRenderer{dir: dir}
}

// ChartPath 返回 rsID 对应的图表文件路径
func (r *ChartRenderer) ChartPath(id models.VariantID) string {
	return filepath.Join(r.dir, id.String()+"_charts.xlsx")
}

// RenderCharts 生成图表工作簿
func (r *ChartRenderer) RenderCharts(ctx context.Context, id models.VariantID, rows []models.PopulationFrequency) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("创建图表目录失败: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", allelesSheet); err != nil {
		return "", err
	}
	if err := writeAlleleSheet(f, id, rows); err != nil {
		return "", fmt.Errorf("写入等位基因频率表失败: %w", err)
	}
	if err := writeGenotypeSheet(f, id, rows[0]); err != nil {
		return "", fmt.Errorf("写入基因型频率表失败: %w", err)
	}

	path := r.ChartPath(id)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("保存图表文件失败: %w", err)
	}
	return path, nil
}

func writeAlleleSheet(f *excelize.File, id models.VariantID, rows []models.PopulationFrequency) error {
	headers := []interface{}{"Study", "Ref allele", "Alt allele", "Ref frequency", "Alt frequency", "Total alleles"}
	if err := f.SetSheetRow(allelesSheet, "A1", &headers); err != nil {
		return err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{row.Study, row.RefAllele, row.AltAllele, row.FreqRef, row.FreqAlt, row.TotalAlleles}
		if err := f.SetSheetRow(allelesSheet, cell, &values); err != nil {
			return err
		}
	}

	last := len(rows) + 1
	categories := fmt.Sprintf("%s!$A$2:$A$%d", allelesSheet, last)
	return f.AddChart(allelesSheet, "H2", &excelize.Chart{
		Type: excelize.ColStacked,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("%s!$D$1", allelesSheet),
				Categories: categories,
				Values:     fmt.Sprintf("%s!$D$2:$D$%d", allelesSheet, last),
			},
			{
				Name:       fmt.Sprintf("%s!$E$1", allelesSheet),
				Categories: categories,
				Values:     fmt.Sprintf("%s!$E$2:$E$%d", allelesSheet, last),
			},
		},
		Title:  []excelize.RichTextRun{{Text: "Allele frequencies for " + id.String()}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	})
}

func writeGenotypeSheet(f *excelize.File, id models.VariantID, first models.PopulationFrequency) error {
	if _, err := f.NewSheet(genotypesSheet); err != nil {
		return err
	}

	data := [][]interface{}{
		{"Genotype", "Frequency"},
		{"0/0", first.GenotypeFreqs.HomRef},
		{"0/1", first.GenotypeFreqs.Het},
		{"1/1", first.GenotypeFreqs.HomAlt},
	}
	for i := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(genotypesSheet, cell, &data[i]); err != nil {
			return err
		}
	}

	return f.AddChart(genotypesSheet, "D2", &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", genotypesSheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$4", genotypesSheet),
			Values:     fmt.Sprintf("%s!$B$2:$B$4", genotypesSheet),
		}},
		Title: []excelize.RichTextRun{{Text: fmt.Sprintf("Genotype frequencies (%s) for %s", first.Study, id)}},
	})
}
