/*
 * @module service/render/report_renderer
 * @description 报告产物：基本信息、人群频率表、警告与图表附件，Markdown 渲染为独立 HTML 页面
 * @architecture 渲染协作者
 * @dependencies github.com/gomarkdown/markdown, golang.org/x/text/message
 * @refs service/lookup/orchestrator.go
 */

package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"snpfreq-service/service/models"
)

// ReportRenderer HTML 报告渲染器
type ReportRenderer struct {
	dir     string
	printer *message.Printer
}

// NewReportRenderer 创建报告渲染器，产物写入 dir
func NewReportRenderer(dir string) *ReportRenderer {
	return &ReportRenderer{
		dir:     dir,
		printer: message.NewPrinter(language.English),
	}
}

// ReportPath 返回 rsID 对应的报告文件路径
func (r *ReportRenderer) ReportPath(id models.VariantID) string {
	return filepath.Join(r.dir, id.String()+".html")
}

// RenderReport 生成 HTML 报告
func (r *ReportRenderer) RenderReport(ctx context.Context, result *models.EnrichedResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("报告结果不能为空")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	page := r.HTML(result)
	path := r.ReportPath(result.RSID)
	if err := os.WriteFile(path, page, 0o644); err != nil {
		return "", fmt.Errorf("写入报告失败: %w", err)
	}
	return path, nil
}

// HTML 将报告 Markdown 渲染为完整 HTML 页面
func (r *ReportRenderer) HTML(result *models.EnrichedResult) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "SNP Report: " + result.RSID.String(),
	})
	return markdown.ToHTML([]byte(r.Markdown(result)), p, renderer)
}

// Markdown 构建报告 Markdown 文本
func (r *ReportRenderer) Markdown(result *models.EnrichedResult) string {
	var b strings.Builder
	basic := result.Summary.BasicInfo

	fmt.Fprintf(&b, "# SNP Report: %s\n\n", result.RSID)

	b.WriteString("## Basic information\n\n")
	fmt.Fprintf(&b, "- rsID: %s\n", orUnknown(basic.RSID))
	fmt.Fprintf(&b, "- Variant type: %s\n", orUnknown(basic.VariantType))
	fmt.Fprintf(&b, "- Chromosome: %s\n", orUnknown(basic.Chromosome))
	fmt.Fprintf(&b, "- Position (GRCh38): %s\n", orUnknown(basic.PositionGRCh38))
	fmt.Fprintf(&b, "- Gene(s): %s\n", joinGenes(basic.Genes))
	fmt.Fprintf(&b, "- HGVS (coding): %s\n", escape(orUnknown(basic.HGVSCoding)))
	fmt.Fprintf(&b, "- HGVS (protein): %s\n", escape(orUnknown(basic.HGVSProtein)))
	fmt.Fprintf(&b, "- Region: %s\n\n", orUnknown(basic.Region))

	if len(result.Summary.Populations) > 0 {
		b.WriteString("## Population frequencies\n\n")
		b.WriteString("| Population | Source | p | q | MAF | N samples | Category |\n")
		b.WriteString("|---|---|--:|--:|--:|--:|---|\n")
		for _, pop := range result.Summary.Populations {
			fmt.Fprintf(&b, "| %s | %s | %.4f | %.4f | %.4f | %s | %s |\n",
				escape(pop.Name), escape(pop.Source), pop.P, pop.Q, pop.MAF,
				r.printer.Sprintf("%d", pop.SampleN), pop.Category)
		}
		b.WriteString("\n")

		s := result.Summary.MAFSummary
		fmt.Fprintf(&b, "MAF across %d studies: min %.4f, median %.4f, mean %.4f, max %.4f\n\n",
			s.Studies, s.Min, s.Median, s.Mean, s.Max)
	}

	if len(result.Summary.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range result.Summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	if len(result.Images) > 0 {
		b.WriteString("## Charts\n\n")
		for _, img := range result.Images {
			fmt.Fprintf(&b, "- %s\n", filepath.Base(img))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.UnknownField
	}
	return s
}

func joinGenes(genes []string) string {
	if len(genes) == 0 {
		return models.UnknownField
	}
	return strings.Join(genes, ", ")
}

// escape 转义 Markdown 表格与强调语法中的特殊字符
func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, ">", "&gt;").Replace(s)
}
