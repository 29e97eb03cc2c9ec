package lookup

import "snpfreq-service/service/models"

// Example 示例变异位点
type Example struct {
	RSID models.VariantID `json:"rsid"`
	Gene string           `json:"gene"`
}

var examples = []Example{
	{RSID: "rs1801133", Gene: "MTHFR"},
	{RSID: "rs429358", Gene: "APOE"},
	{RSID: "rs7412", Gene: "APOE"},
	{RSID: "rs1695", Gene: "GSTP1"},
	{RSID: "rs7903146", Gene: "TCF7L2"},
}

// Examples 返回常用示例 rsID 列表的副本
func Examples() []Example {
	out := make([]Example, len(examples))
	copy(out, examples)
	return out
}

// About 服务说明
type About struct {
	DataSource         string `json:"data_source"`
	MaxRequestsPerHour int    `json:"max_requests_per_hour"`
	CacheTTLSeconds    int    `json:"cache_ttl_seconds"`
	Disclaimer         string `json:"disclaimer"`
}

// About 返回数据来源、配额与免责声明
func (s *Service) About() About {
	return About{
		DataSource:         "NCBI dbSNP (Variation Services API)",
		MaxRequestsPerHour: s.opts.MaxRequestsPerHour,
		CacheTTLSeconds:    int(s.opts.CacheTTL.Seconds()),
		Disclaimer:         "Population frequencies are provided for research and educational use only and are not a medical diagnosis.",
	}
}
