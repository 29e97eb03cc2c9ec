/*
 * @module service/models/lookup_audit
 * @description 查询审计模型，记录每次 rsID 查询的终态，供运维排查与配额分析
 * @architecture 数据模型层
 * @stateFlow 查询终态 -> 审计行写入 -> 定时保留期清理
 * @rules 用户标识只保存带盐哈希；审计写入失败不影响查询结果
 * @dependencies gorm.io/gorm, gorm.io/datatypes, github.com/lib/pq
 * @refs service/audit
 */

package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// LookupAudit 查询审计记录
type LookupAudit struct {
	ID         string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserHash   string            `gorm:"type:varchar(64);index;not null" json:"user_hash"`
	RSID       string            `gorm:"column:rsid;type:varchar(32);index;not null" json:"rsid"`
	Outcome    string            `gorm:"type:varchar(20);index;not null" json:"outcome"`
	Source     string            `gorm:"type:varchar(20)" json:"source"`
	Genes      GeneList          `json:"genes"`
	Studies    int               `json:"studies"`
	Remaining  int               `json:"remaining"`
	DurationMs int64             `json:"duration_ms"`
	Attributes datatypes.JSONMap `json:"attributes,omitempty"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (LookupAudit) TableName() string {
	return "snp_lookup_audits"
}

// GeneList 基因符号列表，PostgreSQL 下存为 text[]，其他方言存为数组字面量文本
type GeneList []string

// Value 实现 driver.Valuer
func (g GeneList) Value() (driver.Value, error) {
	return pq.StringArray(g).Value()
}

// Scan 实现 sql.Scanner
func (g *GeneList) Scan(src interface{}) error {
	return (*pq.StringArray)(g).Scan(src)
}

// GormDBDataType 按方言返回列类型
func (GeneList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
