/*
 * @module service/identity/pseudonym
 * @description 用户ID假名化：带密钥的 BLAKE2b-256 摘要，用于审计记录和事件，避免落盘原始用户ID
 * @dependencies golang.org/x/crypto/blake2b
 * @refs service/audit, service/events
 */

package identity

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Pseudonymizer 用户ID假名化器
type Pseudonymizer struct {
	key []byte
}

// NewPseudonymizer 创建假名化器，salt 超过 BLAKE2b 密钥上限时先取摘要作为密钥
func NewPseudonymizer(salt string) *Pseudonymizer {
	key := []byte(salt)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Pseudonymizer{key: key}
}

// Hash 返回用户ID的十六进制假名
func (p *Pseudonymizer) Hash(userID string) string {
	h, err := blake2b.New256(p.key)
	if err != nil {
		// 密钥长度已在构造时约束
		panic(err)
	}
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
