package secure

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Digest — односторонний дайджест с солью от идентичности endpoint'а.
// Один и тот же (text, endpoint) всегда даёт один и тот же hex — это
// используется и для поисковых хэшей полей, и для целостности записи.
type Digest struct {
	salt string
}

func NewDigest(endpointIdentity string) *Digest {
	return &Digest{salt: endpointIdentity}
}

// Sum — hex от sha256(text || salt).
func (d *Digest) Sum(text string) string {
	h := sha256.Sum256([]byte(text + "::" + d.salt))
	return hex.EncodeToString(h[:])
}

// RecordSum канонизирует запись (ключи сортируются) и дайджестит.
// Инвариант: записи с одинаковыми парами ключ-значение дают одинаковый
// дайджест независимо от порядка вставки.
func (d *Digest) RecordSum(record map[string]any) string {
	return d.Sum(canonicalRecord(record))
}

// canonicalRecord — сериализация с сортировкой ключей, без изменения регистра
// значений (в отличие от classify: тут регистр значим).
func canonicalRecord(record map[string]any) string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s=%v", k, record[k])
	}
	return b.String()
}
