package utils

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PolicyIDLength 정책 ID 16진수 길이 (28바이트)
const PolicyIDLength = 56

// AssetNameToHex 자산 이름을 16진수 문자열로 변환
func AssetNameToHex(name string) string {
	return hex.EncodeToString([]byte(name))
}

// HexToAssetName 16진수 자산 이름을 문자열로 변환
func HexToAssetName(s string) (string, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid asset name hex %q: %w", s, err)
	}
	return string(b), nil
}

// AssetUnit returns the concatenated policy id + hex name used by the indexer.
func AssetUnit(policyID, name string) string {
	return strings.ToLower(policyID) + AssetNameToHex(name)
}

// SplitAssetUnit 인덱서 unit 값을 정책 ID와 16진수 이름으로 분리
func SplitAssetUnit(unit string) (policyID string, nameHex string, ok bool) {
	if unit == "lovelace" || len(unit) < PolicyIDLength {
		return "", "", false
	}
	return unit[:PolicyIDLength], unit[PolicyIDLength:], true
}

// FormatAda renders lovelace as ADA with thousands separators.
func FormatAda(lovelace uint64) string {
	ada := lovelace / 1_000_000
	frac := lovelace % 1_000_000
	return fmt.Sprintf("%s.%06d ADA", humanize.Comma(int64(ada)), frac)
}

// 직렬화 방식 상수 (원장 값은 JSON)
const (
	SerializationFormatJSON = iota
)

// SerializeData 객체를 바이트 배열로 직렬화
func SerializeData(data interface{}, format int) ([]byte, error) {
	switch format {
	case SerializationFormatJSON:
		return json.Marshal(data)
	default:
		return nil, fmt.Errorf("unsupported serialization format: %d", format)
	}
}

// DeserializeData 바이트 배열을 객체로 역직렬화
func DeserializeData(data []byte, result interface{}, format int) error {
	switch format {
	case SerializationFormatJSON:
		return json.Unmarshal(data, result)
	default:
		return fmt.Errorf("unsupported serialization format: %d", format)
	}
}

// Uint64ToBytes uint64 값을 바이트 배열로 변환 (DB 값용)
func Uint64ToBytes(value uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return buf
}

// BytesToUint64 바이트 배열에서 uint64 값 추출
func BytesToUint64(data []byte) uint64 {
	if len(data) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}
