package model

import (
	"database/sql/driver"
	"encoding/json"
)

// scanJSON 把数据库中的 JSON 列解析到 dest，NULL 和空值保持零值
func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		return nil
	}
	return json.Unmarshal(bytes, dest)
}

func jsonValue(v interface{}) (driver.Value, error) {
	return json.Marshal(v)
}

// StringList 字符串数组 JSON 列
type StringList []string

// Scan 实现 sql.Scanner 接口
func (s *StringList) Scan(value interface{}) error { return scanJSON(value, s) }

// Value 实现 driver.Valuer 接口
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return jsonValue(s)
}
