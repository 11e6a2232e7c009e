package oauth

import (
	"encoding/json"
	"strings"
)

// jsonID 兼容数字或字符串形式的账号 ID。
type jsonID string

func (id *jsonID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = jsonID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = jsonID(n.String())
	return nil
}
