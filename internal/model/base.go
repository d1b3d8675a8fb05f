package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// ── PostgreSQL TEXT[] 自定义类型 ──

// StringArray 对应 PostgreSQL TEXT[] 类型，实现 GORM Scanner/Valuer 接口。
// 元素为受控枚举值（不含逗号、引号），按简单数组文本格式编解码。
type StringArray []string

// Scan 将 PostgreSQL 返回的 {a,b} 文本解析为 []string。
func (a *StringArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("StringArray.Scan: unsupported type %T", src)
	}
	s = strings.Trim(s, "{}")
	if s == "" {
		*a = StringArray{}
		return nil
	}
	parts := strings.Split(s, ",")
	arr := make(StringArray, 0, len(parts))
	for _, p := range parts {
		arr = append(arr, strings.Trim(strings.TrimSpace(p), `"`))
	}
	*a = arr
	return nil
}

// Value 将 []string 序列化为 PostgreSQL {a,b} 文本。
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	parts := make([]string, len(a))
	for i, v := range a {
		if strings.ContainsAny(v, `,{}"\`) {
			return nil, fmt.Errorf("StringArray.Value: invalid element %q", v)
		}
		parts[i] = v
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Contains 是否包含指定元素
func (a StringArray) Contains(v string) bool {
	for _, s := range a {
		if s == v {
			return true
		}
	}
	return false
}

// BaseModel 通用时间戳字段（业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ── 日期工具 ──

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// TimeLayout 时刻格式（HH:MM）
const TimeLayout = "15:04"

// DateOnly 截取自然日（以 UTC 零点表示，与 PostgreSQL DATE 往返一致）
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AtLocation 将 DATE（UTC 零点）解释为指定时区当天零点
func AtLocation(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// NormalizeClock 将数据库 TIME 文本（HH:MM:SS）规整为 HH:MM
func NormalizeClock(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}
