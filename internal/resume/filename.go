package resume

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var unsafeTitleChars = regexp.MustCompile(`[^a-zA-Z0-9\x{4e00}-\x{9fa5}]`)

// PDFFilename 由简历标题与日期生成建议文件名，如 "张三_2026-08-30.pdf"。
// 标题中除字母数字与汉字外的字符替换为下划线。
func PDFFilename(title string, now time.Time) string {
	cleaned := unsafeTitleChars.ReplaceAllString(strings.TrimSpace(title), "_")
	if cleaned == "" {
		cleaned = "resume"
	}
	return fmt.Sprintf("%s_%s.pdf", cleaned, now.Format("2006-01-02"))
}

// SanitizeFilename 去掉会破坏 Header/路径语义的字符。
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("\r", "_", "\n", "_", "/", "_", "\\", "_").Replace(name)
	return name
}

// ContentDisposition 生成同时携带 ASCII 兜底名与 RFC 5987 扩展名的头部值，
// 兼容旧浏览器与非 ASCII 标题。
func ContentDisposition(filename string) string {
	name := SanitizeFilename(filename)
	ascii := asciiFallback(name)
	return fmt.Sprintf(`inline; filename="%s"; filename*=UTF-8''%s`, ascii, percentEncode(name))
}

func asciiFallback(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r >= 0x20 && r <= 0x7e && r != '"' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// percentEncode 按 RFC 3986 unreserved 集合做百分号编码。
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}
