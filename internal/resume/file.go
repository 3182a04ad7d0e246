package resume

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FileVersion 是 .magicyan 文件封皮的当前版本。
const FileVersion = "1.0.0"

// AppVersion 写入导出文件的 metadata，便于排查兼容性问题。
const AppVersion = "1.0.0"

// FileEnvelope 是简历导入/导出的持久化封皮格式。
type FileEnvelope struct {
	Version  string       `json:"version"`
	Data     Document     `json:"data"`
	Metadata FileMetadata `json:"metadata"`
}

// FileMetadata 记录导出环境信息。
type FileMetadata struct {
	ExportedAt time.Time `json:"exportedAt"`
	AppVersion string    `json:"appVersion"`
}

// ExportFile 将文档包入封皮并序列化为带缩进的 JSON。
// 导出即视为一次变更，updatedAt 会被刷新。
func ExportFile(doc Document, now time.Time) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	doc.UpdatedAt = now
	envelope := FileEnvelope{
		Version: FileVersion,
		Data:    doc,
		Metadata: FileMetadata{
			ExportedAt: now,
			AppVersion: AppVersion,
		},
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// legacyProbe 只用于探测旧版字段与可选布尔的缺省情况。
type legacyProbe struct {
	Data struct {
		PersonalInfoSection struct {
			ShowLabels         *bool `json:"showPersonalInfoLabels"`
			PersonalInfoInline *bool `json:"personalInfoInline"`
		} `json:"personalInfoSection"`
	} `json:"data"`
}

// ImportFile 解析并校验 .magicyan 文件内容，返回规范化后的文档。
// 缺失必填字段一律拒绝；唯一的兼容性处理是从旧版 personalInfoInline
// 布尔字段推导 layout（旧文件没有 layout 属性）。
func ImportFile(content []byte, now time.Time) (*Document, error) {
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, &ValidationError{Msg: "文件内容为空"}
	}

	if err := validateEnvelopeSchema(content); err != nil {
		return nil, err
	}

	var envelope FileEnvelope
	if err := json.Unmarshal(content, &envelope); err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("文件格式不正确，请确保是有效的JSON文件: %v", err)}
	}

	doc := envelope.Data

	var probe legacyProbe
	_ = json.Unmarshal(content, &probe)

	if doc.PersonalInfo.Layout.Mode == "" {
		// 向后兼容：旧文件用 personalInfoInline 布尔表达布局。
		inline := probe.Data.PersonalInfoSection.PersonalInfoInline
		if inline != nil && *inline {
			doc.PersonalInfo.Layout = PersonalInfoLayout{Mode: LayoutInline}
		} else {
			doc.PersonalInfo.Layout = PersonalInfoLayout{Mode: LayoutGrid, ColumnsPerRow: 2}
		}
	}
	if probe.Data.PersonalInfoSection.ShowLabels == nil {
		doc.PersonalInfo.ShowLabels = true
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	return &doc, nil
}
