package resume

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// envelopeSchema 描述 .magicyan 封皮的最小必填形状。
// 细粒度的业务不变量（id 唯一、列数一致等）由 Document.Validate 负责。
const envelopeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "data"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "metadata": {
      "type": "object",
      "properties": {
        "exportedAt": {"type": "string"},
        "appVersion": {"type": "string"}
      }
    },
    "data": {
      "type": "object",
      "required": ["title", "personalInfoSection", "modules"],
      "properties": {
        "title": {"type": "string", "minLength": 1},
        "personalInfoSection": {
          "type": "object",
          "required": ["personalInfo"],
          "properties": {
            "personalInfo": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["id", "label", "value"],
                "properties": {
                  "id": {"type": "string", "minLength": 1},
                  "label": {"type": "string", "minLength": 1},
                  "value": {"type": "object"},
                  "order": {"type": "integer"}
                }
              }
            }
          }
        },
        "modules": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "title", "order"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "title": {"type": "string"},
              "order": {"type": "integer"}
            }
          }
        }
      }
    }
  }
}`

func validateEnvelopeSchema(content []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(envelopeSchema)
	docLoader := gojsonschema.NewBytesLoader(content)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return &ValidationError{Msg: "文件格式不正确，请确保是有效的JSON文件"}
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return &ValidationError{Msg: "文件校验失败: " + strings.Join(msgs, "; ")}
}
