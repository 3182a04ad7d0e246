package resume

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestExportImport_RoundTrip(t *testing.T) {
	doc := sampleDocument()
	exportedAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	importedAt := time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)

	content, err := ExportFile(doc, exportedAt)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	got, err := ImportFile(content, importedAt)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	// updatedAt 按约定被刷新，其余语义内容必须逐字段一致。
	if !got.UpdatedAt.Equal(importedAt) {
		t.Fatalf("updatedAt should be refreshed to import time, got %v", got.UpdatedAt)
	}
	want := doc
	want.UpdatedAt = got.UpdatedAt
	if !reflect.DeepEqual(*got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, want)
	}
}

func TestExportFile_Format(t *testing.T) {
	content, err := ExportFile(sampleDocument(), time.Now())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(content, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	for _, key := range []string{"version", "data", "metadata"} {
		if _, ok := envelope[key]; !ok {
			t.Fatalf("envelope missing %q", key)
		}
	}
	if !strings.HasPrefix(string(content), "{\n") {
		t.Fatalf("expected indented JSON output")
	}
}

func TestImportFile_LegacyInlineLayoutShim(t *testing.T) {
	legacy := `{
	  "version": "0.9.0",
	  "data": {
	    "title": "旧版",
	    "personalInfoSection": {
	      "personalInfo": [
	        {"id": "i1", "label": "电话", "value": {"content": "123"}, "order": 0}
	      ],
	      "personalInfoInline": true
	    },
	    "modules": []
	  },
	  "metadata": {"exportedAt": "2024-01-01T00:00:00Z", "appVersion": "0.9.0"}
	}`

	doc, err := ImportFile([]byte(legacy), time.Now())
	if err != nil {
		t.Fatalf("import legacy file: %v", err)
	}
	if doc.PersonalInfo.Layout.Mode != LayoutInline {
		t.Fatalf("expected inline layout from legacy flag, got %q", doc.PersonalInfo.Layout.Mode)
	}
	if !doc.PersonalInfo.ShowLabels {
		t.Fatalf("showPersonalInfoLabels should default to true when absent")
	}
}

func TestImportFile_LegacyGridDefault(t *testing.T) {
	legacy := `{
	  "version": "0.9.0",
	  "data": {
	    "title": "旧版",
	    "personalInfoSection": {
	      "personalInfo": []
	    },
	    "modules": []
	  }
	}`

	doc, err := ImportFile([]byte(legacy), time.Now())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if doc.PersonalInfo.Layout.Mode != LayoutGrid || doc.PersonalInfo.Layout.ColumnsPerRow != 2 {
		t.Fatalf("expected grid/2 default layout, got %+v", doc.PersonalInfo.Layout)
	}
}

func TestImportFile_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty", "   "},
		{"not json", "not-json{"},
		{"missing version", `{"data": {"title": "t", "personalInfoSection": {"personalInfo": []}, "modules": []}}`},
		{"missing data", `{"version": "1.0.0"}`},
		{"missing title", `{"version": "1.0.0", "data": {"personalInfoSection": {"personalInfo": []}, "modules": []}}`},
		{"module missing id", `{"version": "1.0.0", "data": {"title": "t", "personalInfoSection": {"personalInfo": []}, "modules": [{"title": "m", "order": 0}]}}`},
		{"info item missing label", `{"version": "1.0.0", "data": {"title": "t", "personalInfoSection": {"personalInfo": [{"id": "i", "value": {"content": ""}}]}, "modules": []}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ImportFile([]byte(tc.content), time.Now())
			if err == nil {
				t.Fatalf("expected error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			if verr.Msg == "" {
				t.Fatalf("validation error must carry a descriptive message")
			}
		})
	}
}

func TestImportFile_PreservesCreatedAt(t *testing.T) {
	doc := sampleDocument()
	content, err := ExportFile(doc, time.Now())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := ImportFile(content, time.Now())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !got.CreatedAt.Equal(doc.CreatedAt) {
		t.Fatalf("createdAt changed: %v != %v", got.CreatedAt, doc.CreatedAt)
	}
}
