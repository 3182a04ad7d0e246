package resume

import (
	"testing"
	"time"
)

func sampleDocument() Document {
	return Document{
		Title: "张三",
		PersonalInfo: PersonalInfoSection{
			Items: []PersonalInfoItem{
				{ID: "info-b", Label: "邮箱", Value: InfoValue{Content: "z@example.com", Kind: ValueText}, Order: 2},
				{ID: "info-a", Label: "电话", Value: InfoValue{Content: "13800000000", Kind: ValueText}, Order: 1},
			},
			ShowLabels:  true,
			Layout:      PersonalInfoLayout{Mode: LayoutGrid, ColumnsPerRow: 2},
			AvatarShape: AvatarCircle,
		},
		JobIntention: &JobIntention{
			Enabled: true,
			Items: []JobIntentionItem{
				{ID: "jii-1", Label: "求职意向", Value: "后端工程师", Order: 0, Kind: IntentPosition},
				{ID: "jii-2", Label: "目标城市", Value: "上海", Order: 1, Kind: IntentCity},
			},
		},
		Modules: []Module{
			{
				ID:    "module-2",
				Title: "工作经历",
				Order: 1,
				Rows: []Row{
					{Columns: 2, Elements: []Element{
						{Column: 0, HTML: "<p>某公司</p>"},
						{Column: 1, HTML: "<p>2020 - 2024</p>"},
					}},
				},
			},
			{
				ID:    "module-1",
				Title: "技能",
				Order: 0,
				Rows: []Row{
					{Tags: []string{"Go", "PostgreSQL"}},
				},
			},
		},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestSortedModules_ByOrder(t *testing.T) {
	doc := sampleDocument()
	modules := doc.SortedModules()
	if modules[0].ID != "module-1" || modules[1].ID != "module-2" {
		t.Fatalf("unexpected module order: %s, %s", modules[0].ID, modules[1].ID)
	}
	// 原始切片不应被打乱。
	if doc.Modules[0].ID != "module-2" {
		t.Fatalf("SortedModules mutated the document")
	}
}

func TestSortedPersonalInfo_StableTies(t *testing.T) {
	doc := Document{
		Title: "t",
		PersonalInfo: PersonalInfoSection{
			Items: []PersonalInfoItem{
				{ID: "a", Label: "a", Order: 1},
				{ID: "b", Label: "b", Order: 1},
				{ID: "c", Label: "c", Order: 0},
			},
			Layout: PersonalInfoLayout{Mode: LayoutInline},
		},
	}
	items := doc.SortedPersonalInfo()
	got := items[0].ID + items[1].ID + items[2].ID
	if got != "cab" {
		t.Fatalf("expected stable order cab, got %s", got)
	}
}

func TestValidate_OK(t *testing.T) {
	doc := sampleDocument()
	if err := doc.Validate(); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Document)
	}{
		{"empty title", func(d *Document) { d.Title = "" }},
		{"duplicate info id", func(d *Document) { d.PersonalInfo.Items[1].ID = d.PersonalInfo.Items[0].ID }},
		{"grid columns out of range", func(d *Document) { d.PersonalInfo.Layout.ColumnsPerRow = 7 }},
		{"duplicate non-custom intent kind", func(d *Document) { d.JobIntention.Items[1].Kind = IntentPosition }},
		{"content row element count mismatch", func(d *Document) {
			d.Modules[0].Rows[0].Elements = d.Modules[0].Rows[0].Elements[:1]
		}},
		{"content row columns out of range", func(d *Document) { d.Modules[0].Rows[0].Columns = 5 }},
		{"element column out of range", func(d *Document) { d.Modules[0].Rows[0].Elements[1].Column = 2 }},
		{"module missing id", func(d *Document) { d.Modules[0].ID = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := sampleDocument()
			tc.mutate(&doc)
			err := doc.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if _, ok := err.(*ValidationError); !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestValidate_AllowsMultipleCustomIntents(t *testing.T) {
	doc := sampleDocument()
	doc.JobIntention.Items = append(doc.JobIntention.Items,
		JobIntentionItem{ID: "jii-3", Label: "自定义", Order: 2, Kind: IntentCustom},
		JobIntentionItem{ID: "jii-4", Label: "自定义", Order: 3, Kind: IntentCustom},
	)
	if err := doc.Validate(); err != nil {
		t.Fatalf("custom intents should not be limited: %v", err)
	}
}

func TestPDFFilename(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if got := PDFFilename("张三", now); got != "张三_2026-08-30.pdf" {
		t.Fatalf("unexpected filename: %s", got)
	}
	if got := PDFFilename("John Doe (CV)!", now); got != "John_Doe__CV___2026-08-30.pdf" {
		t.Fatalf("unexpected filename: %s", got)
	}
	if got := PDFFilename("  ", now); got != "resume_2026-08-30.pdf" {
		t.Fatalf("empty title should fall back to resume: %s", got)
	}
}

func TestContentDisposition_DualForm(t *testing.T) {
	got := ContentDisposition("张三_2026-08-30.pdf")
	want := `inline; filename="___2026-08-30.pdf"; filename*=UTF-8''%E5%BC%A0%E4%B8%89_2026-08-30.pdf`
	if got != want {
		t.Fatalf("unexpected header:\n got %s\nwant %s", got, want)
	}
}

func TestContentDisposition_StripsHeaderBreakers(t *testing.T) {
	got := ContentDisposition("a\r\nb/c.pdf")
	want := `inline; filename="a__b_c.pdf"; filename*=UTF-8''a__b_c.pdf`
	if got != want {
		t.Fatalf("unexpected header: %s", got)
	}
}
