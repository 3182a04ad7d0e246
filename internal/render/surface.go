package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"magicyan/internal/resume"
)

var templateFuncs = template.FuncMap{
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	"safeURL":  func(s string) template.URL { return template.URL(s) },
}

var (
	fragmentTemplate = template.Must(
		template.New("fragment").Funcs(templateFuncs).Parse(fragmentTemplateString))
	printShellTemplate = template.Must(
		template.New("printShell").Funcs(templateFuncs).Parse(printShellTemplateString))
)

// 模板视图模型。排序与文案拼接在这里完成，模板只负责排版。

type fragmentView struct {
	Title          string
	TitleCentered  bool
	Avatar         string
	AvatarShape    string
	PersonalInfo   []infoItemView
	InfoLayoutMode string
	InfoColumns    int
	JobIntention   []string
	Modules        []moduleView
}

type infoItemView struct {
	Icon      string
	Label     string
	ShowLabel bool
	Text      string
	LinkURL   string
}

type moduleView struct {
	Title string
	Icon  string
	Rows  []rowView
}

type rowView struct {
	Tags    []string
	Columns int
	Cells   []string
}

// RenderFragment 将文档渲染为简历画布的 HTML 片段。
// 所有区块按各自的 order 升序输出。
func RenderFragment(doc *resume.Document) (string, error) {
	view := buildFragmentView(doc)
	var buf bytes.Buffer
	if err := fragmentTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render resume fragment: %w", err)
	}
	return buf.String(), nil
}

// PrintShellPage 渲染打印页外壳。页面脚本自行取数并回填画布。
func PrintShellPage(title string) (string, error) {
	var buf bytes.Buffer
	err := printShellTemplate.Execute(&buf, struct {
		Title      string
		StorageKey string
	}{
		Title:      title,
		StorageKey: "resumeData",
	})
	if err != nil {
		return "", fmt.Errorf("render print shell: %w", err)
	}
	return buf.String(), nil
}

func buildFragmentView(doc *resume.Document) fragmentView {
	view := fragmentView{
		Title:         doc.Title,
		TitleCentered: doc.TitleCentered,
		Avatar:        doc.Avatar,
		AvatarShape:   string(doc.PersonalInfo.AvatarShape),
	}
	if view.AvatarShape == "" {
		view.AvatarShape = string(resume.AvatarCircle)
	}

	view.InfoLayoutMode = string(doc.PersonalInfo.Layout.Mode)
	if doc.PersonalInfo.Layout.Mode == resume.LayoutGrid {
		view.InfoColumns = doc.PersonalInfo.Layout.ColumnsPerRow
		if view.InfoColumns <= 0 {
			view.InfoColumns = 2
		}
	}
	for _, item := range doc.SortedPersonalInfo() {
		iv := infoItemView{
			Icon:      item.Icon,
			Label:     item.Label,
			ShowLabel: doc.PersonalInfo.ShowLabels && item.Label != "",
			Text:      item.Value.Content,
		}
		if item.Value.Kind == resume.ValueLink {
			iv.LinkURL = item.Value.Content
			if item.Value.LinkTitle != "" {
				iv.Text = item.Value.LinkTitle
			}
		}
		view.PersonalInfo = append(view.PersonalInfo, iv)
	}

	if doc.JobIntention != nil && doc.JobIntention.Enabled {
		for _, item := range doc.SortedJobIntention() {
			if text := intentionText(item); text != "" {
				view.JobIntention = append(view.JobIntention, text)
			}
		}
	}

	for _, mod := range doc.SortedModules() {
		mv := moduleView{Title: mod.Title, Icon: mod.Icon}
		for _, row := range mod.Rows {
			if row.IsTagRow() {
				mv.Rows = append(mv.Rows, rowView{Tags: row.Tags})
				continue
			}
			rv := rowView{Columns: row.Columns}
			// 元素自带列下标，按下标排序后再铺入单元格。
			elements := append([]resume.Element(nil), row.Elements...)
			sort.SliceStable(elements, func(i, j int) bool { return elements[i].Column < elements[j].Column })
			for _, el := range elements {
				rv.Cells = append(rv.Cells, el.HTML)
			}
			mv.Rows = append(mv.Rows, rv)
		}
		view.Modules = append(view.Modules, mv)
	}
	return view
}

func intentionText(item resume.JobIntentionItem) string {
	switch item.Kind {
	case resume.IntentWorkYears:
		if item.Value == "" {
			return ""
		}
		return "工作年限：" + item.Value
	case resume.IntentPosition:
		if item.Value == "" {
			return ""
		}
		return "意向岗位：" + item.Value
	case resume.IntentCity:
		if item.Value == "" {
			return ""
		}
		return "意向城市：" + item.Value
	case resume.IntentSalary:
		return salaryText(item.SalaryRange)
	default:
		return strings.TrimSpace(item.Label + " " + item.Value)
	}
}

func salaryText(r *resume.SalaryRange) string {
	if r == nil {
		return ""
	}
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("期望薪资：%d-%dk", *r.Min, *r.Max)
	case r.Min != nil:
		return fmt.Sprintf("期望薪资：%dk起", *r.Min)
	case r.Max != nil:
		return fmt.Sprintf("期望薪资：%dk以内", *r.Max)
	default:
		return ""
	}
}
