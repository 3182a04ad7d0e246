package resume

import (
	"fmt"
	"sort"
	"time"
)

// Document 表示完整的简历数据树，可 JSON 序列化，无行为依赖。
type Document struct {
	Title         string              `json:"title"`
	TitleCentered bool                `json:"centerTitle,omitempty"`
	PersonalInfo  PersonalInfoSection `json:"personalInfoSection"`
	JobIntention  *JobIntention       `json:"jobIntentionSection,omitempty"`
	Modules       []Module            `json:"modules"`
	Avatar        string              `json:"avatar,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// PersonalInfoSection 是个人信息模块。
type PersonalInfoSection struct {
	Items       []PersonalInfoItem `json:"personalInfo"`
	ShowLabels  bool               `json:"showPersonalInfoLabels"`
	Layout      PersonalInfoLayout `json:"layout"`
	AvatarShape AvatarShape        `json:"avatarShape,omitempty"`
}

// PersonalInfoItem 表示单个个人信息项。
type PersonalInfoItem struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Value InfoValue `json:"value"`
	Icon  string    `json:"icon,omitempty"`
	Order int       `json:"order"`
}

// InfoValue 是个人信息项的值，kind 为 text 或 link。
type InfoValue struct {
	Content   string    `json:"content"`
	Kind      ValueKind `json:"type,omitempty"`
	LinkTitle string    `json:"title,omitempty"`
}

// ValueKind 标识个人信息值的类型。
type ValueKind string

const (
	ValueText ValueKind = "text"
	ValueLink ValueKind = "link"
)

// AvatarShape 控制头像裁剪形状。
type AvatarShape string

const (
	AvatarCircle AvatarShape = "circle"
	AvatarSquare AvatarShape = "square"
)

// PersonalInfoLayout 描述个人信息的排版方式。
type PersonalInfoLayout struct {
	Mode LayoutMode `json:"mode"`
	// grid 模式下每行的列数，1..6。
	ColumnsPerRow int `json:"itemsPerRow,omitempty"`
}

// LayoutMode 是个人信息布局模式。
type LayoutMode string

const (
	LayoutInline LayoutMode = "inline"
	LayoutGrid   LayoutMode = "grid"
)

// JobIntention 是求职意向模块。
type JobIntention struct {
	Enabled bool               `json:"enabled"`
	Items   []JobIntentionItem `json:"items"`
}

// JobIntentionItem 表示单个求职意向项。
type JobIntentionItem struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Value       string       `json:"value"`
	Order       int          `json:"order"`
	Kind        IntentKind   `json:"type"`
	SalaryRange *SalaryRange `json:"salaryRange,omitempty"`
}

// IntentKind 标识求职意向项的类型。
type IntentKind string

const (
	IntentWorkYears IntentKind = "workYears"
	IntentPosition  IntentKind = "position"
	IntentCity      IntentKind = "city"
	IntentSalary    IntentKind = "salary"
	IntentCustom    IntentKind = "custom"
)

// SalaryRange 仅在 Kind 为 salary 时使用。
type SalaryRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// Module 表示一个自由内容模块。
type Module struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
	Order int    `json:"order"`
	Rows  []Row  `json:"rows"`
}

// Row 是模块中的一行：标签行（Tags 非空）或内容行（Columns >= 1）。
type Row struct {
	Tags     []string  `json:"tags,omitempty"`
	Columns  int       `json:"columns,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// IsTagRow 返回该行是否为标签行。
func (r Row) IsTagRow() bool { return len(r.Tags) > 0 && r.Columns == 0 }

// Element 是内容行中某一列的富文本内容，HTML 由富文本编辑器产出。
type Element struct {
	Column int    `json:"column"`
	HTML   string `json:"html"`
}

// SortedPersonalInfo 按 order 返回稳定排序后的个人信息项，平局保持插入顺序。
func (d *Document) SortedPersonalInfo() []PersonalInfoItem {
	items := make([]PersonalInfoItem, len(d.PersonalInfo.Items))
	copy(items, d.PersonalInfo.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items
}

// SortedJobIntention 按 order 返回稳定排序后的求职意向项。
func (d *Document) SortedJobIntention() []JobIntentionItem {
	if d.JobIntention == nil {
		return nil
	}
	items := make([]JobIntentionItem, len(d.JobIntention.Items))
	copy(items, d.JobIntention.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items
}

// SortedModules 按 order 返回稳定排序后的模块列表。
func (d *Document) SortedModules() []Module {
	modules := make([]Module, len(d.Modules))
	copy(modules, d.Modules)
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].Order < modules[j].Order })
	return modules
}

// Validate 校验文档不变量：id 唯一、内容行元素数与列数一致、
// 非 custom 类型的求职意向项至多一个、布局列数在合法区间。
func (d *Document) Validate() error {
	if d.Title == "" {
		return &ValidationError{Msg: "简历标题不能为空"}
	}

	if d.PersonalInfo.Layout.Mode == LayoutGrid {
		cols := d.PersonalInfo.Layout.ColumnsPerRow
		if cols < 1 || cols > 6 {
			return &ValidationError{Msg: fmt.Sprintf("个人信息 grid 布局列数非法: %d", cols)}
		}
	}

	seen := make(map[string]struct{}, len(d.PersonalInfo.Items))
	for _, item := range d.PersonalInfo.Items {
		if item.ID == "" {
			return &ValidationError{Msg: "个人信息项缺少 id"}
		}
		if _, dup := seen[item.ID]; dup {
			return &ValidationError{Msg: fmt.Sprintf("个人信息项 id 重复: %s", item.ID)}
		}
		seen[item.ID] = struct{}{}
	}

	if d.JobIntention != nil {
		kinds := make(map[IntentKind]struct{})
		ids := make(map[string]struct{}, len(d.JobIntention.Items))
		for _, item := range d.JobIntention.Items {
			if item.ID == "" {
				return &ValidationError{Msg: "求职意向项缺少 id"}
			}
			if _, dup := ids[item.ID]; dup {
				return &ValidationError{Msg: fmt.Sprintf("求职意向项 id 重复: %s", item.ID)}
			}
			ids[item.ID] = struct{}{}
			if item.Kind == IntentCustom {
				continue
			}
			if _, dup := kinds[item.Kind]; dup {
				return &ValidationError{Msg: fmt.Sprintf("求职意向 %s 类型只允许一项", item.Kind)}
			}
			kinds[item.Kind] = struct{}{}
		}
	}

	moduleIDs := make(map[string]struct{}, len(d.Modules))
	for _, module := range d.Modules {
		if module.ID == "" {
			return &ValidationError{Msg: "简历模块缺少 id"}
		}
		if _, dup := moduleIDs[module.ID]; dup {
			return &ValidationError{Msg: fmt.Sprintf("简历模块 id 重复: %s", module.ID)}
		}
		moduleIDs[module.ID] = struct{}{}

		for i, row := range module.Rows {
			if row.IsTagRow() {
				continue
			}
			if row.Columns < 1 || row.Columns > 4 {
				return &ValidationError{Msg: fmt.Sprintf("模块 %s 第 %d 行列数非法: %d", module.ID, i+1, row.Columns)}
			}
			if len(row.Elements) != row.Columns {
				return &ValidationError{
					Msg: fmt.Sprintf("模块 %s 第 %d 行元素数 %d 与列数 %d 不一致", module.ID, i+1, len(row.Elements), row.Columns),
				}
			}
			for _, el := range row.Elements {
				if el.Column < 0 || el.Column >= row.Columns {
					return &ValidationError{Msg: fmt.Sprintf("模块 %s 第 %d 行列索引越界: %d", module.ID, i+1, el.Column)}
				}
			}
		}
	}

	return nil
}

// ValidationError 表示用户可修正的输入错误，消息原样透出。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
