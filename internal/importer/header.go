package importer

import (
	"errors"
	"strings"
)

// Field - логическая колонка таблицы вакансий
type Field string

const (
	FieldCompany     Field = "company"
	FieldTitle       Field = "title"
	FieldCity        Field = "city"
	FieldCategory    Field = "category"
	FieldEducation   Field = "education"
	FieldMajor       Field = "major"
	FieldDeadline    Field = "deadline"
	FieldApplyURL    Field = "apply_url"
	FieldDescription Field = "description"
)

var headerAliases = map[Field][]string{
	FieldCompany:     {"公司", "公司名称", "单位", "招聘单位", "机构", "company", "company_name"},
	FieldTitle:       {"岗位", "岗位名称", "职位", "职位名称", "title", "position", "job_title"},
	FieldCity:        {"城市", "工作城市", "工作地点", "地点", "city", "location"},
	FieldCategory:    {"类别", "类型", "招聘类型", "category", "type"},
	FieldEducation:   {"学历", "学历要求", "education", "degree"},
	FieldMajor:       {"专业", "专业要求", "major"},
	FieldDeadline:    {"截止日期", "截止时间", "网申截止", "deadline"},
	FieldApplyURL:    {"投递链接", "网申链接", "投递网址", "链接", "apply_url", "url", "link"},
	FieldDescription: {"备注", "说明", "岗位描述", "description", "notes", "remark"},
}

var aliasIndex = func() map[string]Field {
	m := make(map[string]Field)
	for field, aliases := range headerAliases {
		for _, a := range aliases {
			m[normalizeHeader(a)] = field
		}
	}
	return m
}()

var ErrHeaderNotFound = errors.New("header row not found: need at least company and title columns")

// headerScanRows - насколько далеко заголовок может сместиться вниз из-за шапки
const headerScanRows = 20

// Header сопоставляет поля с номерами колонок
type Header struct {
	Row     int
	Columns map[Field]int
}

func (h Header) Col(f Field) (int, bool) {
	c, ok := h.Columns[f]
	return c, ok
}

func normalizeHeader(s string) string {
	s = strings.ToLower(CleanText(s))
	s = strings.NewReplacer(" ", "", "*", "", "：", "", ":", "", "（", "(", "）", ")").Replace(s)
	if i := strings.Index(s, "("); i > 0 {
		s = s[:i]
	}
	return s
}

// FindHeader выбирает первую строку среди первых headerScanRows, в которой есть
// и колонка компании, и колонка должности.
func FindHeader(rows [][]string) (Header, error) {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		cols := make(map[Field]int)
		for j, cell := range rows[i] {
			if f, ok := aliasIndex[normalizeHeader(cell)]; ok {
				if _, dup := cols[f]; !dup {
					cols[f] = j
				}
			}
		}
		_, hasCompany := cols[FieldCompany]
		_, hasTitle := cols[FieldTitle]
		if hasCompany && hasTitle {
			return Header{Row: i, Columns: cols}, nil
		}
	}
	return Header{}, ErrHeaderNotFound
}
