package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bankbang/internal/models"
)

var chinaTZ = time.FixedZone("CST", 8*3600)

// CleanText заменяет NBSP и полноширинные пробелы, схлопывает пробелы
func CleanText(s string) string {
	s = strings.NewReplacer("\u00a0", " ", "\u3000", " ", "\u200b", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var citySeparators = regexp.MustCompile(`[/、,，;；]+`)

// SplitCities делит по / 、 , ， и убирает дубли с сохранением порядка
func SplitCities(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range citySeparators.Split(CleanText(raw), -1) {
		city := strings.TrimSpace(part)
		if city == "" || seen[city] {
			continue
		}
		seen[city] = true
		out = append(out, city)
	}
	return out
}

// MapCategory понимает китайские и английские типы набора. Неизвестное значение
// становится intern, если это видно по названию, иначе campus.
func MapCategory(raw, title string) models.JobCategory {
	v := strings.ToLower(CleanText(raw))
	switch {
	case strings.Contains(v, "实习") || strings.Contains(v, "intern"):
		return models.JobCategoryIntern
	case strings.Contains(v, "社招") || strings.Contains(v, "社会招聘") || strings.Contains(v, "social"):
		return models.JobCategorySocial
	case strings.Contains(v, "校招") || strings.Contains(v, "校园招聘") || strings.Contains(v, "campus"):
		return models.JobCategoryCampus
	}
	if strings.Contains(title, "实习") {
		return models.JobCategoryIntern
	}
	return models.JobCategoryCampus
}

var (
	fullDateRe  = regexp.MustCompile(`^(\d{4})[-/.年](\d{1,2})[-/.月](\d{1,2})日?`)
	monthDayRe  = regexp.MustCompile(`^(\d{1,2})月(\d{1,2})日`)
	shortUSRe   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`)
	excelSerial = regexp.MustCompile(`^\d{5}(\.\d+)?$`)
)

// excelEpoch учитывает ошибку Excel с високосным 1900 годом
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, chinaTZ)

// ParseDeadline понимает 2006-01-02, 2006/1/2, 2006.1.2, 2006年1月2日, 1月2日
// (текущий год, или следующий, если дата прошла) и серийные номера Excel.
// Результат - конец дня по пекинскому времени.
func ParseDeadline(raw string, now time.Time) (*time.Time, bool) {
	v := CleanText(raw)
	if v == "" {
		return nil, false
	}

	var y, m, d int
	switch {
	case fullDateRe.MatchString(v):
		p := fullDateRe.FindStringSubmatch(v)
		y, m, d = atoi(p[1]), atoi(p[2]), atoi(p[3])
	case monthDayRe.MatchString(v):
		p := monthDayRe.FindStringSubmatch(v)
		m, d = atoi(p[1]), atoi(p[2])
		nowCN := now.In(chinaTZ)
		y = nowCN.Year()
		if endOfDay(y, m, d).Before(nowCN) {
			y++
		}
	case shortUSRe.MatchString(v):
		p := shortUSRe.FindStringSubmatch(v)
		m, d, y = atoi(p[1]), atoi(p[2]), 2000+atoi(p[3])
	case excelSerial.MatchString(v):
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 30000 || f > 80000 {
			return nil, false
		}
		t := excelEpoch.AddDate(0, 0, int(math.Floor(f)))
		y, m, d = t.Year(), int(t.Month()), t.Day()
	default:
		return nil, false
	}

	if m < 1 || m > 12 || d < 1 || d > 31 {
		return nil, false
	}
	t := endOfDay(y, m, d)
	if t.Day() != d {
		// 2月30日 и подобные
		return nil, false
	}
	return &t, true
}

func endOfDay(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 23, 59, 59, 0, chinaTZ)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var urlRe = regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`)

func LooksLikeURL(s string) bool {
	return urlRe.MatchString(CleanText(s))
}

// NormalizeURL добавляет схему к голым www. ссылкам
func NormalizeURL(s string) string {
	s = CleanText(s)
	if strings.HasPrefix(strings.ToLower(s), "www.") {
		return "https://" + s
	}
	return s
}

// SourceID не меняется при повторном импорте той же вакансии
func SourceID(company, title, city, applyURL string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{company, title, city, applyURL}, "|")))
	return hex.EncodeToString(sum[:])[:32]
}
