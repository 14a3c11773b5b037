package importer

import "time"

// maxShift - предельный сдвиг строки относительно заголовка, дальше якорям не верим
const maxShift = 2

// anchorOrder: сначала позиция заголовка, потом ближайшие соседи
var anchorOrder = []int{0, -1, 1, -2, 2}

type shiftResult struct {
	Offset   int
	Conflict bool
}

// detectShift ищет ячейки, похожие на URL и дату, рядом с их колонками заголовка.
// Если оба якоря согласны на k != 0, строка сдвинута на k; одному якорю верим
// самому по себе; расхождение считается конфликтом.
func detectShift(row []string, h Header, now time.Time) shiftResult {
	urlOff, urlOK := findAnchor(row, h, FieldApplyURL, LooksLikeURL)
	dateOff, dateOK := findAnchor(row, h, FieldDeadline, func(s string) bool {
		_, ok := ParseDeadline(s, now)
		return ok
	})

	switch {
	case urlOK && dateOK:
		if urlOff == dateOff {
			return shiftResult{Offset: urlOff}
		}
		return shiftResult{Conflict: true}
	case urlOK:
		return shiftResult{Offset: urlOff}
	case dateOK:
		return shiftResult{Offset: dateOff}
	}
	return shiftResult{}
}

func findAnchor(row []string, h Header, f Field, match func(string) bool) (int, bool) {
	col, ok := h.Col(f)
	if !ok {
		return 0, false
	}
	for _, off := range anchorOrder {
		i := col + off
		if i < 0 || i >= len(row) {
			continue
		}
		if match(row[i]) {
			return off, true
		}
	}
	return 0, false
}

// realign сдвигает все ячейки на -k, чтобы row[col+k] попал в col
func realign(row []string, k, width int) []string {
	if width < len(row) {
		width = len(row)
	}
	out := make([]string, width)
	for j := range out {
		src := j + k
		if src >= 0 && src < len(row) {
			out[j] = row[src]
		}
	}
	return out
}
