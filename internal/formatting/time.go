// Package formatting превращает время в фразы, которые агент зачитывает вслух
package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
)

// Ordinal возвращает число с английским суффиксом: 1st, 2nd, 3rd, 11th, 22nd
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// SpokenTime форматирует время в 12-часовом виде: 10:30 AM
func SpokenTime(t time.Time) string {
	return t.Format("3:04 PM")
}

// SpokenDate форматирует дату: Sunday, March 10th
func SpokenDate(t time.Time) string {
	return fmt.Sprintf("%s, %s %s", t.Weekday(), t.Month(), Ordinal(t.Day()))
}

// SpokenDateTime форматирует дату и время: Sunday, March 10th at 10:30 AM
func SpokenDateTime(t time.Time) string {
	return fmt.Sprintf("%s at %s", SpokenDate(t), SpokenTime(t))
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	unit := "hours"
	if hours == 1 {
		unit = "hour"
	}
	if mins == 0 {
		return fmt.Sprintf("%d %s", hours, unit)
	}
	return fmt.Sprintf("%d %s %d minutes", hours, unit, mins)
}

// SpokenSlots перечисляет слоты через запятую с "or" перед последним
func SpokenSlots(slots []model.TimeSlot) string {
	parts := make([]string, 0, len(slots))
	for _, slot := range slots {
		parts = append(parts, SpokenDateTime(slot.Start))
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " or " + parts[1]
	}
	return strings.Join(parts[:len(parts)-1], "; ") + "; or " + parts[len(parts)-1]
}
