// Package render рисует недельное расписание учителя в PNG для оператора
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// ItemKind вид блока на картинке
type ItemKind string

const (
	KindScheduled ItemKind = "scheduled"
	KindCompleted ItemKind = "completed"
	KindCancelled ItemKind = "cancelled"
	KindBusy      ItemKind = "busy" // событие календаря без записи в базе
)

// Item один блок времени
type Item struct {
	Start time.Time
	End   time.Time
	Label string
	Kind  ItemKind
}

// Константы размеров и отступов
const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 120
	dayPaddingX      = 8
	minItemHeight    = 8.0
	itemBorderRadius = 6.0
	shadowOffset     = 3.0
	totalDaysInWeek  = 7
	hourPaddingTop   = 1
	hourPaddingBot   = 1
	defaultMinHour   = 9
	defaultMaxHour   = 17
	maxLabelLen      = 20
)

// Константы шрифтов
const (
	titleFontSize      = 25.0
	dayFontSize        = 24.0
	hourLabelFontSize  = 18.0
	itemTimeFontSize   = 16.0
	legendItemFontSize = 12.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	scheduledColor  = color.RGBA{133, 193, 85, 220}
	completedColor  = color.RGBA{120, 160, 220, 220}
	cancelledColor  = color.RGBA{158, 158, 158, 200}
	busyColor       = color.RGBA{255, 182, 193, 255}
	itemTextColor   = color.RGBA{20, 24, 28, 230}
	busyTextColor   = color.RGBA{120, 40, 50, 255}
	itemShadowColor = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

type weekBounds struct {
	start time.Time
	end   time.Time
}

type hourRange struct {
	start int
	end   int
	total int
}

var (
	fontsOnce   sync.Once
	regularFont *opentype.Font
	boldFont    *opentype.Font
)

// loadFont ставит шрифт Go нужного размера, при ошибке basicfont
func loadFont(dc *gg.Context, size float64, bold bool) {
	fontsOnce.Do(func() {
		regularFont, _ = opentype.Parse(goregular.TTF)
		boldFont, _ = opentype.Parse(gobold.TTF)
	})

	parsed := regularFont
	if bold {
		parsed = boldFont
	}
	if parsed == nil {
		dc.SetFontFace(basicfont.Face7x13)
		return
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		dc.SetFontFace(basicfont.Face7x13)
		return
	}
	dc.SetFontFace(face)
}

// WeekImage рисует неделю (Пн-Вс), содержащую weekOf. now нужен для подсветки сегодняшнего дня.
func WeekImage(weekOf time.Time, title string, items []Item, now time.Time) ([]byte, error) {
	loc := weekOf.Location()
	week := normalizeToWeekBounds(weekOf)
	now = now.In(loc)
	today := normalizeToDay(now)
	highlightToday := isTodayInWeek(today, week)

	local := make([]Item, 0, len(items))
	for _, item := range items {
		item.Start, item.End = item.Start.In(loc), item.End.In(loc)
		local = append(local, item)
	}

	itemsByDay := groupItemsByDay(local)
	hours := calculateHourRange(local)

	dc := createCanvas()
	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week, title)
	drawHourLabels(dc, hours, cellHeight)
	for dayIndex := 0; dayIndex < totalDaysInWeek; dayIndex++ {
		date := week.start.AddDate(0, 0, dayIndex)
		x := float64(leftLabelsWidth + dayIndex*dayWidth)
		y := float64(headerHeight)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, dayIndex, highlightToday && isSameDay(date, today))
		drawDayHeader(dc, date, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, item := range itemsByDay[date.Format("2006-01-02")] {
			drawItem(dc, item, x, y, dayWidth, hours, cellHeight)
		}
	}
	if highlightToday {
		drawCurrentTimeLine(dc, now, hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	return encodeImage(dc)
}

// normalizeToWeekBounds нормализует дату к границам недели (Пн-Вс)
func normalizeToWeekBounds(date time.Time) weekBounds {
	normalized := normalizeToDay(date)

	daysSinceMonday := int(normalized.Weekday()) - 1
	if normalized.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}

	start := normalized.AddDate(0, 0, -daysSinceMonday)
	return weekBounds{start: start, end: start.AddDate(0, 0, 6)}
}

// WeekStart понедельник недели, содержащей date
func WeekStart(date time.Time) time.Time {
	return normalizeToWeekBounds(date).start
}

func normalizeToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isTodayInWeek(today time.Time, week weekBounds) bool {
	return !today.Before(week.start) && !today.After(week.end)
}

func isSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func groupItemsByDay(items []Item) map[string][]Item {
	byDay := make(map[string][]Item)
	for _, item := range items {
		key := item.Start.Format("2006-01-02")
		byDay[key] = append(byDay[key], item)
	}
	return byDay
}

// calculateHourRange определяет диапазон часов, по умолчанию учебный день
func calculateHourRange(items []Item) hourRange {
	minHour := defaultMinHour
	maxHour := defaultMaxHour

	for _, item := range items {
		start, end := item.Start, item.End
		endH := end.Hour()
		if end.Minute() > 0 {
			endH++
		}
		if !isSameDay(start, end) {
			endH = 24
		}
		if start.Hour() < minHour {
			minHour = start.Hour()
		}
		if endH > maxHour {
			maxHour = endH
		}
	}

	startHour := minHour - hourPaddingTop
	endHour := maxHour + hourPaddingBot
	if startHour < 0 {
		startHour = 0
	}
	if endHour > 23 {
		endHour = 23
	}

	return hourRange{start: startHour, end: endHour, total: endHour - startHour + 1}
}

func createCanvas() *gg.Context {
	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	return dc
}

func drawHeader(dc *gg.Context, week weekBounds, title string) {
	period := week.start.Month().String()
	if week.start.Month() != week.end.Month() {
		period += " - " + week.end.Month().String()
	}
	if title != "" {
		period = title + ", " + period
	}

	loadFont(dc, titleFontSize, true)
	dc.SetColor(textColor)
	_, h := dc.MeasureString(period)
	dc.DrawStringAnchored(period, float64(leftLabelsWidth), float64(headerHeight)/8+h/2, 0, 0)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	loadFont(dc, hourLabelFontSize, false)
	dc.SetColor(hourLabelColor)

	for i := 0; i < hours.total; i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", hours.start+i), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	loadFont(dc, dayFontSize, true)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("02 Jan"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(date.Format("Mon"), x+float64(dayWidth)/2, y, 0.5, -0.2)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for i := 0; i <= hours.total; i++ {
		hy := y + float64(i)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

func drawItem(dc *gg.Context, item Item, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	startHour := float64(item.Start.Hour()) + float64(item.Start.Minute())/60.0
	endHour := float64(item.End.Hour()) + float64(item.End.Minute())/60.0
	if endHour <= startHour {
		endHour = float64(hours.end + 1)
	}

	itemY := y + (startHour-float64(hours.start))*cellHeight
	itemHeight := (endHour - startHour) * cellHeight
	if itemHeight < minItemHeight {
		itemHeight = minItemHeight
	}

	fill := itemColor(item.Kind)
	width := float64(dayWidth) - float64(dayPaddingX*2)

	// Тень
	dc.SetColor(itemShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, itemY+2+shadowOffset, width, itemHeight-4, itemBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, itemY+2, width, itemHeight-4, itemBorderRadius)
	dc.Fill()

	// Рамка
	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, itemY+2, width, itemHeight-4, itemBorderRadius)
	dc.Stroke()

	text := itemTextColor
	if item.Kind == KindBusy {
		text = busyTextColor
	}

	loadFont(dc, itemTimeFontSize, false)
	dc.SetColor(text)
	txtX := x + dayPaddingX + 8
	txtY := itemY + 18
	dc.DrawStringAnchored(item.Start.Format("15:04"), txtX, txtY, 0, 0)

	if item.Label != "" && itemHeight > 25 {
		loadFont(dc, itemTimeFontSize-2, false)
		dc.DrawStringAnchored(truncate(item.Label, maxLabelLen), txtX, txtY+16, 0, 0)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func itemColor(kind ItemKind) color.RGBA {
	switch kind {
	case KindScheduled:
		return scheduledColor
	case KindCompleted:
		return completedColor
	case KindCancelled:
		return cancelledColor
	default:
		return busyColor
	}
}

func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// drawCurrentTimeLine рисует красную линию текущего времени
func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	current := float64(now.Hour()) + float64(now.Minute())/60.0
	if current < float64(hours.start) || current > float64(hours.end) {
		return
	}

	y := float64(headerHeight) + (current-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), y, float64(leftLabelsWidth+totalDaysInWeek*dayWidth), y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	x := float64(leftLabelsWidth + totalDaysInWeek*dayWidth + 10)
	y := float64(imageHeight) - 120.0

	items := []struct {
		label string
		clr   color.Color
	}{
		{"Scheduled", scheduledColor},
		{"Completed", completedColor},
		{"Cancelled", cancelledColor},
		{"Busy", busyColor},
	}

	const boxW, boxH = 20.0, 14.0
	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		loadFont(dc, legendItemFontSize, false)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, x+boxW+8, y+boxH/2+1, 0, 0.2)
		y += boxH + 14
	}
}

func encodeImage(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
