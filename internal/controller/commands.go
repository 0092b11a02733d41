package controller

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/receptionist/internal/formatting"
	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/repository"
	"github.com/Freeeeeet/receptionist/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "👋 <b>Reception operator</b>\n\n" +
	"/today - today's appointments\n" +
	"/week &lt;teacher&gt; - teacher's week as an image\n" +
	"/reconcile - find calendar events without appointment records"

// HandleStart обрабатывает команды /start и /help
func (c *BotController) HandleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	c.reply(ctx, update.Message.Chat.ID, helpText)
}

// HandleToday показывает встречи на сегодня
func (c *BotController) HandleToday(ctx context.Context, _ *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	now := c.now().In(c.deps.Location)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.deps.Location)
	to := from.AddDate(0, 0, 1)

	appointments, err := c.deps.Appointments.List(ctx, repository.AppointmentFilter{
		From:   &from,
		To:     &to,
		Status: model.AppointmentStatusScheduled,
	})
	if err != nil {
		c.logger.Error("Failed to list today's appointments", zap.Error(err))
		c.reply(ctx, chatID, "❌ Could not load appointments. Try again later.")
		return
	}

	if len(appointments) == 0 {
		c.reply(ctx, chatID, fmt.Sprintf("📅 No appointments on %s.", formatting.SpokenDate(from)))
		return
	}

	var text strings.Builder
	fmt.Fprintf(&text, "📅 <b>%s</b>\n\n", formatting.SpokenDate(from))
	for _, a := range appointments {
		start := a.StartTime.In(c.deps.Location)
		fmt.Fprintf(&text, "• %s %s: %s for %s\n",
			formatting.FormatTimeRange(start, a.EndTime().In(c.deps.Location)),
			html.EscapeString(a.TeacherName),
			html.EscapeString(a.ParentName),
			html.EscapeString(a.StudentName))
	}

	c.reply(ctx, chatID, text.String())
}

// HandleReconcile запускает сверку вне расписания
func (c *BotController) HandleReconcile(ctx context.Context, _ *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	orphans, err := c.deps.Reconciler.Run(ctx)
	if err != nil {
		c.logger.Error("Manual reconciliation failed", zap.Error(err))
		c.reply(ctx, chatID, "❌ Reconciliation failed: "+html.EscapeString(err.Error()))
		return
	}

	// Список сирот присылает сам сервис сверки
	if len(orphans) == 0 {
		c.reply(ctx, chatID, "✅ Calendar and appointment records match.")
		return
	}
	c.reply(ctx, chatID, fmt.Sprintf("⚠️ Found %d event(s) without records.", len(orphans)))
}

// HandleWeek присылает картинку недели учителя: /week <teacher>
func (c *BotController) HandleWeek(ctx context.Context, _ *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	teacherName := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/week"))
	if teacherName == "" {
		c.reply(ctx, chatID, "Usage: /week &lt;teacher name&gt;")
		return
	}

	now := c.now()
	image, err := c.deps.Weeks.Render(ctx, teacherName, now)
	if err != nil {
		if service.IsUnknownTeacher(err) {
			c.reply(ctx, chatID, "❌ Unknown teacher: "+html.EscapeString(teacherName))
			return
		}
		c.logger.Error("Failed to render week", zap.String("teacher", teacherName), zap.Error(err))
		c.reply(ctx, chatID, "❌ Could not build the schedule. Try again later.")
		return
	}

	_, err = c.sender.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(image)},
		Caption: fmt.Sprintf("🗓 %s, week of %s", teacherName, formatting.SpokenDate(now.In(c.deps.Location))),
	})
	if err != nil {
		c.logger.Error("Failed to send week image", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// reply отправляет HTML-сообщение и логирует если не удалось
func (c *BotController) reply(ctx context.Context, chatID int64, text string) {
	_, err := c.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		c.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
