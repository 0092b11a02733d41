package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// maxOrphansPerMessage ограничивает размер сообщения, лимит Telegram 4096 символов
const maxOrphansPerMessage = 20

type telegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// OperatorAlerter пишет оператору в Telegram о расхождениях календаря и базы
type OperatorAlerter struct {
	sender telegramSender
	chatID int64
	logger *zap.Logger
}

func NewOperatorAlerter(sender telegramSender, chatID int64, logger *zap.Logger) *OperatorAlerter {
	return &OperatorAlerter{sender: sender, chatID: chatID, logger: logger}
}

// ReportPartialWrite сообщает о событии в календаре без записи в базе
func (a *OperatorAlerter) ReportPartialWrite(ctx context.Context, req model.AppointmentRequest, result model.SchedulingResult) error {
	var text strings.Builder
	text.WriteString("⚠️ <b>Appointment not stored</b>\n\n")
	fmt.Fprintf(&text, "Calendar event <code>%s</code> was created but the local write failed.\n", html.EscapeString(result.EventID))
	fmt.Fprintf(&text, "Teacher: %s\n", html.EscapeString(req.TeacherName))
	fmt.Fprintf(&text, "Parent: %s (%s)\n", html.EscapeString(req.ParentName), html.EscapeString(req.ContactPhone))
	fmt.Fprintf(&text, "Time: %s\n", req.StartTime.Format(time.RFC3339))
	if result.Detail != "" {
		fmt.Fprintf(&text, "Error: %s\n", html.EscapeString(result.Detail))
	}

	return a.send(ctx, text.String())
}

// ReportOrphans сообщает о найденных сиротских событиях
func (a *OperatorAlerter) ReportOrphans(ctx context.Context, orphans []service.OrphanEvent) error {
	if len(orphans) == 0 {
		return nil
	}

	var text strings.Builder
	fmt.Fprintf(&text, "🔎 <b>%d calendar event(s) without appointment record</b>\n\n", len(orphans))
	for i, orphan := range orphans {
		if i == maxOrphansPerMessage {
			fmt.Fprintf(&text, "...and %d more\n", len(orphans)-maxOrphansPerMessage)
			break
		}
		fmt.Fprintf(&text, "• %s, %s (<code>%s</code> in %s)\n",
			orphan.Event.Start.Format("02.01.2006 15:04"),
			html.EscapeString(orphan.Event.Title),
			html.EscapeString(orphan.Event.ID),
			html.EscapeString(orphan.CalendarID))
	}

	return a.send(ctx, text.String())
}

func (a *OperatorAlerter) send(ctx context.Context, text string) error {
	_, err := a.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    a.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		a.logger.Error("Failed to send operator alert", zap.Int64("chat_id", a.chatID), zap.Error(err))
		return fmt.Errorf("send operator alert: %w", err)
	}
	return nil
}
