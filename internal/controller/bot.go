package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/repository"
	"github.com/Freeeeeet/receptionist/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// sender часть API бота, которой пользуются команды
type sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
}

type AppointmentLister interface {
	List(ctx context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error)
}

type Reconciler interface {
	Run(ctx context.Context) ([]service.OrphanEvent, error)
}

type WeekRenderer interface {
	Render(ctx context.Context, teacherName string, weekOf time.Time) ([]byte, error)
}

// OperatorDeps зависимости команд оператора
type OperatorDeps struct {
	ChatID       int64
	Appointments AppointmentLister
	Reconciler   Reconciler
	Weeks        WeekRenderer
	Location     *time.Location
}

// BotController бот оператора ресепшена: отвечает только в чате оператора
type BotController struct {
	bot    *bot.Bot
	sender sender
	deps   OperatorDeps
	now    func() time.Time
	logger *zap.Logger
}

func NewBotController(botInstance *bot.Bot, deps OperatorDeps, logger *zap.Logger) *BotController {
	c := newController(botInstance, deps, logger)
	c.bot = botInstance
	return c
}

func newController(s sender, deps OperatorDeps, logger *zap.Logger) *BotController {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &BotController{
		sender: s,
		deps:   deps,
		now:    time.Now,
		logger: logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.operatorOnly(c.HandleStart))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.operatorOnly(c.HandleStart))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/today", bot.MatchTypeExact, c.operatorOnly(c.HandleToday))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reconcile", bot.MatchTypeExact, c.operatorOnly(c.HandleReconcile))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypePrefix, c.operatorOnly(c.HandleWeek))

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Operator commands"},
		{Command: "today", Description: "📅 Today's appointments"},
		{Command: "week", Description: "🗓 Teacher week: /week <teacher>"},
		{Command: "reconcile", Description: "🔎 Check calendar against records"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота, блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting operator bot...", zap.Int64("chat_id", c.deps.ChatID))
	c.bot.Start(ctx)
	return nil
}

// operatorOnly пропускает только сообщения из чата оператора
func (c *BotController) operatorOnly(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		if update.Message.Chat.ID != c.deps.ChatID {
			c.logger.Warn("Ignoring message from foreign chat", zap.Int64("chat_id", update.Message.Chat.ID))
			return
		}
		next(ctx, b, update)
	}
}
