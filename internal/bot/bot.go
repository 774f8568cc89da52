package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"action-items/internal/model"
	"action-items/internal/repository"
	"action-items/internal/service"
)

const (
	cbDeletePrefix = "delete:"
	maxButtons     = 20
	maxButtonTitle = 32
	// Telegram rejects longer messages.
	maxMessageLen = 4096
)

// Tasks is the task API the bot uses.
type Tasks interface {
	List(ctx context.Context) ([]model.Task, error)
	Get(ctx context.Context, id string) (*model.Task, error)
	Delete(ctx context.Context, id string) error
}

// Syncer runs one sync pass.
type Syncer interface {
	Run(ctx context.Context) (*service.SyncResult, error)
}

// Digester renders the task digest as pages of at most limit characters.
type Digester interface {
	Pages(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// Bot pushes digests to one Telegram chat and answers its commands.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	tasks  Tasks
	syncer Syncer
	digest Digester
	now    func() time.Time
}

// New authorizes against the Telegram Bot API.
func New(token string, chatID int64, tasks Tasks, syncer Syncer, digest Digester) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newWithAPI(api, chatID, tasks, syncer, digest), nil
}

// NewWithEndpoint is New against another Bot API server; endpoint has the
// form "https://host/bot%s/%s".
func NewWithEndpoint(token, endpoint string, chatID int64, tasks Tasks, syncer Syncer, digest Digester) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newWithAPI(api, chatID, tasks, syncer, digest), nil
}

func newWithAPI(api *tgbotapi.BotAPI, chatID int64, tasks Tasks, syncer Syncer, digest Digester) *Bot {
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return &Bot{
		api:    api,
		chatID: chatID,
		tasks:  tasks,
		syncer: syncer,
		digest: digest,
		now:    time.Now,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

// SendDigest pushes the current task digest to the configured chat.
func (b *Bot) SendDigest(ctx context.Context) error {
	pages, err := b.digest.Pages(ctx, b.now(), maxMessageLen)
	if err != nil {
		return fmt.Errorf("build digest: %w", err)
	}
	for _, page := range pages {
		if err := b.sendText(b.chatID, page); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil || msg.Chat.ID != b.chatID {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help for the list of commands.")
	}

	log.Printf("[info] command from chat=%d: /%s %s", msg.Chat.ID, msg.Command(), msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		return b.handleHelp(msg)
	case "tasks":
		return b.handleTasks(ctx, msg)
	case "sync":
		return b.handleSync(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Action items</b>\n" +
		"• /tasks: open action items, with delete buttons\n" +
		"• /sync: scan Slack now and add new items\n" +
		"• /delete &lt;id&gt;: delete an item by id\n" +
		"• /help: this message"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleTasks(ctx context.Context, msg *tgbotapi.Message) error {
	pages, err := b.digest.Pages(ctx, b.now(), maxMessageLen)
	if err != nil {
		return err
	}
	tasks, err := b.tasks.List(ctx)
	if err != nil {
		return err
	}

	for i, page := range pages {
		reply := tgbotapi.NewMessage(msg.Chat.ID, page)
		reply.ParseMode = tgbotapi.ModeHTML
		if i == len(pages)-1 {
			if markup, ok := deleteKeyboard(tasks); ok {
				reply.ReplyMarkup = markup
			}
		}
		if _, err := b.api.Send(reply); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleSync(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.sendText(msg.Chat.ID, "🔄 Syncing from Slack…"); err != nil {
		return err
	}

	result, err := b.syncer.Run(ctx)
	if err != nil {
		if errors.Is(err, service.ErrMissingCredentials) {
			return b.sendText(msg.Chat.ID, "⚠️ "+escape(err.Error()))
		}
		log.Printf("sync from bot: %v", err)
		return b.sendText(msg.Chat.ID, "⚠️ Sync failed: "+escape(err.Error()))
	}

	text := fmt.Sprintf("✅ Sync done: %d new item(s).", result.TasksAdded)
	if failed := result.Failed(); failed > 0 {
		text += fmt.Sprintf(" %d conversation(s) skipped.", failed)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Usage: /delete &lt;id&gt;")
	}
	return b.deleteTask(ctx, msg.Chat.ID, id)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != b.chatID {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	if !strings.HasPrefix(cb.Data, cbDeletePrefix) {
		return nil
	}
	id := strings.TrimPrefix(cb.Data, cbDeletePrefix)
	log.Printf("[info] callback delete request task=%s", id)
	return b.deleteTask(ctx, cb.Message.Chat.ID, id)
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, id string) error {
	title := id
	task, err := b.tasks.Get(ctx, id)
	switch {
	case err == nil:
		title = task.Title
	case errors.Is(err, repository.ErrNotFound):
		return b.sendText(chatID, "Nothing to delete, the item is already gone.")
	default:
		return err
	}

	if err := b.tasks.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[info] task deleted id=%s", id)
	return b.sendText(chatID, fmt.Sprintf("🗑 Deleted: %s", escape(title)))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func deleteKeyboard(tasks []model.Task) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(tasks) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		if i == maxButtons {
			break
		}
		label := "🗑 " + shortTitle(task.Title, maxButtonTitle)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbDeletePrefix+task.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func shortTitle(title string, maxLen int) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= maxLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}
