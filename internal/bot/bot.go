// Package bot implements the chat front end of the ledger. Handle maps one
// incoming text to one Reply; the Telegram adapter in this package moves
// updates and replies over the wire.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bisky/internal/core"
	"bisky/internal/ledger"
	"bisky/internal/log"
	"bisky/internal/metrics"
	"bisky/internal/middleware/ratelimit"
	"bisky/internal/report"
	"bisky/internal/services"
)

// Fixed replies.
const (
	Greeting       = "I'm Bisky!"
	Added          = "Added!"
	Failed         = "Error!"
	UnknownCommand = "Unknown command."
)

// ModeMarkdownV2 is Telegram's MarkdownV2 parse mode.
const ModeMarkdownV2 = "MarkdownV2"

// Reply is what the bot sends back for one message. A reply with Photo set
// is sent as an image with Text as its caption.
type Reply struct {
	Text      string
	ParseMode string
	Photo     []byte
}

type Bot struct {
	svc     *services.LedgerService
	clock   core.Clock
	allowed func(chatID int64) bool
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *log.Logger
}

type Option func(*Bot)

// WithAllowList restricts the bot to chats for which allowed returns true.
func WithAllowList(allowed func(chatID int64) bool) Option {
	return func(b *Bot) { b.allowed = allowed }
}

// WithLimiter drops messages from chats that exceed their rate.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(b *Bot) { b.limiter = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

func WithClock(c core.Clock) Option {
	return func(b *Bot) { b.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(b *Bot) { b.logger = l.WithComponent(log.ComponentBot) }
}

func New(svc *services.LedgerService, opts ...Option) *Bot {
	b := &Bot{
		svc:    svc,
		clock:  core.SystemClock,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentBot),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle answers one message. ok is false when the message is dropped:
// the chat is not allowed, it is over its rate, or the text is empty.
func (b *Bot) Handle(ctx context.Context, chatID int64, text string) (reply Reply, ok bool) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, false
	}
	if b.allowed != nil && !b.allowed(chatID) {
		b.logger.WarnContext(ctx, "Message from chat outside the allow list", log.FieldChatID, chatID)
		return Reply{}, false
	}
	if b.limiter != nil && !b.limiter.Allow(strconv.FormatInt(chatID, 10)) {
		if b.metrics != nil {
			b.metrics.BotRateLimits.Inc()
		}
		b.logger.WarnContext(ctx, "Chat rate limited", log.FieldChatID, chatID)
		return Reply{}, false
	}

	command, args, isCommand := parseCommand(text)
	if !isCommand {
		return Reply{Text: text}, true
	}

	var err error
	switch command {
	case "start":
		reply = Reply{Text: Greeting}
	case "add":
		reply, err = b.add(ctx, args)
	case "view":
		reply, err = b.view(args)
	case "balance":
		reply = Reply{
			Text:      "Balance: `" + escapeCode(core.FormatAmount(b.svc.Manager().Balance())) + "`",
			ParseMode: ModeMarkdownV2,
		}
	case "usage":
		reply, err = b.usage()
	case "plot":
		reply, err = b.plot()
	case "month":
		reply, err = b.month(args)
	default:
		reply = Reply{Text: UnknownCommand}
		command = "unknown"
	}

	if b.metrics != nil {
		b.metrics.BotCommands.WithLabelValues(command, metrics.Result(err)).Inc()
	}
	if err != nil {
		b.logger.WithFields(log.NewFields().
			WithChat(chatID, command).
			WithErrorKind(errorKind(err)).
			WithError(err)).
			ErrorContext(ctx, "Command failed")
		return Reply{Text: Failed}, true
	}
	return reply, true
}

// add handles "/add <preset> <amount> [date]" and
// "/add food <amount> [date] [remark...]". For food the third token is a
// date when it looks like one; otherwise it starts the remark.
func (b *Bot) add(ctx context.Context, args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, fmt.Errorf("%w: /add <type> <amount> [date]", errUsage)
	}
	preset, err := core.PresetByName(args[0])
	if err != nil {
		return Reply{}, err
	}
	amount, err := core.ParseAmount(args[1])
	if err != nil {
		return Reply{}, err
	}

	rest := args[2:]
	var date core.Date
	if len(rest) > 0 && (preset != core.Food || looksLikeDate(rest[0])) {
		d, err := core.ParseDate(rest[0], core.Today(b.clock))
		if err != nil {
			return Reply{}, err
		}
		date, rest = d, rest[1:]
	}

	var entry core.Entry
	if preset == core.Food {
		entry = core.FoodEntry(amount, strings.Join(rest, " "), date)
	} else {
		entry = core.Meal(preset, amount, date)
	}
	if _, err := b.svc.Add(ctx, entry); err != nil {
		return Reply{}, err
	}
	return Reply{Text: Added}, nil
}

func (b *Bot) view(args []string) (Reply, error) {
	last := ledger.AllRows
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return Reply{}, fmt.Errorf("%w: /view [n]", errUsage)
		}
		last = n
	}
	rows := b.svc.Manager().View(last)
	if len(rows) == 0 {
		return Reply{Text: report.NothingToShow}, nil
	}
	return preBlock(report.EntriesTable(rows)), nil
}

func (b *Bot) usage() (Reply, error) {
	days, err := b.svc.Manager().Usage()
	if err != nil {
		return Reply{}, err
	}
	if len(days) == 0 {
		return Reply{Text: report.NothingToShow}, nil
	}
	return preBlock(report.UsageTable(days)), nil
}

func (b *Bot) plot() (Reply, error) {
	var buf bytes.Buffer
	err := b.svc.Plot(&buf)
	if errors.Is(err, report.ErrEmptySeries) {
		return Reply{Text: report.NothingToShow}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: report.PeriodTitle(b.svc.Manager().Period()), Photo: buf.Bytes()}, nil
}

func (b *Bot) month(args []string) (Reply, error) {
	m := b.svc.Manager()
	if len(args) > 0 {
		month, err := strconv.Atoi(args[0])
		if err != nil {
			return Reply{}, fmt.Errorf("%w: %q", ledger.ErrMonthOutOfRange, args[0])
		}
		if err := m.SetMonth(month); err != nil {
			return Reply{}, err
		}
	}
	return Reply{Text: "Viewing " + report.PeriodTitle(m.Period())}, nil
}

var (
	errUsage = errors.New("bad command usage")
	isoDate  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func looksLikeDate(s string) bool {
	return strings.EqualFold(s, core.Yesterday) || isoDate.MatchString(s)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errUsage):
		return log.ErrorKindUsage
	case errors.Is(err, core.ErrUnknownPreset):
		return log.ErrorKindPreset
	case errors.Is(err, core.ErrInvalidAmount):
		return log.ErrorKindAmount
	case errors.Is(err, core.ErrInvalidDate):
		return log.ErrorKindDate
	case errors.Is(err, ledger.ErrMonthOutOfRange):
		return log.ErrorKindMonth
	case errors.Is(err, ledger.ErrNoDataForMonth):
		return log.ErrorKindRender
	default:
		return log.ErrorKindStorage
	}
}

// parseCommand splits "/cmd@botname a b" into "cmd" and its arguments.
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:], true
}

func preBlock(s string) Reply {
	return Reply{Text: "```\n" + escapeCode(s) + "\n```", ParseMode: ModeMarkdownV2}
}

// escapeCode escapes the characters MarkdownV2 reserves inside code spans
// and pre blocks.
func escapeCode(s string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(s)
}
