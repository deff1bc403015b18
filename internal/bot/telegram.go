package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sentiment-alpha/internal/domain"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"
)

type StateQuerier interface {
	State(ctx context.Context) (domain.State, error)
}

type SignalLister interface {
	ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.Signal, error)
}

type Commentator interface {
	CommentaryText(ctx context.Context) (string, error)
}

type Options struct {
	Token  string
	ChatID int64
}

const maxMessageLen = 4000

// StartTelegramBot registers the chat commands and starts long polling. It
// returns a nil dispatcher when no token is configured.
func StartTelegramBot(ctx context.Context, opts Options, state StateQuerier, signals SignalLister, commentator Commentator, logger zerolog.Logger) (*AlertDispatcher, error) {
	logger = logger.With().Str("component", "telegram").Logger()
	if opts.Token == "" {
		logger.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  opts.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	alerts := NewAlertDispatcher(b, opts.ChatID)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/state", func(c tele.Context) error {
		if state == nil {
			return c.Send("State unavailable")
		}
		st, err := state.State(ctx)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching state: %v", err))
		}
		return c.Send(formatState(st))
	})

	b.Handle("/signals", func(c tele.Context) error {
		if signals == nil {
			return c.Send("Signal service unavailable")
		}

		filter, err := parseSignalArgs(c.Args())
		if err != nil {
			return c.Send("Usage: /signals [accumulate|hold|wait] [limit]")
		}

		list, err := signals.ListSignals(ctx, filter)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching signals: %v", err))
		}
		if len(list) == 0 {
			return c.Send("No matching signals right now.")
		}

		lines := make([]string, 0, len(list)+1)
		lines = append(lines, "Latest signals:")
		for _, s := range list {
			lines = append(lines, formatSignal(s))
		}
		return c.Send(strings.Join(lines, "\n"))
	})

	b.Handle("/summary", func(c tele.Context) error {
		if commentator == nil {
			return c.Send("Commentary not configured.")
		}
		_ = c.Notify(tele.Typing)
		text, err := commentator.CommentaryText(ctx)
		if err != nil {
			logger.Warn().Err(err).Int64("chat_id", c.Chat().ID).Msg("commentary failed")
			return c.Send("Commentary unavailable right now. Try /state.")
		}
		if text == "" {
			return c.Send("No commentary yet.")
		}
		return c.Send(truncate(text, maxMessageLen))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Signal alerts enabled for this chat.")
			}
			return c.Send("Signal alerts are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Signal alerts disabled for this chat.")
			}
			return c.Send("Signal alerts are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	go b.Start()
	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	logger.Info().Int("subscribers", alerts.SubscriberCount()).Msg("Telegram bot started")
	return alerts, nil
}

func parseSignalArgs(args []string) (domain.SignalFilter, error) {
	filter := domain.SignalFilter{Limit: 5}
	limitSet := false

	for _, raw := range args {
		arg := strings.ToLower(strings.TrimSpace(raw))
		if arg == "" {
			continue
		}
		if a := domain.Action(arg); a.IsValid() {
			if filter.Action != "" {
				return domain.SignalFilter{}, errors.New("multiple actions provided")
			}
			filter.Action = a
			continue
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return domain.SignalFilter{}, fmt.Errorf("unknown argument %q", raw)
		}
		if limitSet || n < 1 || n > 20 {
			return domain.SignalFilter{}, errors.New("limit must be between 1 and 20")
		}
		filter.Limit = n
		limitSet = true
	}

	return filter, nil
}

func formatSignal(s domain.Signal) string {
	line := fmt.Sprintf(
		"#%d %s %s ema15=%.2f mentions=%d",
		s.ID,
		strings.ToUpper(string(s.Action)),
		s.Timestamp.UTC().Format(time.RFC822),
		s.EMA15,
		s.Mentions,
	)
	if s.PriceClose != nil {
		line += fmt.Sprintf(" px=%.2f", *s.PriceClose)
	}
	if s.RSI14 != nil {
		line += fmt.Sprintf(" rsi=%.1f", *s.RSI14)
	}
	return line
}

func formatState(st domain.State) string {
	return fmt.Sprintf(
		"%s\nAction: %s\nSentiment ema15: %.2f\nMentions 15m: %d (baseline %.2f)\nUpdated: %s",
		st.Asset,
		strings.ToUpper(string(st.Action)),
		st.EMA15,
		st.Mentions15m,
		st.Baseline7d,
		st.UpdatedAt.UTC().Format(time.RFC822),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n\n[truncated]"
}
