package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/torisu27/jeobot/internal/config"
	"github.com/torisu27/jeobot/internal/db"
	"github.com/torisu27/jeobot/internal/jeopardy"
	"github.com/torisu27/jeobot/internal/ledger"
)

type Bot struct {
	session *discordgo.Session
	router  *jeopardy.Router
	manager *jeopardy.Manager
	ledger  *ledger.Service
	cfg     *config.Config
	log     *zap.SugaredLogger
}

func New(cfg *config.Config, database *db.DB, ldg *ledger.Service, log *zap.SugaredLogger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	router := jeopardy.NewRouter(log)
	manager := jeopardy.NewManager(
		&sessionMessenger{session: session},
		router,
		ldg,
		&clueSource{db: database},
		log,
		jeopardy.DefaultTimings(),
		cfg.CurrencyIcon,
	)

	bot := &Bot{
		session: session,
		router:  router,
		manager: manager,
		ledger:  ldg,
		cfg:     cfg,
		log:     log,
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onMessageCreate)

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	return bot, nil
}

// Manager exposes the game registry, used by the web API for status reads.
func (b *Bot) Manager() *jeopardy.Manager {
	return b.manager
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.log.Info("Discord bot is running")
	return nil
}

// Stop terminates every live game (settling their scores) and closes the
// gateway session.
func (b *Bot) Stop() error {
	b.manager.StopAll(context.Background())
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.log.Infow("connected", "user", event.User.Username)
}

// sessionMessenger adapts the discord session to the engine's Messenger.
type sessionMessenger struct {
	session *discordgo.Session
}

func (m *sessionMessenger) Send(channelID, content string) (string, error) {
	msg, err := m.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (m *sessionMessenger) OpenPrivateChannel(userID string) (string, error) {
	ch, err := m.session.UserChannelCreate(userID)
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}
