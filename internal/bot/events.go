package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/torisu27/jeobot/internal/jeopardy"
)

// onMessageCreate feeds every inbound message into the engine's router and
// then checks for a prefix command. The router fan-out is what the live
// games listen on, so it sees bot-authored messages too; the engine filters
// those itself.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.router.Dispatch(jeopardy.Message{
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: displayName(m),
		Bot:        m.Author.Bot,
		Content:    m.Content,
	})

	if m.Author.Bot {
		return
	}

	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, b.cfg.CommandPrefix) || len(content) <= len(b.cfg.CommandPrefix) {
		return
	}

	command := strings.Fields(strings.ToLower(content[len(b.cfg.CommandPrefix):]))[0]
	switch command {
	case "jeopardy", "j":
		b.handleStart(s, m)
	case "jstop":
		b.handleStop(s, m)
	case "jv", "jvote":
		b.handleVote(s, m)
	case "jlb":
		b.handleLeaderboard(s, m)
	case "balance", "cash":
		b.handleBalance(s, m)
	}
}

func (b *Bot) handleStart(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" {
		b.reply(m.ChannelID, "Jeopardy! can only be played in a server channel.")
		return
	}

	s.ChannelTyping(m.ChannelID)
	_, err := b.manager.Start(context.Background(), m.ChannelID, m.GuildID)
	switch err {
	case nil:
	case jeopardy.ErrAlreadyInProgress:
		b.reply(m.ChannelID, "Game already in progress in current channel.")
	default:
		b.log.Warnw("failed to start jeopardy game", "channel", m.ChannelID, "error", err)
		b.reply(m.ChannelID, "Unable to start game, please try again.")
	}
}

func (b *Bot) handleStop(s *discordgo.Session, m *discordgo.MessageCreate) {
	if err := b.manager.Stop(m.ChannelID); err != nil {
		b.reply(m.ChannelID, "No active Jeopardy! game in this channel.")
	}
}

func (b *Bot) handleVote(s *discordgo.Session, m *discordgo.MessageCreate) {
	result, err := b.manager.Vote(m.ChannelID, m.Author.ID)
	if err != nil {
		b.reply(m.ChannelID, "No active Jeopardy! game in this channel.")
		return
	}

	switch result {
	case jeopardy.VoteOK:
		b.reply(m.ChannelID, displayName(m)+" voted to skip this clue.")
	case jeopardy.VoteTooEarly:
		b.reply(m.ChannelID, "You cannot vote to skip yet.")
	case jeopardy.VoteNotEligible:
		b.reply(m.ChannelID, "You need a score to vote to skip.")
	case jeopardy.VoteAlreadyVoted:
		b.reply(m.ChannelID, "You already voted to skip this clue.")
	}
}

func (b *Bot) handleLeaderboard(s *discordgo.Session, m *discordgo.MessageCreate) {
	board, err := b.manager.Leaderboard(m.ChannelID)
	if err != nil {
		b.reply(m.ChannelID, "No active Jeopardy! game in this channel.")
		return
	}
	b.reply(m.ChannelID, "**Current Winnings**\n"+board)
}

func (b *Bot) handleBalance(s *discordgo.Session, m *discordgo.MessageCreate) {
	amount, err := b.ledger.Balance(context.Background(), m.Author.ID)
	if err != nil {
		b.log.Warnw("failed to read balance", "user", m.Author.ID, "error", err)
		b.reply(m.ChannelID, "Unable to look up your balance right now.")
		return
	}
	b.reply(m.ChannelID, displayName(m)+" has `"+formatAmount(amount)+"` "+b.cfg.CurrencyIcon)
}

func (b *Bot) reply(channelID, content string) {
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		b.log.Warnw("failed to send reply", "channel", channelID, "error", err)
	}
}

func formatAmount(amount int64) string {
	return strconv.FormatInt(amount, 10)
}

func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
