package notifier

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/slack-go/slack"
)

// SlackNotifier posts events to Slack. If Channel is set, it posts to that channel. Otherwise, it posts to every
// channel the bot is a member of.
type SlackNotifier struct {
	Logger *slog.Logger
	SlackSender
	Channel  string
	channels []string
	lock     sync.Mutex
}

type SlackSender interface {
	PostMessage(string, ...slack.MsgOption) (string, string, error)
	GetConversations(*slack.GetConversationsParameters) ([]slack.Channel, string, error)
}

var _ Notifier = &SlackNotifier{}

func (s *SlackNotifier) Notify(e Event) {
	channels, err := s.getChannels()
	if err != nil {
		s.Logger.Error("notifier failed to retrieve channels", "err", err)
		return
	}
	color := "good"
	if e.Kind == PowerChanged && !e.Power {
		color = "warning"
	}
	for _, channel := range channels {
		s.Logger.Debug("notifying on slack", "channel", channel)
		_, _, err = s.SlackSender.PostMessage(channel, slack.MsgOptionAttachments(slack.Attachment{
			Color: color,
			Title: e.Title(),
			Text:  e.Text(),
		}))
		if err != nil {
			s.Logger.Error("notifier failed to post message", "err", err)
		}
	}
}

func (s *SlackNotifier) getChannels() ([]string, error) {
	if s.Channel != "" {
		return []string{s.Channel}, nil
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.channels != nil {
		return s.channels, nil
	}

	var joinedChannels []string
	var cursor string
	for {
		channels, nextCursor, err := s.SlackSender.GetConversations(&slack.GetConversationsParameters{Cursor: cursor, Limit: 100})
		if err != nil {
			return nil, fmt.Errorf("GetConversations: %w", err)
		}
		for _, channel := range channels {
			if channel.IsMember && !channel.IsArchived {
				joinedChannels = append(joinedChannels, channel.ID)
			}
		}
		if cursor = nextCursor; cursor == "" {
			break
		}
	}
	s.channels = joinedChannels
	return joinedChannels, nil
}
