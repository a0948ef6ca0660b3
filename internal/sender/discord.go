package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"hostwatch/internal/config"
	"hostwatch/internal/logger"
	"hostwatch/internal/network"
)

const (
	discordUserAgent  = "DiscordBot (hostwatch, 1.0)"
	discordTimeout    = 10 * time.Second
	maxErrorBodyBytes = 512
)

// DiscordSender posts each message as an embed to a Discord channel.
type DiscordSender struct {
	client   *http.Client
	endpoint string
	token    string
	mu       sync.RWMutex
	closed   bool
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []Field        `json:"fields"`
	Timestamp string         `json:"timestamp,omitempty"`
	Footer    *discordFooter `json:"footer,omitempty"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// NewDiscordSender creates a sender for the configured bot and channel.
func NewDiscordSender(cfg config.DiscordConfig, socksCfg config.SOCKSConfig) (*DiscordSender, error) {
	transport := &http.Transport{}

	dial, err := network.DialContext(socksCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for Discord: %w", err)
	}
	if dial != nil {
		transport.DialContext = dial
	}

	log := logger.WithComponent("discord-sender")
	log.Info().
		Str("channel", cfg.ChannelID).
		Bool("socks_proxy", dial != nil).
		Msg("DiscordSender initialized")

	return &DiscordSender{
		client: &http.Client{
			Transport: transport,
			Timeout:   discordTimeout,
		},
		endpoint: fmt.Sprintf("%s/channels/%s/messages", strings.TrimRight(cfg.APIURL, "/"), cfg.ChannelID),
		token:    cfg.Token,
	}, nil
}

// Name returns "discord".
func (s *DiscordSender) Name() string { return config.SinkDiscord }

// Send posts the message. Any non-2xx response is a delivery failure.
func (s *DiscordSender) Send(ctx context.Context, msg *Message) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{toEmbed(msg)}})
	if err != nil {
		return fmt.Errorf("failed to marshal embed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+s.token)
	req.Header.Set("User-Agent", discordUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("discord returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func toEmbed(msg *Message) discordEmbed {
	e := discordEmbed{
		Title:  msg.Title,
		Color:  msg.Color,
		Fields: msg.Fields,
	}
	if !msg.Timestamp.IsZero() {
		e.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	if msg.Hostname != "" {
		e.Footer = &discordFooter{Text: msg.Hostname}
	}
	return e
}

// Close releases idle connections.
func (s *DiscordSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.client.CloseIdleConnections()
	}
	return nil
}
