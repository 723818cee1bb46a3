package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://api.openai.com"
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 1024
)

// OpenAIConfig configures the chat-completions client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	RPS        float64
	Burst      int
	HTTPClient *http.Client
}

// OpenAI resolves text through an OpenAI compatible chat-completions API.
type OpenAI struct {
	cfg     OpenAIConfig
	http    *http.Client
	limiter *rate.Limiter
	players PlayerCatalog
	log     *slog.Logger
}

var _ Resolver = (*OpenAI)(nil)

func NewOpenAI(cfg OpenAIConfig, players PlayerCatalog, log *slog.Logger) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if log == nil {
		log = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &OpenAI{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		players: players,
		log:     log.With(slog.String("component", "resolver_openai")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *OpenAI) complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("chat completion status %d: %s", resp.StatusCode, msg)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// stripFences removes a surrounding markdown code block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}

func (c *OpenAI) playerListJSON() string {
	names, _ := json.MarshalIndent(c.players.PlayerNames(), "", "  ")
	return string(names)
}

type betPayload struct {
	EntryFee json.RawMessage `json:"entry_fee"`
	Players  []LineHint      `json:"players"`
}

func (c *OpenAI) ResolveBet(ctx context.Context, text string) (*BetResolution, error) {
	reply, err := c.complete(ctx, betSystemPrompt, fmt.Sprintf(betPrompt, text))
	if err != nil {
		return nil, err
	}

	var payload betPayload
	if err := json.Unmarshal([]byte(stripFences(reply)), &payload); err != nil {
		return nil, fmt.Errorf("decode bet json: %w", err)
	}

	res := &BetResolution{EntryFee: decodeAmount(payload.EntryFee)}
	for _, hint := range payload.Players {
		name := strings.TrimSpace(hint.Name)
		if name == "" {
			continue
		}
		canonical, ok := c.players.CanonicalPlayer(name)
		if !ok {
			res.InvalidPlayerTokens = append(res.InvalidPlayerTokens, name)
			continue
		}
		hint.Name = canonical
		hint.Side = strings.ToLower(strings.TrimSpace(hint.Side))
		res.Lines = append(res.Lines, hint)
	}

	c.log.DebugContext(ctx, "bet resolved",
		slog.Int("lines", len(res.Lines)),
		slog.Int("invalid_players", len(res.InvalidPlayerTokens)),
	)

	return res, nil
}

func (c *OpenAI) ResolvePlayer(ctx context.Context, text string) (string, error) {
	reply, err := c.complete(ctx, "", fmt.Sprintf(playerPrompt, c.playerListJSON(), text))
	if err != nil {
		return "", err
	}

	name := strings.Trim(stripFences(reply), "\"' \n")
	if name == "" {
		return "", nil
	}

	// The model may answer with a name outside the dataset; only exact dataset names count.
	canonical, ok := c.players.CanonicalPlayer(name)
	if !ok {
		return "", nil
	}
	return canonical, nil
}

func (c *OpenAI) ResolveTeam(ctx context.Context, text string) (*TeamRoster, error) {
	code, ok := TeamCode(text)
	if !ok {
		reply, err := c.complete(ctx, "", fmt.Sprintf(teamPrompt, text))
		if err != nil {
			return nil, err
		}
		code = strings.ToUpper(strings.Trim(stripFences(reply), "\"' \n"))
		if len(code) != 3 || !IsTeamCode(code) {
			return nil, nil
		}
	}

	reply, err := c.complete(ctx, "", fmt.Sprintf(rosterPrompt, code, c.playerListJSON(), code))
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal([]byte(stripFences(reply)), &names); err != nil {
		return nil, fmt.Errorf("decode roster json: %w", err)
	}

	roster := &TeamRoster{Team: code}
	for _, n := range names {
		if canonical, ok := c.players.CanonicalPlayer(n); ok {
			roster.Players = append(roster.Players, canonical)
		}
	}
	if len(roster.Players) == 0 {
		return nil, nil
	}

	return roster, nil
}

func (c *OpenAI) ClassifyIsSearch(ctx context.Context, text string) (bool, error) {
	reply, err := c.complete(ctx, "", fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.Trim(reply, "\"'. \n"), "yes"), nil
}

func decodeAmount(raw json.RawMessage) decimal.NullDecimal {
	var amount decimal.NullDecimal
	if len(raw) == 0 {
		return amount
	}
	if err := json.Unmarshal(raw, &amount); err != nil {
		return decimal.NullDecimal{}
	}
	return amount
}
