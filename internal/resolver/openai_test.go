package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/strike-bot/internal/testutil"
)

type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	prompts []string
	status  int
}

func (f *fakeLLM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var req chatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if len(req.Messages) > 0 {
		f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	}

	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
		return
	}

	reply := ""
	if len(f.replies) > 0 {
		reply, f.replies = f.replies[0], f.replies[1:]
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
	})
}

func newTestOpenAI(t *testing.T, llm *fakeLLM) *OpenAI {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		llm.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	return NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"}, testutil.SampleDataset(), testutil.Logger())
}

func TestOpenAIResolveBet(t *testing.T) {
	llm := &fakeLLM{replies: []string{"```json\n" + `{
		"entry_fee": 20,
		"players": [
			{"name": "lebron james", "bet_type": "Over", "line_value": 25.5, "stat_type": "points"},
			{"name": "Gronk", "bet_type": "over", "line_value": 10, "stat_type": "points"},
			{"name": null, "bet_type": "under", "line_value": null, "stat_type": null}
		]
	}` + "\n```"}}
	c := newTestOpenAI(t, llm)

	res, err := c.ResolveBet(context.Background(), "$20 on lebron over 25.5 points and gronk over 10")
	require.NoError(t, err)

	require.True(t, res.EntryFee.Valid)
	assert.True(t, res.EntryFee.Decimal.Equal(testutil.Dec("20")))
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "LeBron James", res.Lines[0].Name)
	assert.Equal(t, "over", res.Lines[0].Side)
	assert.True(t, res.Lines[0].LineValue.Decimal.Equal(testutil.Dec("25.5")))
	assert.Equal(t, []string{"Gronk"}, res.InvalidPlayerTokens)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "$20 on lebron over 25.5 points")
}

func TestOpenAIResolveBet_NullFee(t *testing.T) {
	llm := &fakeLLM{replies: []string{`{"entry_fee": null, "players": [{"name": "Jayson Tatum", "bet_type": null, "line_value": null, "stat_type": "points"}]}`}}
	c := newTestOpenAI(t, llm)

	res, err := c.ResolveBet(context.Background(), "tatum points")
	require.NoError(t, err)
	assert.False(t, res.EntryFee.Valid)
	require.Len(t, res.Lines, 1)
	assert.False(t, res.Lines[0].LineValue.Valid)
}

func TestOpenAIResolveBet_BadJSON(t *testing.T) {
	c := newTestOpenAI(t, &fakeLLM{replies: []string{"sorry, I can't do that"}})

	_, err := c.ResolveBet(context.Background(), "anything")
	assert.Error(t, err)
}

func TestOpenAIResolvePlayer(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"dataset name", `"Stephen Curry"`, "Stephen Curry"},
		{"hallucinated", "Michael Jordan", ""},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			c := newTestOpenAI(t, &fakeLLM{replies: []string{tc.reply}})
			got, err := c.ResolvePlayer(context.Background(), "chef curry")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOpenAIResolveTeam(t *testing.T) {
	t.Run("alias skips code lookup", func(t *testing.T) {
		llm := &fakeLLM{replies: []string{`["Stephen Curry", "Draymond Green"]`}}
		c := newTestOpenAI(t, llm)

		roster, err := c.ResolveTeam(context.Background(), "warriors lines")
		require.NoError(t, err)
		require.NotNil(t, roster)
		assert.Equal(t, "GSW", roster.Team)
		assert.Equal(t, []string{"Stephen Curry"}, roster.Players)
		require.Len(t, llm.prompts, 1)
		assert.Contains(t, llm.prompts[0], "GSW")
	})

	t.Run("llm code", func(t *testing.T) {
		llm := &fakeLLM{replies: []string{"lal", `["LeBron James", "Anthony Davis"]`}}
		c := newTestOpenAI(t, llm)

		roster, err := c.ResolveTeam(context.Background(), "the purple and gold")
		require.NoError(t, err)
		require.NotNil(t, roster)
		assert.Equal(t, "LAL", roster.Team)
		assert.Equal(t, []string{"LeBron James", "Anthony Davis"}, roster.Players)
	})

	t.Run("not a team", func(t *testing.T) {
		c := newTestOpenAI(t, &fakeLLM{replies: []string{""}})

		roster, err := c.ResolveTeam(context.Background(), "points leaders")
		require.NoError(t, err)
		assert.Nil(t, roster)
	})
}

func TestOpenAIClassifyIsSearch(t *testing.T) {
	c := newTestOpenAI(t, &fakeLLM{replies: []string{"Yes.", "no"}})

	got, err := c.ClassifyIsSearch(context.Background(), "lakers lines")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = c.ClassifyIsSearch(context.Background(), "lebron over 25.5")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestOpenAIErrorStatus(t *testing.T) {
	c := newTestOpenAI(t, &fakeLLM{status: http.StatusServiceUnavailable})

	_, err := c.ClassifyIsSearch(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "upstream down"))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `[1]`, stripFences("```[1]```"))
	assert.Equal(t, "plain", stripFences("  plain "))
}

func TestDecodeAmount(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
		want  string
	}{
		{raw: ``},
		{raw: `null`},
		{raw: `20`, valid: true, want: "20"},
		{raw: `"12.50"`, valid: true, want: "12.5"},
		{raw: `"twenty"`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			got := decodeAmount(json.RawMessage(tc.raw))
			assert.Equal(t, tc.valid, got.Valid)
			if tc.valid {
				assert.True(t, got.Decimal.Equal(testutil.Dec(tc.want)))
			}
		})
	}
}
