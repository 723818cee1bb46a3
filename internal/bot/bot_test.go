package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/strike-bot/internal/betting"
	"github.com/Proton-105/strike-bot/internal/bot/handlers"
	"github.com/Proton-105/strike-bot/internal/i18n"
	"github.com/Proton-105/strike-bot/internal/idempotency"
	"github.com/Proton-105/strike-bot/internal/resolver"
	"github.com/Proton-105/strike-bot/internal/search"
	"github.com/Proton-105/strike-bot/internal/settlement"
	"github.com/Proton-105/strike-bot/internal/state"
	"github.com/Proton-105/strike-bot/internal/testutil"
	"github.com/Proton-105/strike-bot/pkg/config"
)

type fakeContext struct {
	telebot.Context

	sender    *telebot.User
	message   *telebot.Message
	callback  *telebot.Callback
	sent      []string
	responded int
	values    map[string]interface{}
}

func newText(userID int64, msgID int, text string) *fakeContext {
	return &fakeContext{
		sender:  &telebot.User{ID: userID},
		message: &telebot.Message{ID: msgID, Chat: &telebot.Chat{ID: userID}, Text: text},
	}
}

func newCallback(userID int64, id, data string) *fakeContext {
	return &fakeContext{
		sender:   &telebot.User{ID: userID},
		callback: &telebot.Callback{ID: id, Data: data},
	}
}

func (c *fakeContext) Sender() *telebot.User       { return c.sender }
func (c *fakeContext) Message() *telebot.Message   { return c.message }
func (c *fakeContext) Callback() *telebot.Callback { return c.callback }

func (c *fakeContext) Text() string {
	if c.message == nil {
		return ""
	}
	return c.message.Text
}

func (c *fakeContext) Send(what interface{}, _ ...interface{}) error {
	c.sent = append(c.sent, what.(string))
	return nil
}

func (c *fakeContext) Respond(...*telebot.CallbackResponse) error {
	c.responded++
	return nil
}

func (c *fakeContext) Get(key string) interface{} { return c.values[key] }

func (c *fakeContext) Set(key string, v interface{}) {
	if c.values == nil {
		c.values = map[string]interface{}{}
	}
	c.values[key] = v
}

func (c *fakeContext) all() string { return strings.Join(c.sent, "\n") }

func newTestBot(t *testing.T) (*Bot, state.Store) {
	t.Helper()

	ds := testutil.SampleDataset()
	res := resolver.NewLocal(ds)
	tr := i18n.Default()
	log := testutil.Logger()
	store := state.NewStore(state.NewMemoryStorage(), nil, log)

	svc := handlers.NewService(handlers.Deps{
		Store:      store,
		Engine:     betting.NewEngine(ds, res, tr, log),
		Search:     search.NewService(ds, res, log),
		Submitter:  settlement.NewLogSubmitter(log),
		Resolver:   res,
		Translator: tr,
		Log:        log,
	})

	b := newBot(nil, config.Config{}, log, Deps{
		Service:     svc,
		Store:       store,
		Translator:  tr,
		Idempotency: idempotency.NewManager(idempotency.NewMemoryStore(), log),
	})
	return b, store
}

func TestRouter_CommandsAndKeywords(t *testing.T) {
	b, _ := newTestBot(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "start command", text: "/start", want: "Welcome to StrikeBot"},
		{name: "command with bot name", text: "/start@strike_bot", want: "Welcome to StrikeBot"},
		{name: "menu keyword", text: "  Place   Bets ", want: "Betting mode"},
		{name: "cart keyword", text: "view cart", want: "Your cart is empty"},
		{name: "search with args", text: "/search Lakers", want: "Lines for LAL"},
	}

	for i, tc := range tests {
		tc := tc
		i := i
		t.Run(tc.name, func(t *testing.T) {
			c := newText(int64(100+i), 1, tc.text)
			require.NoError(t, b.router.Route(c))
			assert.Contains(t, c.all(), tc.want)
		})
	}
}

func TestRouter_DispatchesByMode(t *testing.T) {
	b, store := newTestBot(t)
	const user int64 = 7

	require.NoError(t, b.router.Route(newText(user, 1, "/bet")))

	c := newText(user, 2, "LeBron over 25.5 points")
	require.NoError(t, b.router.Route(c))
	assert.Contains(t, c.all(), "Added to cart")

	st, err := store.Load(handlers.RequestContext(c), user)
	require.NoError(t, err)
	assert.Equal(t, state.ModeBetting, st.CurrentMode())
	assert.Len(t, st.Session.Cart.Lines, 1)

	cb := newCallback(user, "cb1", "cart:clear")
	require.NoError(t, b.router.Route(cb))
	assert.Contains(t, cb.all(), "Cart cleared.")
	assert.Equal(t, 1, cb.responded)
}

func TestRouter_RedeliveredMessageRunsOnce(t *testing.T) {
	b, store := newTestBot(t)
	const user int64 = 8

	require.NoError(t, b.router.Route(newText(user, 1, "/bet")))

	first := newText(user, 2, "LeBron over 25.5 points")
	again := newText(user, 2, "LeBron over 25.5 points")
	require.NoError(t, b.router.Route(first))
	require.NoError(t, b.router.Route(again))

	assert.NotEmpty(t, first.sent)
	assert.Empty(t, again.sent)

	st, err := store.Load(handlers.RequestContext(first), user)
	require.NoError(t, err)
	assert.Len(t, st.Session.Cart.Lines, 1)
}

func TestRouter_UnknownCallback(t *testing.T) {
	b, _ := newTestBot(t)

	tests := []string{"nope:x", ""}
	for _, data := range tests {
		c := newCallback(9, "id-"+data, data)
		require.NoError(t, b.router.Route(c))
		assert.Empty(t, c.sent)
		assert.Equal(t, 1, c.responded)
	}
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	b, _ := newTestBot(t)
	b.router.RegisterCommand("/boom", func(telebot.Context) error { panic("boom") })

	c := newText(10, 1, "/boom")
	require.NoError(t, b.router.Route(c))
	assert.Equal(t, []string{i18n.Default().T("errors.generic")}, c.sent)
}

func TestCommandName(t *testing.T) {
	tests := map[string]string{
		"/start":                "/start",
		"/Bet LeBron over 25.5": "/bet",
		"/cart@strike_bot":      "/cart",
		"/search\nLakers":       "/search",
	}

	for in, want := range tests {
		assert.Equal(t, want, commandName(in), in)
	}
}
