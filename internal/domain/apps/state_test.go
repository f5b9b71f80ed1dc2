package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcj/goose/internal/shared/types"
)

func metaWithConnect(domains ...string) *types.ResourceMeta {
	return &types.ResourceMeta{CSP: &types.CSPDomains{ConnectDomains: domains}}
}

func readyState(t *testing.T) AppState {
	t.Helper()

	s := NewAppState("")
	s = Reduce(s, Action{Kind: ActionFetchResource})
	s = Reduce(s, Action{Kind: ActionResourceLoaded, HTML: "<div/>", Meta: metaWithConnect("api.example.com")})
	s = Reduce(s, Action{Kind: ActionSandboxReady, SandboxURL: "http://127.0.0.1:8000/mcp-app-proxy?secret=s", SandboxCSP: "default-src 'none'"})
	require.Equal(t, PhaseReady, s.Phase)
	return s
}

func TestReduceHappyPath(t *testing.T) {
	s := NewAppState("")
	assert.Equal(t, PhaseIdle, s.Phase)

	s = Reduce(s, Action{Kind: ActionFetchResource})
	assert.Equal(t, PhaseLoadingResource, s.Phase)

	s = Reduce(s, Action{Kind: ActionResourceLoaded, HTML: "<div/>"})
	assert.Equal(t, PhaseLoadingSandbox, s.Phase)
	assert.Equal(t, "<div/>", s.HTML)

	s = Reduce(s, Action{Kind: ActionSandboxReady, SandboxURL: "http://h/p", SandboxCSP: "csp"})
	assert.Equal(t, PhaseReady, s.Phase)
	assert.Equal(t, "http://h/p", s.SandboxURL)
	assert.Equal(t, "csp", s.SandboxCSP)
}

func TestFetchResourceIdempotentWhenReady(t *testing.T) {
	ready := readyState(t)

	after := Reduce(ready, Action{Kind: ActionFetchResource})
	assert.Equal(t, ready, after, "fetch while ready must leave state unchanged")
}

func TestHTMLMonotonicity(t *testing.T) {
	// Every reachable action applied to every html-carrying state must
	// preserve a non-empty html.
	actions := []Action{
		{Kind: ActionFetchResource},
		{Kind: ActionResourceLoaded, HTML: ""},
		{Kind: ActionResourceLoaded, HTML: "<p/>"},
		{Kind: ActionResourceFailed, Message: "boom"},
		{Kind: ActionSandboxReady, SandboxURL: "u", SandboxCSP: "c"},
		{Kind: ActionSandboxFailed, Message: "boom"},
		{Kind: ActionRenderFailed, Message: "boom"},
	}

	seeds := []AppState{
		NewAppState("<seed/>"),
		Reduce(NewAppState(""), Action{Kind: ActionFetchResource}),
		readyState(t),
	}
	// Advance the seeded state so html is present in a loading phase too
	seeds = append(seeds, Reduce(seeds[0], Action{Kind: ActionFetchResource}))

	for _, seed := range seeds {
		if seed.HTML == "" {
			seed = Reduce(seed, Action{Kind: ActionResourceLoaded, HTML: "<div/>"})
		}
		require.NotEmpty(t, seed.HTML)

		// Depth-2 walk over all action pairs
		for _, a := range actions {
			s1 := Reduce(seed, a)
			assert.NotEmpty(t, s1.HTML, "action %s dropped html", a.Kind)
			for _, b := range actions {
				s2 := Reduce(s1, b)
				assert.NotEmpty(t, s2.HTML, "actions %s,%s dropped html", a.Kind, b.Kind)
			}
		}
	}
}

func TestResourceLoadedEmptyHTMLStaysLoading(t *testing.T) {
	s := Reduce(NewAppState(""), Action{Kind: ActionFetchResource})

	after := Reduce(s, Action{Kind: ActionResourceLoaded, HTML: "", Meta: metaWithConnect("a.com")})
	assert.Equal(t, PhaseLoadingResource, after.Phase, "empty html must not advance")
	assert.NotNil(t, after.Meta, "metadata still lands")
}

func TestResourceLoadedRefreshesReadyInPlace(t *testing.T) {
	ready := readyState(t)

	after := Reduce(ready, Action{Kind: ActionResourceLoaded, HTML: "<main/>", Meta: metaWithConnect("new.example.com")})
	assert.Equal(t, PhaseReady, after.Phase)
	assert.Equal(t, "<main/>", after.HTML)
	assert.Equal(t, ready.SandboxURL, after.SandboxURL, "live sandbox must not change")
	assert.Equal(t, ready.SandboxCSP, after.SandboxCSP)
}

func TestResourceFailedDegradesWithCachedHTML(t *testing.T) {
	s := NewAppState("<seed/>")
	s = Reduce(s, Action{Kind: ActionFetchResource})

	after := Reduce(s, Action{Kind: ActionResourceFailed, Message: "network down"})
	assert.Equal(t, PhaseLoadingSandbox, after.Phase, "stale content beats an error screen")
	assert.Equal(t, "<seed/>", after.HTML)
	assert.Empty(t, after.Message)
}

func TestResourceFailedTerminalWithoutHTML(t *testing.T) {
	s := Reduce(NewAppState(""), Action{Kind: ActionFetchResource})

	after := Reduce(s, Action{Kind: ActionResourceFailed, Message: "network down"})
	assert.Equal(t, PhaseError, after.Phase)
	assert.Equal(t, "network down", after.Message)
}

func TestSandboxImmutableOnceReady(t *testing.T) {
	ready := readyState(t)

	after := Reduce(ready, Action{Kind: ActionSandboxReady, SandboxURL: "http://other/p", SandboxCSP: "other"})
	assert.Equal(t, ready.SandboxURL, after.SandboxURL)
	assert.Equal(t, ready.SandboxCSP, after.SandboxCSP)

	after = Reduce(ready, Action{Kind: ActionSandboxFailed, Message: "late failure"})
	assert.Equal(t, PhaseReady, after.Phase, "a ready instance ignores late sandbox failures")
}

func TestSandboxReadyRequiresContent(t *testing.T) {
	s := Reduce(NewAppState(""), Action{Kind: ActionFetchResource})

	after := Reduce(s, Action{Kind: ActionSandboxReady, SandboxURL: "u", SandboxCSP: "c"})
	assert.Equal(t, PhaseLoadingResource, after.Phase, "ready without html must be unrepresentable")
	assert.Empty(t, after.SandboxURL)
}

func TestSandboxFailedIsTerminal(t *testing.T) {
	s := NewAppState("")
	s = Reduce(s, Action{Kind: ActionFetchResource})
	s = Reduce(s, Action{Kind: ActionResourceLoaded, HTML: "<div/>"})

	after := Reduce(s, Action{Kind: ActionSandboxFailed, Message: "missing proxy secret"})
	assert.Equal(t, PhaseError, after.Phase)
	assert.Equal(t, "missing proxy secret", after.Message)
	assert.Equal(t, "<div/>", after.HTML, "html survives into the error state")
}

func TestRenderFailedAlwaysTerminal(t *testing.T) {
	for _, seed := range []AppState{
		NewAppState(""),
		NewAppState("<seed/>"),
		readyState(t),
	} {
		after := Reduce(seed, Action{Kind: ActionRenderFailed, Message: "codec fault"})
		assert.Equal(t, PhaseError, after.Phase)
		assert.Equal(t, "codec fault", after.Message)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, NewAppState("").Terminal())
	assert.True(t, readyState(t).Terminal())

	errored := Reduce(Reduce(NewAppState(""), Action{Kind: ActionFetchResource}), Action{Kind: ActionResourceFailed, Message: "x"})
	assert.True(t, errored.Terminal())
}
