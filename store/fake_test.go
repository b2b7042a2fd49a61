package store

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/storage"
)

type handler func(r api.Request) (any, error)

type call struct {
	Method string
	Path   string
	Token  string
	Body   any
}

// fakeAPI stands in for *api.Client. Routes are keyed "METHOD /path".
type fakeAPI struct {
	mu     sync.Mutex
	token  string
	routes map[string]handler
	calls  []call
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{routes: make(map[string]handler)}
}

func (f *fakeAPI) on(method, path string, h handler) {
	f.mu.Lock()
	f.routes[method+" "+path] = h
	f.mu.Unlock()
}

func (f *fakeAPI) reply(method, path string, v any) {
	f.on(method, path, func(api.Request) (any, error) { return v, nil })
}

func (f *fakeAPI) Do(ctx context.Context, r api.Request, out any) error {
	f.mu.Lock()
	token := f.token
	h := f.routes[r.Method+" "+r.Path]
	f.calls = append(f.calls, call{Method: r.Method, Path: r.Path, Token: token, Body: r.Body})
	f.mu.Unlock()

	if r.Auth && token == "" {
		return &api.Error{Kind: api.KindUnauthorized, Message: "Not authenticated"}
	}
	if h == nil {
		return &api.Error{Kind: api.KindDomain, Status: http.StatusNotFound, Message: "Not found"}
	}
	res, err := h(r)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &api.Error{Kind: api.KindNetwork, Message: "Request cancelled", Err: err}
	}
	if out == nil || res == nil {
		return nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeAPI) ClearToken() { f.SetToken("") }

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) callsTo(method, path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	api      *fakeAPI
	mem      *storage.Memory
	sessions *storage.SessionStore
	store    *Store
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{api: newFakeAPI(), mem: storage.NewMemory()}
	f.sessions = storage.NewSessionStore(f.mem)
	f.store = New(f.api, f.sessions, opts...)
	return f
}

// login signs in as a user with the given id and role.
func (f *fixture) login(t *testing.T, id, role string) {
	t.Helper()
	f.api.reply(http.MethodPost, "/auth/login", map[string]any{
		"_id": id, "name": "User " + id, "email": id + "@example.com", "role": role, "token": "tok-" + id,
	})
	_, err := f.store.Login(context.Background(), loginCreds(id))
	require.NoError(t, err)
}
