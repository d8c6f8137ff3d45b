package httpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/calchat/pkg/conversation"
)

// stubChatter answers with a canned reply and records its inputs
type stubChatter struct {
	mu      sync.Mutex
	reply   string
	err     error
	emails  []string
	history []conversation.History
}

func (s *stubChatter) Chat(_ context.Context, msg string, history conversation.History, email string) (string, conversation.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, email)
	s.history = append(s.history, history)
	if s.err != nil {
		return "", nil, s.err
	}
	return s.reply, history.With(conversation.User(msg), conversation.Assistant(s.reply)), nil
}

func newTestServer(t *testing.T, chat Chatter) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(chat, WithVersion("9.9.9")).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestChatEndpoint(t *testing.T) {
	stub := &stubChatter{reply: "You have no meetings."}
	srv := newTestServer(t, stub)

	body := `{"message":"what's on?","conversation_history":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}],"user_email":"ann@example.com"}`
	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var got ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "You have no meetings.", got.Response)
	assert.Equal(t, conversation.History{
		conversation.User("hi"),
		conversation.Assistant("hello"),
		conversation.User("what's on?"),
		conversation.Assistant("You have no meetings."),
	}, got.ConversationHistory)
	assert.Equal(t, []string{"ann@example.com"}, stub.emails)
}

func TestChatEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		chatErr    error
		wantStatus int
		wantDetail string
	}{
		{"planner failure", http.MethodPost, `{"message":"hi"}`, errors.New("connection refused"),
			http.StatusInternalServerError, "Error processing chat: connection refused"},
		{"malformed json", http.MethodPost, `{"message":`, nil, http.StatusBadRequest, "Invalid request"},
		{"empty message", http.MethodPost, `{"message":"  "}`, nil, http.StatusBadRequest, "message is required"},
		{"wrong method", http.MethodGet, ``, nil, http.StatusMethodNotAllowed, "Method Not Allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubChatter{reply: "x", err: tt.chatErr})

			req, err := http.NewRequest(tt.method, srv.URL+"/chat", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var got ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Contains(t, got.Detail, tt.wantDetail)
		})
	}
}

func TestStaticEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubChatter{})

	tests := []struct {
		method string
		path   string
		status int
		want   string
	}{
		{http.MethodGet, "/health", http.StatusOK, `{"status":"healthy"}`},
		{http.MethodGet, "/", http.StatusOK, `{"message":"Cal.com Chatbot API","version":"9.9.9","endpoints":{"chat":"/chat","health":"/health"}}`},
		{http.MethodPost, "/reset", http.StatusOK, `{"message":"To reset conversation, simply stop sending conversation_history in your requests"}`},
		{http.MethodGet, "/nope", http.StatusNotFound, `{"detail":"Not Found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var buf bytes.Buffer
			_, _ = buf.ReadFrom(resp.Body)
			assert.JSONEq(t, tt.want, buf.String())
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &stubChatter{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8501")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewServer(&stubChatter{}).Handler()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/unknown/path", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `calchat_http_requests_total{method="GET",path="/health",status="200"}`)
	assert.Contains(t, body, `calchat_http_requests_total{method="GET",path="other",status="404"}`)
}

func TestWebSocketChat(t *testing.T) {
	stub := &stubChatter{reply: "Booked!"}
	srv := newTestServer(t, stub)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ChatRequest{Message: "book it", UserEmail: "ann@example.com"}))
	var got ChatResponse
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "Booked!", got.Response)
	assert.Len(t, got.ConversationHistory, 2)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	var bad ErrorResponse
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Contains(t, bad.Detail, "Invalid request")

	require.NoError(t, conn.WriteJSON(ChatRequest{Message: "again"}))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Len(t, got.ConversationHistory, 2, "server keeps no history between frames")
}

func TestClientRoundTrip(t *testing.T) {
	stub := &stubChatter{reply: "Sure."}
	srv := newTestServer(t, stub)
	client := NewClient(srv.URL+"/", 0)

	require.NoError(t, client.Health(context.Background()))

	text, history, err := client.Chat(context.Background(), "hello", nil, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Sure.", text)
	require.Len(t, history, 2)

	_, _, err = client.Chat(context.Background(), "again", history, "")
	require.NoError(t, err)
	assert.Len(t, stub.history[1], 2)
}

func TestClientSurfacesServerError(t *testing.T) {
	srv := newTestServer(t, &stubChatter{err: errors.New("maximum planning rounds exceeded")})
	client := NewClient(srv.URL, 0)

	_, _, err := client.Chat(context.Background(), "loop", nil, "")
	require.Error(t, err)
	assert.Equal(t, "server error (500): Error processing chat: maximum planning rounds exceeded", err.Error())
}
