package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging/backend/internal/config"
	"messaging/backend/internal/domain"
	"messaging/backend/internal/health"
	"messaging/backend/internal/monitoring"
	"messaging/backend/internal/service"
	"messaging/backend/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	metrics *monitoring.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	metrics := monitoring.NewMetrics()
	cfg := &config.Config{
		Server: config.ServerConfig{BodyLimit: 64 * 1024},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	router := NewRouter(RouterDependencies{
		Config:         cfg,
		UserService:    service.NewUserService(store, nil),
		MessageService: service.NewMessageService(store, nil),
		Metrics:        metrics,
		Health:         health.NewHealthChecker(store, nil),
	})
	return &testServer{router: router, metrics: metrics}
}

// envelope 测试用的响应结构，data 延迟解析
type envelope struct {
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	ErrCode string          `json:"errCode"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func (s *testServer) createUser(t *testing.T, email, name string) domain.User {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/v1/users", map[string]string{"email": email, "name": name})
	require.Equal(t, http.StatusCreated, status, env.Msg)
	return decode[domain.User](t, env.Data)
}

func TestRouter_Users(t *testing.T) {
	s := newTestServer(t)

	alice := s.createUser(t, "  Alice@Example.com ", "Alice")
	assert.Equal(t, "alice@example.com", alice.Email)
	assert.NotEmpty(t, alice.ID)

	status, env := s.do(t, http.MethodPost, "/v1/users", map[string]string{"email": "alice@example.com", "name": "Again"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email_exists", env.ErrCode)

	status, env = s.do(t, http.MethodPost, "/v1/users", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing_fields", env.ErrCode)

	status, env = s.do(t, http.MethodPost, "/v1/users", map[string]string{"email": "not-an-email", "name": "Bob"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_email", env.ErrCode)

	status, env = s.do(t, http.MethodPost, "/v1/users", "{bad json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_json", env.ErrCode)

	status, env = s.do(t, http.MethodGet, "/v1/users/"+alice.ID, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice.ID, decode[domain.User](t, env.Data).ID)

	status, env = s.do(t, http.MethodGet, "/v1/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "user_not_found", env.ErrCode)

	status, env = s.do(t, http.MethodGet, "/v1/users", nil)
	assert.Equal(t, http.StatusOK, status)
	list := decode[ListData[domain.User]](t, env.Data)
	assert.Equal(t, 1, list.Count)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.UsersRegistered))
}

func TestRouter_SendAndRead(t *testing.T) {
	s := newTestServer(t)
	alice := s.createUser(t, "alice@example.com", "Alice")
	bob := s.createUser(t, "bob@example.com", "Bob")
	carol := s.createUser(t, "carol@example.com", "Carol")

	status, env := s.do(t, http.MethodPost, "/v1/messages", map[string]interface{}{
		"senderId":     alice.ID,
		"recipientIds": []string{bob.ID, carol.ID, bob.ID, alice.ID},
		"subject":      "Hello",
		"content":      "hi there",
	})
	require.Equal(t, http.StatusCreated, status, env.Msg)
	sent := decode[service.SendResult](t, env.Data)
	assert.Equal(t, []string{bob.ID, carol.ID}, sent.Recipients)

	// 发件人视图
	status, env = s.do(t, http.MethodGet, "/v1/messages/"+sent.Message.ID, nil)
	require.Equal(t, http.StatusOK, status)
	view := decode[domain.MessageView](t, env.Data)
	assert.Equal(t, "Alice", view.Sender.Name)
	assert.Len(t, view.Recipients, 2)

	// 收件箱
	status, env = s.do(t, http.MethodGet, "/v1/users/"+bob.ID+"/inbox", nil)
	require.Equal(t, http.StatusOK, status)
	inbox := decode[ListData[domain.InboxItem]](t, env.Data)
	require.Equal(t, 1, inbox.Count)
	deliveryID := inbox.Items[0].ReadStatus.DeliveryRecordID
	assert.False(t, inbox.Items[0].ReadStatus.IsRead)

	status, env = s.do(t, http.MethodPost, "/v1/deliveries/"+deliveryID+"/read", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, MsgMarkedRead, env.Msg)
	first := decode[markReadResponse](t, env.Data)
	assert.False(t, first.AlreadyRead)
	require.NotNil(t, first.Record.ReadAt)

	status, env = s.do(t, http.MethodPost, "/v1/deliveries/"+deliveryID+"/read", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, MsgAlreadyRead, env.Msg)
	again := decode[markReadResponse](t, env.Data)
	assert.True(t, again.AlreadyRead)
	assert.True(t, first.Record.ReadAt.Equal(*again.Record.ReadAt))

	status, env = s.do(t, http.MethodGet, "/v1/users/"+bob.ID+"/inbox?read=false", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, decode[ListData[domain.InboxItem]](t, env.Data).Count)

	status, env = s.do(t, http.MethodGet, "/v1/users/"+bob.ID+"/inbox?read=yes", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_read_filter", env.ErrCode)

	status, env = s.do(t, http.MethodGet, "/v1/users/"+alice.ID+"/sent", nil)
	require.Equal(t, http.StatusOK, status)
	sentList := decode[ListData[domain.MessageView]](t, env.Data)
	require.Equal(t, 1, sentList.Count)
	assert.Len(t, sentList.Items[0].Recipients, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.MessagesSent))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.DeliveriesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.DeliveriesRead.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.DeliveriesRead.WithLabelValues("already_read")))
}

func TestRouter_SendErrors(t *testing.T) {
	s := newTestServer(t)
	alice := s.createUser(t, "alice@example.com", "Alice")
	bob := s.createUser(t, "bob@example.com", "Bob")

	tests := []struct {
		name    string
		body    map[string]interface{}
		status  int
		errCode string
	}{
		{"缺少内容", map[string]interface{}{"senderId": alice.ID, "recipientIds": []string{bob.ID}}, http.StatusBadRequest, "missing_fields"},
		{"收件人为空数组", map[string]interface{}{"senderId": alice.ID, "recipientIds": []string{}, "content": "x"}, http.StatusBadRequest, "missing_fields"},
		{"只发给自己", map[string]interface{}{"senderId": alice.ID, "recipientIds": []string{alice.ID}, "content": "x"}, http.StatusBadRequest, "no_valid_recipients"},
		{"发件人不存在", map[string]interface{}{"senderId": "ghost", "recipientIds": []string{bob.ID}, "content": "x"}, http.StatusNotFound, "sender_not_found"},
		{"收件人不存在", map[string]interface{}{"senderId": alice.ID, "recipientIds": []string{bob.ID, "ghost"}, "content": "x"}, http.StatusNotFound, "recipients_invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(t, http.MethodPost, "/v1/messages", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.errCode, env.ErrCode)
			assert.NotEmpty(t, env.Msg)
		})
	}

	status, env := s.do(t, http.MethodGet, "/v1/messages/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "message_not_found", env.ErrCode)

	status, env = s.do(t, http.MethodPost, "/v1/deliveries/missing/read", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "delivery_not_found", env.ErrCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.SendFailures.WithLabelValues("no_valid_recipients")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.MessagesSent))
}

func TestRouter_BodyTooLarge(t *testing.T) {
	s := newTestServer(t)
	body := `{"email":"a@example.com","name":"` + strings.Repeat("x", 70*1024) + `"}`

	status, env := s.do(t, http.MethodPost, "/v1/users", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, "body_too_large", env.ErrCode)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"OK"`)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "messaging_http_requests_total")

	status, env := s.do(t, http.MethodGet, "/v2/nothing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "route_not_found", env.ErrCode)
}
