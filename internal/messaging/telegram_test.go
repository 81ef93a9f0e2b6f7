package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidwatch/engine/internal/domain"
)

func newTestSender(handler http.HandlerFunc) (*TelegramSender, *httptest.Server) {
	srv := httptest.NewServer(handler)
	sender := NewTelegramSender("test-token")
	sender.baseURL = srv.URL
	return sender, srv
}

func TestSendSucceedsOn200(t *testing.T) {
	sender, srv := newTestSender(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		assert.Equal(t, "123", r.URL.Query().Get("chat_id"))
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	require.NoError(t, sender.Send(context.Background(), "123", "hello"))
}

func TestSendMapsHTTP403ToRecipientBlocked(t *testing.T) {
	sender, srv := newTestSender(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	defer srv.Close()

	err := sender.Send(context.Background(), "123", "hello")
	assert.ErrorIs(t, err, domain.ErrRecipientBlocked)
}

func TestSendMapsOtherFailuresToTransientUpstream(t *testing.T) {
	sender, srv := newTestSender(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"description":"boom"}`))
	})
	defer srv.Close()

	err := sender.Send(context.Background(), "123", "hello")
	assert.ErrorIs(t, err, domain.ErrTransientUpstream)
}

func TestPingFailsOnNon2xx(t *testing.T) {
	sender, srv := newTestSender(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer srv.Close()

	assert.ErrorIs(t, sender.Ping(context.Background()), domain.ErrTransientUpstream)
}

func TestChatIDStringFormatsInt64(t *testing.T) {
	assert.Equal(t, "918273645", ChatIDString(918273645))
}
