package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "mendaur_session", "secret", time.Hour, false), mr
}

func commit(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil), sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func load(t *testing.T, sm *SessionManager, cookie *http.Cookie) *Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newTestSessions(t)

	sess := load(t, sm, nil)
	sess.Set("token", "abc")
	sess.SetUser("42")
	cookie := commit(t, sm, sess)
	assert.NotEqual(t, sess.ID, cookie.Value)

	restored := load(t, sm, cookie)
	assert.Equal(t, sess.ID, restored.ID)
	assert.Equal(t, "abc", restored.Get("token"))
	assert.Equal(t, "42", restored.User())
}

func TestSessionRejectsForgedCookie(t *testing.T) {
	sm, _ := newTestSessions(t)

	sess := load(t, sm, nil)
	sess.Set("token", "abc")
	cookie := commit(t, sm, sess)

	forged := &http.Cookie{Name: cookie.Name, Value: sess.ID}
	assert.Empty(t, load(t, sm, forged).Get("token"))

	tampered := &http.Cookie{Name: cookie.Name, Value: sess.ID + ".bm90LWEtbWFj"}
	assert.Empty(t, load(t, sm, tampered).Get("token"))
}

func TestSessionRenewAndDestroy(t *testing.T) {
	sm, mr := newTestSessions(t)

	sess := load(t, sm, nil)
	sess.Set("token", "abc")
	cookie := commit(t, sm, sess)
	oldID := sess.ID

	restored := load(t, sm, cookie)
	sm.Renew(restored)
	renewed := commit(t, sm, restored)
	assert.False(t, mr.Exists(sm.redisKey(oldID)))
	assert.True(t, mr.Exists(sm.redisKey(restored.ID)))

	current := load(t, sm, renewed)
	sm.Destroy(current)
	cleared := commit(t, sm, current)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.False(t, mr.Exists(sm.redisKey(current.ID)))
}

func TestSessionFlash(t *testing.T) {
	sess := &Session{}
	assert.Nil(t, sess.PopFlash())
	sess.AddFlash(FlashMessage{Kind: "success", Message: "ok"})
	msg := sess.PopFlash()
	require.NotNil(t, msg)
	assert.Equal(t, "ok", msg.Message)
	assert.Nil(t, sess.PopFlash())
}
