package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficaz/internal/assistant"
	"trafficaz/internal/history"
	"trafficaz/internal/intent"
	tlog "trafficaz/internal/log"
	"trafficaz/internal/speech"
)

type fakeHistory struct {
	entries []history.Entry
	err     error
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

type denyMic struct{}

func (denyMic) RequestMicrophone(context.Context) error { return speech.ErrPermissionDenied }

type fixture struct {
	srv   *httptest.Server
	disp  *assistant.Dispatcher
	calls chan intent.Request
}

func newFixture(t *testing.T, cfg Config, hist History, perms speech.Permissions) *fixture {
	t.Helper()

	f := &fixture{calls: make(chan intent.Request, 4)}
	table, err := intent.NewTable([]intent.Entry{{
		Intent:   intent.WeatherQuery,
		Patterns: []string{"weather"},
		Handler: func(_ context.Context, req intent.Request) error {
			f.calls <- req
			return nil
		},
	}})
	require.NoError(t, err)

	acfg := assistant.DefaultConfig()
	acfg.ResetDelay = 20 * time.Millisecond
	f.disp, err = assistant.New(acfg, assistant.Deps{
		Table:       table,
		Recognizer:  speech.NewFeed(),
		Speaker:     speech.SpeakerFunc(func(context.Context, string, speech.Settings) error { return nil }),
		Permissions: perms,
		Logger:      tlog.Discard(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = f.disp.Run(ctx)
		close(done)
	}()

	f.srv = httptest.NewServer(New(cfg, f.disp, hist, tlog.Discard()).Handler())
	t.Cleanup(func() {
		f.srv.Close()
		cancel()
		<-done
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, header ...string) (*http.Response, []byte) {
	t.Helper()

	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, Config{Token: "secret"}, nil, nil)

	resp, body := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[HealthzResponse](t, body).Status)
}

func TestAuth(t *testing.T) {
	f := newFixture(t, Config{Token: "secret"}, nil, nil)

	resp, _ := f.do(t, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/status", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/status", nil, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "inactive", decode[StatusResponse](t, body).State)
}

func TestLifecycleAndTranscripts(t *testing.T) {
	f := newFixture(t, Config{}, nil, nil)

	resp, body := f.do(t, http.MethodPost, "/transcripts", TranscriptRequest{Text: "hey trafficaz weather", Final: true})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	resp, body = f.do(t, http.MethodPost, "/wake", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	resp, body = f.do(t, http.MethodPost, "/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "listening", decode[StatusResponse](t, body).State)

	resp, _ = f.do(t, http.MethodPost, "/transcripts", TranscriptRequest{Text: "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/transcripts", "{nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/transcripts", TranscriptRequest{Text: "Hey TrafficAZ, weather please", Final: true})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case req := <-f.calls:
		assert.Equal(t, intent.WeatherQuery, req.Intent)
		assert.Equal(t, "Hey TrafficAZ, weather please", req.Transcript)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}

	resp, body = f.do(t, http.MethodPost, "/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "inactive", decode[StatusResponse](t, body).State)
}

func TestWakeEndpoint(t *testing.T) {
	f := newFixture(t, Config{}, nil, nil)

	resp, _ := f.do(t, http.MethodPost, "/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/wake", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[StatusResponse](t, body)
	assert.Equal(t, "awake", st.State)
	assert.Equal(t, uint64(1), st.Session)
}

func TestStartPermissionDenied(t *testing.T) {
	f := newFixture(t, Config{}, nil, denyMic{})

	resp, body := f.do(t, http.MethodPost, "/start", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, body).Error, "permission denied")
}

func TestSettings(t *testing.T) {
	f := newFixture(t, Config{}, nil, nil)

	resp, body := f.do(t, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, speech.DefaultSettings(), decode[speech.Settings](t, body))

	want := speech.Settings{Language: "fr-FR", Pitch: 1.1, Rate: 1.3, Voice: "fr"}
	resp, _ = f.do(t, http.MethodPut, "/settings", want)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, want, f.disp.Settings())

	resp, _ = f.do(t, http.MethodPut, "/settings", speech.Settings{Language: "fr-FR", Rate: 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, want, f.disp.Settings())
}

func TestHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, Config{}, nil, nil)
		resp, _ := f.do(t, http.MethodGet, "/history", nil)
		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	})

	t.Run("entries", func(t *testing.T) {
		hist := &fakeHistory{entries: []history.Entry{{ID: "a", Intent: intent.OpenMap, Outcome: assistant.OutcomeHandled}}}
		f := newFixture(t, Config{}, hist, nil)

		resp, body := f.do(t, http.MethodGet, "/history?limit=5", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[HistoryResponse](t, body)
		require.Len(t, got.Entries, 1)
		assert.Equal(t, intent.OpenMap, got.Entries[0].Intent)
		assert.Equal(t, 5, hist.limit)

		resp, _ = f.do(t, http.MethodGet, "/history?limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("store error", func(t *testing.T) {
		f := newFixture(t, Config{}, &fakeHistory{err: errors.New("disk full")}, nil)
		resp, _ := f.do(t, http.MethodGet, "/history", nil)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestEventsJSON(t *testing.T) {
	f := newFixture(t, Config{}, nil, nil)

	resp, _ := f.do(t, http.MethodPost, "/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/wake", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[struct {
		Events []assistant.Event `json:"events"`
	}](t, body)
	require.GreaterOrEqual(t, len(got.Events), 3)
	assert.Equal(t, assistant.EventState, got.Events[0].Type)
	assert.Equal(t, "listening", got.Events[0].State)

	last := got.Events[len(got.Events)-1].ID
	resp, body = f.do(t, http.MethodGet, fmt.Sprintf("/events?since=%d", last), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[struct {
		Events []assistant.Event `json:"events"`
	}](t, body).Events)
}

func TestEventsStream(t *testing.T) {
	f := newFixture(t, Config{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.NoError(t, f.disp.Start(context.Background()))

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if strings.HasPrefix(sc.Text(), "data: ") {
			break
		}
	}
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "id: 1", lines[0])
	assert.Equal(t, "event: state", lines[1])
	assert.Contains(t, lines[2], `"state":"listening"`)
}
