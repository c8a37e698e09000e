package flow

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Pentahill/inopsflow/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/rest/httpc"
)

func newTestInitiator(t *testing.T, srv *httptest.Server) *Initiator {
	return NewInitiator(&InitiatorOptional{
		BaseURL:   srv.URL + "/",
		SearchKey: "key-1",
		Service:   httpc.NewServiceWithClient(t.Name(), srv.Client()),
	})
}

func respond(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestInitiator_Start(t *testing.T) {
	t.Run("SendsRequest", func(t *testing.T) {
		type captured struct {
			req  *http.Request
			body map[string]any
		}
		reqs := make(chan captured, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			_ = jsonx.UnmarshalFromReader(r.Body, &body)
			reqs <- captured{req: r, body: body}
			_, _ = io.WriteString(w, `{"sessionId":"s1","status":"started"}`)
		}))
		defer srv.Close()

		started, err := newTestInitiator(t, srv).Start(context.Background(), &protocol.FlowRequest{
			UserInput:    protocol.SearchInput("red shoes"),
			ShopConfigID: "demo",
			Language:     "en",
		})
		require.NoError(t, err)
		assert.Equal(t, "s1", started.SessionID)
		assert.Equal(t, "started", started.Fields["status"])
		assert.JSONEq(t, `{"sessionId":"s1","status":"started"}`, string(started.Raw))

		got := <-reqs
		gotReq, gotBody := got.req, got.body
		assert.Equal(t, http.MethodPost, gotReq.Method)
		assert.Equal(t, "/shop/flow/execute", gotReq.URL.Path)
		assert.Equal(t, "key-1", gotReq.URL.Query().Get("searchKey"))
		assert.Equal(t, "application/json", gotReq.Header.Get("Content-Type"))
		assert.Equal(t, "key-1", gotReq.Header.Get("X-Search-Key"))
		assert.Equal(t, "SearchKey key-1", gotReq.Header.Get("Authorization"))

		assert.Equal(t, map[string]any{"type": "search", "value": "red shoes"}, gotBody["userInput"])
		assert.Equal(t, "demo", gotBody["shopConfigId"])
		assert.Equal(t, "en", gotBody["language"])
		assert.NotContains(t, gotBody, "sessionId")
		assert.NotContains(t, gotBody, "referenceId")
	})

	t.Run("CampaignBody", func(t *testing.T) {
		bodies := make(chan map[string]any, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			_ = jsonx.UnmarshalFromReader(r.Body, &body)
			bodies <- body
			_, _ = io.WriteString(w, `{"sessionId":"s2"}`)
		}))
		defer srv.Close()

		_, err := newTestInitiator(t, srv).Start(context.Background(), &protocol.FlowRequest{
			UserInput: protocol.CampaignInput("c-9"),
			SessionID: "prev",
		})
		require.NoError(t, err)
		gotBody := <-bodies
		assert.Equal(t, map[string]any{"type": "campaignId", "campaignId": "c-9"}, gotBody["userInput"])
		assert.Equal(t, "prev", gotBody["sessionId"])
	})

	t.Run("ValidationSkipsNetwork", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		ini := newTestInitiator(t, srv)
		_, err := ini.Start(context.Background(), &protocol.FlowRequest{UserInput: protocol.SearchInput("ab")})
		assert.ErrorIs(t, err, protocol.ErrValidation)
		_, err = ini.Start(context.Background(), &protocol.FlowRequest{UserInput: protocol.CampaignInput("")})
		assert.ErrorIs(t, err, protocol.ErrValidation)
		_, err = ini.Start(context.Background(), nil)
		assert.ErrorIs(t, err, protocol.ErrValidation)
		assert.Zero(t, hits.Load())
	})

	t.Run("MissingSessionID", func(t *testing.T) {
		srv := httptest.NewServer(respond(http.StatusOK, "application/json", `{"status":"queued"}`))
		defer srv.Close()

		started, err := newTestInitiator(t, srv).Start(context.Background(), &protocol.FlowRequest{UserInput: protocol.SearchInput("shoes")})
		require.NoError(t, err)
		assert.Empty(t, started.SessionID)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		srv := httptest.NewServer(respond(http.StatusOK, "", "<html>oops</html>"))
		defer srv.Close()

		_, err := newTestInitiator(t, srv).Start(context.Background(), &protocol.FlowRequest{UserInput: protocol.SearchInput("shoes")})
		assert.ErrorIs(t, err, protocol.ErrJSONParse)
		assert.Contains(t, err.Error(), "Invalid JSON response: ")
	})

	t.Run("TrailingTextAfterJSON", func(t *testing.T) {
		srv := httptest.NewServer(respond(http.StatusOK, "application/json", `{"sessionId":"s1"} <html>oops`))
		defer srv.Close()

		started, err := newTestInitiator(t, srv).Start(context.Background(), &protocol.FlowRequest{UserInput: protocol.SearchInput("shoes")})
		assert.Nil(t, started)
		assert.ErrorIs(t, err, protocol.ErrJSONParse)
		assert.Contains(t, err.Error(), "Invalid JSON response: ")
	})

	t.Run("NetworkError", func(t *testing.T) {
		srv := httptest.NewServer(respond(http.StatusOK, "", "{}"))
		ini := newTestInitiator(t, srv)
		srv.Close()

		_, err := ini.Start(context.Background(), &protocol.FlowRequest{UserInput: protocol.SearchInput("shoes")})
		assert.ErrorIs(t, err, protocol.ErrNetwork)
		assert.Contains(t, err.Error(), "Network error: ")
	})

	t.Run("Cancelled", func(t *testing.T) {
		srv := httptest.NewServer(respond(http.StatusOK, "", "{}"))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestInitiator(t, srv).Start(ctx, &protocol.FlowRequest{UserInput: protocol.SearchInput("shoes")})
		assert.ErrorIs(t, err, protocol.ErrCancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestInitiator_HTTPError(t *testing.T) {
	long := strings.Repeat("é", 300)
	cases := []struct {
		name   string
		status int
		ctype  string
		body   string
		want   string
	}{
		{"JSONMessage", http.StatusUnauthorized, "application/json", `{"message":"invalid search key","code":"unauthorized"}`, "invalid search key"},
		{"JSONCode", http.StatusBadRequest, "application/json", `{"code":"invalid_request"}`, "invalid_request"},
		{"JSONNumericCode", http.StatusBadRequest, "application/json", `{"code":42}`, "42"},
		{"JSONError", http.StatusForbidden, "application/json", `{"error":"forbidden"}`, "forbidden"},
		{"JSONWithoutFields", http.StatusConflict, "application/json", `{"detail":"x"}`, "HTTP 409 Conflict"},
		{"JSONArray", http.StatusConflict, "application/json", `["x"]`, "HTTP 409 Conflict"},
		{"Text", http.StatusNotFound, "text/plain", "no such route", "no such route"},
		{"TextTruncated", http.StatusNotFound, "text/plain", long, strings.Repeat("é", 200)},
		{"Empty", http.StatusNotFound, "", "", "HTTP 404 Not Found"},
		{"TextStartingWithNumber", http.StatusNotFound, "text/plain", "404 page not found", "404 page not found"},
		{"TextStartingWithJSONValue", http.StatusBadGateway, "text/plain", "1 Bad Gateway from nginx", "1 Bad Gateway from nginx"},
		{"JSONWithTrailingText", http.StatusBadRequest, "text/plain", `{"message":"x"} trailing`, `{"message":"x"} trailing`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(respond(c.status, c.ctype, c.body))
			defer srv.Close()

			_, err := newTestInitiator(t, srv).Start(context.Background(), &protocol.FlowRequest{UserInput: protocol.SearchInput("shoes")})
			require.Error(t, err)
			assert.ErrorIs(t, err, protocol.ErrHTTP)

			var perr *protocol.Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, c.want, perr.Message)
			assert.Equal(t, c.status, perr.Status)
		})
	}
}

func TestHTTPErrorMessage_StatusLine(t *testing.T) {
	assert.Equal(t, "HTTP 502 Upstream Down", httpErrorMessage(http.StatusBadGateway, "502 Upstream Down", nil, nil))
	assert.Equal(t, "HTTP 502 Bad Gateway", httpErrorMessage(http.StatusBadGateway, "", nil, nil))
	assert.Equal(t, "HTTP 502 Bad Gateway", httpErrorMessage(http.StatusBadGateway, "502", []byte("  "), nil))
	assert.Equal(t, "HTTP 418 Short And Stout", httpErrorMessage(http.StatusTeapot, "418 Short And Stout", []byte(`{"detail":1}`), nil))
	assert.Equal(t, "HTTP 500 Internal Server Error", httpErrorMessage(http.StatusInternalServerError, "500 Internal Server Error", []byte("partial"), io.ErrUnexpectedEOF))
}
