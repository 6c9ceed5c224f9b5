package cloud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/transcript"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := Config{
		BaseURL:         server.URL + "/v1/",
		TranscribeModel: "whisper-1",
		PolishModel:     "gpt-test",
		Timeout:         5 * time.Second,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return New(cfg, func() string { return "sk-test" }, WithHTTPClient(server.Client()))
}

func writeAsset(t *testing.T) session.Asset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "RecordTemp_test.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0o600))
	return session.Asset{Path: path, Size: 12}
}

func TestTranscribeSendsMultipartForm(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.Contains(t, r.Header.Get("User-Agent"), "murmur/")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-1", r.FormValue("model"))
		require.Equal(t, "zh", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "RecordTemp_test.wav", header.Filename)
		content, _ := io.ReadAll(file)
		require.Equal(t, "RIFF....WAVE", string(content))

		_, _ = w.Write([]byte(`{"text":"  你好 world  "}`))
	})

	text, err := client.Transcribe(context.Background(), writeAsset(t), "zh-Hant")
	require.NoError(t, err)
	require.Equal(t, "你好 world", text)
}

func TestTranscribeOmitsEmptyLanguage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["language"]
		require.False(t, present)
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	})

	_, err := client.Transcribe(context.Background(), writeAsset(t), "")
	require.NoError(t, err)
}

func TestTranscribeUsesConfiguredTextPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"text":"nested"}]}]}`))
	}, func(c *Config) { c.TextPath = "results[0].alternatives[0].text" })

	text, err := client.Transcribe(context.Background(), writeAsset(t), "")
	require.NoError(t, err)
	require.Equal(t, "nested", text)
}

func TestTranscribeClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   session.Reason
	}{
		{name: "server error", status: http.StatusBadGateway, body: "upstream", want: session.ReasonNetwork},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", want: session.ReasonNetwork},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "bad key", want: session.ReasonAPIRejected},
		{name: "bad request", status: http.StatusBadRequest, body: "bad audio", want: session.ReasonAPIRejected},
		{name: "missing model", status: http.StatusNotFound, body: `{"error":"model not found"}`, want: session.ReasonModelUnavailable},
		{name: "missing route", status: http.StatusNotFound, body: "no route", want: session.ReasonAPIRejected},
		{name: "not json", status: http.StatusOK, body: "<html>", want: session.ReasonInvalidResponse},
		{name: "missing text", status: http.StatusOK, body: `{"transcript":"x"}`, want: session.ReasonInvalidResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Transcribe(context.Background(), writeAsset(t), "")
			require.Error(t, err)
			require.Equal(t, tc.want, session.ReasonOf(err))

			var backendErr *session.BackendError
			require.ErrorAs(t, err, &backendErr)
			if tc.status != http.StatusOK {
				require.Equal(t, tc.status, backendErr.Status)
			}
		})
	}
}

func TestTranscribeUnreachableIsNetwork(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(Config{BaseURL: url, TranscribeModel: "m", Timeout: time.Second}, nil)
	_, err := client.Transcribe(context.Background(), writeAsset(t), "")
	require.Equal(t, session.ReasonNetwork, session.ReasonOf(err))
}

func TestTranscribeCancellationIsCancelled(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for hits.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := client.Transcribe(ctx, writeAsset(t), "")
	require.Error(t, err)
	require.True(t, session.IsCancelled(err))
}

func TestPolishSendsPromptAndStyle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)
		require.Contains(t, req.Messages[0].Content, "be brief")
		require.Contains(t, req.Messages[0].Content, "full-width")
		require.Equal(t, chatMessage{Role: "user", Content: "raw text"}, req.Messages[1])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Clean text. "}}]}`))
	})

	text, err := client.Polish(context.Background(), session.PolishRequest{
		Text:   "raw text",
		Prompt: "be brief",
		Style:  transcript.StyleFullWidth,
	})
	require.NoError(t, err)
	require.Equal(t, "Clean text.", text)
}

func TestPolishRejectsEmptyChoices(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `{"choices":[{"message":{"content":"  "}}]}`, `not json`} {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		_, err := client.Polish(context.Background(), session.PolishRequest{Text: "x"})
		require.Equal(t, session.ReasonInvalidResponse, session.ReasonOf(err), body)
		require.True(t, session.IsRetryable(err))
	}
}

func TestSystemPromptDefaults(t *testing.T) {
	prompt := systemPrompt(session.PolishRequest{})
	require.Equal(t, session.DefaultPolishPrompt, prompt)

	prompt = systemPrompt(session.PolishRequest{Style: transcript.StyleSpaces})
	require.Contains(t, prompt, "single space")
}

func TestExtractText(t *testing.T) {
	body := []byte(`{"text":"top","a":{"b":[{"c":"deep"}]},"n":3}`)

	got, ok := extractText(body, "text")
	require.True(t, ok)
	require.Equal(t, "top", got)

	got, ok = extractText(body, "a.b[0].c")
	require.True(t, ok)
	require.Equal(t, "deep", got)

	for _, path := range []string{"n", "a.b[1].c", "a.b[x]", "a.b[0", "missing"} {
		_, ok = extractText(body, path)
		require.False(t, ok, path)
	}
}
