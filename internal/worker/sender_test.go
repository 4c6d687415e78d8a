package worker_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/service"
	"gateway/internal/worker"
)

func TestHTTPSender_PostsSignedPayload(t *testing.T) {
	payload := []byte(`{"event":"payment.success","data":{}}`)
	signature := service.Sign(payload, "whsec_test_abc123")

	var (
		gotBody        []byte
		gotSignature   string
		gotContentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get(service.SignatureHeader)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	}))
	defer srv.Close()

	delivery, err := worker.NewHTTPSender(time.Second).Send(context.Background(), srv.URL, payload, signature)
	require.NoError(t, err)

	assert.True(t, delivery.OK())
	assert.Equal(t, http.StatusAccepted, delivery.StatusCode)
	assert.Equal(t, "queued", delivery.Body)
	assert.Equal(t, payload, gotBody)
	assert.Equal(t, signature, gotSignature)
	assert.Equal(t, "application/json", gotContentType)
}

func TestHTTPSender_Non2xxIsDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 100<<10), http.StatusInternalServerError)
	}))
	defer srv.Close()

	delivery, err := worker.NewHTTPSender(time.Second).Send(context.Background(), srv.URL, []byte(`{}`), "sig")
	require.NoError(t, err)

	assert.False(t, delivery.OK())
	assert.Equal(t, http.StatusInternalServerError, delivery.StatusCode)
	assert.Len(t, delivery.Body, 64<<10, "body is truncated")
}

func TestHTTPSender_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := worker.NewHTTPSender(50*time.Millisecond).Send(context.Background(), srv.URL, []byte(`{}`), "sig")
	assert.Error(t, err)
}
