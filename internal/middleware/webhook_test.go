package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const (
	testSecret = "hunter2"
	sigHeader  = "X-Hub-Signature-256"
)

func signBody(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func webhookRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(sigHeader, signature)
	}
	return req
}

func okHandler(t *testing.T, wantBody string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The middleware must leave the body readable for the handler.
		buf := make([]byte, len(wantBody)+1)
		n, _ := r.Body.Read(buf)
		if got := string(buf[:n]); got != wantBody {
			t.Errorf("handler body = %q, want %q", got, wantBody)
		}
		w.WriteHeader(http.StatusAccepted)
	})
}

func TestWebhookHMACValidSignature(t *testing.T) {
	body := `{"action":"opened"}`
	handler := WebhookHMAC(testSecret, sigHeader)(okHandler(t, body))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(body, signBody(body, testSecret)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
}

func TestWebhookHMACRawHexSignature(t *testing.T) {
	body := `{"action":"opened"}`
	sig := strings.TrimPrefix(signBody(body, testSecret), "sha256=")
	handler := WebhookHMAC(testSecret, sigHeader)(okHandler(t, body))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(body, sig))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
}

func TestWebhookHMACWrongSignature(t *testing.T) {
	body := `{"action":"opened"}`
	handler := WebhookHMAC(testSecret, sigHeader)(okHandler(t, body))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(body, signBody(body, "wrong-secret")))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestWebhookHMACTamperedBody(t *testing.T) {
	handler := WebhookHMAC(testSecret, sigHeader)(okHandler(t, ""))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(`{"action":"labeled"}`, signBody(`{"action":"opened"}`, testSecret)))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestWebhookHMACMissingSignature(t *testing.T) {
	handler := WebhookHMAC(testSecret, sigHeader)(okHandler(t, ""))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(`{}`, ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestWebhookHMACUnconfiguredSecretRejects(t *testing.T) {
	body := `{}`
	handler := WebhookHMAC("", sigHeader)(okHandler(t, body))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(body, signBody(body, "")))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestWebhookHMACMalformedHexSignature(t *testing.T) {
	handler := WebhookHMAC(testSecret, sigHeader)(okHandler(t, ""))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(`{}`, "sha256=not-hex"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
