package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSSRFGuardInterface(t *testing.T) {
	var _ SSRFGuardService = NewSSRFGuard()
}

func TestNewSafeClient_Timeout(t *testing.T) {
	client := NewSSRFGuard().NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want %v", client.Timeout, 5*time.Second)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("expected custom Transport")
	}
}

// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックすることを検証する。
func TestNewSafeClient_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewSSRFGuard().NewSafeClient(5 * time.Second)
	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

func TestValidateURL_Allowed(t *testing.T) {
	guard := NewSSRFGuard()

	for _, u := range []string{
		"https://trends.google.com/trending/rss?geo=US",
		"https://news.example.com/rss.xml",
		"http://feeds.example.org/trends",
	} {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err != nil {
				t.Errorf("ValidateURL(%q) returned error: %v", u, err)
			}
		})
	}
}

func TestValidateURL_Blocked(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name string
		url  string
	}{
		{"空URL", ""},
		{"スキームなし", "not-a-url"},
		{"ftpスキーム", "ftp://example.com/feed"},
		{"fileスキーム", "file:///etc/passwd"},
		{"プライベートIP 10/8", "http://10.0.0.1/feed"},
		{"プライベートIP 172.16/12", "http://172.31.255.255/feed"},
		{"プライベートIP 192.168/16", "http://192.168.1.100/feed"},
		{"ループバック", "http://127.0.0.2/feed"},
		{"localhost", "http://LOCALHOST/feed"},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data/"},
		{"ゼロアドレス", "http://0.0.0.0/feed"},
		{"IPv6ループバック", "http://[::1]/feed"},
		{"IPv6ユニークローカル", "http://[fd00::1]/feed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := guard.ValidateURL(tt.url); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error", tt.url)
			}
		})
	}
}
