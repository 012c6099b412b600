package invite

import (
	"bytes"
	"testing"
)

func TestLoginURL(t *testing.T) {
	tests := []struct {
		name      string
		publicURL string
		code      string
		want      string
		wantErr   bool
	}{
		{"plain", "https://app.dzemat.ba", "gracanica", "https://app.dzemat.ba/login?tenant=gracanica", false},
		{"trailing slash", "https://app.dzemat.ba/", "demo", "https://app.dzemat.ba/login?tenant=demo", false},
		{"sub path", "http://localhost:8080/app", "demo", "http://localhost:8080/app/login?tenant=demo", false},
		{"escaped code", "https://app.dzemat.ba", "a b&c", "https://app.dzemat.ba/login?tenant=a+b%26c", false},
		{"bad scheme", "ftp://app.dzemat.ba", "demo", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoginURL(tt.publicURL, tt.code)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoginURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("LoginURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQRCode(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"default size", 0, false},
		{"valid size", 256, false},
		{"too small", 100, true},
		{"too large", 5000, true},
	}

	pngHeader := []byte("\x89PNG")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QRCode("https://app.dzemat.ba/login?tenant=demo", tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("QRCode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.HasPrefix(got, pngHeader) {
				t.Errorf("QRCode() did not return a PNG")
			}
		})
	}
}
