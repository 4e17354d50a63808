package githubapi

import (
	"testing"
)

func TestNewUserClient(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		token       string
		baseURL     string
		wantErr     bool
		wantBaseURL string
	}{
		{
			name:        "default_base_url",
			token:       "gho_token",
			wantBaseURL: "https://api.github.com/",
		},
		{
			name:        "enterprise_base_url_gets_trailing_slash",
			token:       "gho_token",
			baseURL:     "https://github.example.com/api/v3",
			wantBaseURL: "https://github.example.com/api/v3/",
		},
		{name: "empty_token", token: "  ", wantErr: true},
		{name: "invalid_base_url", token: "gho_token", baseURL: "://bad-url", wantErr: true},
		{name: "relative_base_url", token: "gho_token", baseURL: "/api/v3", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client, err := NewUserClient(tc.token, ClientConfig{APIBaseURL: tc.baseURL})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewUserClient: %v", err)
			}
			if got := client.BaseURL.String(); got != tc.wantBaseURL {
				t.Fatalf("BaseURL = %q, want %q", got, tc.wantBaseURL)
			}
		})
	}
}
