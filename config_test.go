package main

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid config",
			cfg: Config{
				UpstreamURL: "http://upstream",
				ListenAddr:  ":8080",
			},
			wantErr: nil,
		},
		{
			name: "missing upstream url",
			cfg: Config{
				ListenAddr: ":8080",
			},
			wantErr: []string{"upstream url cannot be an empty string"},
		},
		{
			name: "missing listen address",
			cfg: Config{
				UpstreamURL: "http://upstream",
			},
			wantErr: []string{"listen address cannot be an empty string"},
		},
		{
			name: "negative refresh interval",
			cfg: Config{
				UpstreamURL:         "http://upstream",
				ListenAddr:          ":8080",
				RefreshIntervalSecs: -1,
			},
			wantErr: []string{"refresh interval cannot be negative"},
		},
		{
			name: "database endpoint without user",
			cfg: Config{
				UpstreamURL:      "http://upstream",
				ListenAddr:       ":8080",
				DatabaseEndpoint: "http://db",
			},
			wantErr: []string{"database user cannot be an empty string"},
		},
		{
			name:    "missing both upstream url and listen address",
			cfg:     Config{},
			wantErr: []string{"upstream url cannot be an empty string", "listen address cannot be an empty string"},
		},
	}

	for _, test := range tests {
		err := test.cfg.Validate()

		if len(test.wantErr) == 0 {
			if err != nil {
				t.Errorf("%s: unexpected error: %v", test.name, err)
			}
			continue
		}

		if err == nil {
			t.Errorf("%s: expected error, got nil", test.name)
			continue
		}

		for _, want := range test.wantErr {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("%s: expected error containing %q, got %q", test.name, want, err.Error())
			}
		}
	}
}
