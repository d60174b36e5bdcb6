package models

import (
	"testing"
	"time"
)

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantErr  bool
	}{
		{
			name:     "valid",
			settings: Settings{Model: "gpt-4o-mini", RefreshInterval: 300000},
		},
		{
			name:     "valid without api key",
			settings: Settings{Model: "gpt-4o-mini", RefreshInterval: MinRefreshInterval},
		},
		{
			name:     "missing model",
			settings: Settings{Model: "  ", RefreshInterval: 300000},
			wantErr:  true,
		},
		{
			name:     "zero interval",
			settings: Settings{Model: "gpt-4o-mini"},
			wantErr:  true,
		},
		{
			name:     "interval below minimum",
			settings: Settings{Model: "gpt-4o-mini", RefreshInterval: MinRefreshInterval - 1},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_Interval(t *testing.T) {
	s := Settings{RefreshInterval: 300000}
	if got := s.Interval(); got != 5*time.Minute {
		t.Errorf("Expected 5m interval, got %s", got)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		secret string
		want   string
	}{
		{"", ""},
		{"short", "****"},
		{"sk-test-1234567890abcd", "****abcd"},
	}

	for _, tt := range tests {
		if got := MaskSecret(tt.secret); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
		}
	}

	s := Settings{OpenAIKey: "sk-test-1234567890abcd", Model: "gpt-4o-mini"}
	masked := s.Masked()
	if masked.OpenAIKey != "****abcd" {
		t.Errorf("Expected masked key, got %q", masked.OpenAIKey)
	}
	if s.OpenAIKey != "sk-test-1234567890abcd" {
		t.Error("Masked must not modify the original settings")
	}
}
