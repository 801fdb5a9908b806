package util

import "testing"

func TestEnvOrDefault(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"unset", "", "fallback"},
		{"blank", "   ", "fallback"},
		{"set", " prod.yaml ", "prod.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SPRINTBOARD_TEST_ENV", tt.value)
			if got := EnvOrDefault("SPRINTBOARD_TEST_ENV", "fallback"); got != tt.want {
				t.Errorf("EnvOrDefault = %q, want %q", got, tt.want)
			}
		})
	}
}
