package tracing

import "testing"

func TestParseOTLPEndpoint(t *testing.T) {
	cases := []struct{ in, want string }{
		{"http://tempo:4318", "tempo:4318"},
		{"https://collector", "collector:4318"},
		{"otel-collector:4318", "otel-collector:4318"},
		{"", ""},
	}
	for _, tc := range cases {
		got, err := parseOTLPEndpoint(tc.in)
		if err != nil {
			t.Fatalf("parseOTLPEndpoint(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseOTLPEndpoint(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
