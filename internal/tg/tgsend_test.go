package tg

import (
	"errors"
	"testing"
)

func TestIsSystemErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"too_many_requests", errors.New("Too Many Requests: retry after 429"), true},
		{"bad_gateway", errors.New("502 Bad Gateway"), true},
		{"timeout", errors.New("Post \"...\": context deadline exceeded (Client.Timeout)"), true},
		{"not_modified", errors.New("Bad Request: message is not modified"), false},
		{"delete_not_found", errors.New("Bad Request: message to delete not found"), false},
		{"chat_not_found", errors.New("Bad Request: chat not found"), false},
		{"parse_entities", errors.New("Bad Request: can't parse entities"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isSystemErr(tc.err); got != tc.want {
				t.Fatalf("isSystemErr(%v) = %v, ожидали %v", tc.err, got, tc.want)
			}
		})
	}
}
