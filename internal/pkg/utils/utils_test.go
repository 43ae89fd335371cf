package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExposedBind(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:8088", false},
		{"localhost:8088", false},
		{"10.1.2.3:80", false},
		{"[::1]:80", false},
		{":8088", true},
		{"0.0.0.0:8088", true},
		{"[::]:8088", true},
		{"8.8.8.8:53", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExposedBind(tt.addr), tt.addr)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "notí...", Truncate("notícias", 4))
	assert.Len(t, []rune(Truncate80(string(make([]rune, 100)))), 83)
}

func TestRandStr(t *testing.T) {
	s := RandStr(32)
	assert.Len(t, s, 32)
	assert.NotEqual(t, s, RandStr(32))
	assert.Empty(t, RandStr(0))
}
