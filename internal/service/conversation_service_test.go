package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short message unchanged", in: "Hello there", want: "Hello there"},
		{name: "exactly thirty runes unchanged", in: "123456789012345678901234567890", want: "123456789012345678901234567890"},
		{name: "long message truncated", in: "1234567890123456789012345678901", want: "123456789012345678901234567890..."},
		{name: "multibyte runes counted not bytes", in: "こんにちは、今日はとても良い天気ですね。散歩に行きましょうか、それとも家にいますか", want: "こんにちは、今日はとても良い天気ですね。散歩に行きましょうか..."},
		{name: "empty message", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titleFromMessage(tt.in))
		})
	}
}
