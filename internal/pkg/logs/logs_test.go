package logs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextScope(t *testing.T) {
	assert.Equal(t, "", contextScope(context.Background()))

	ctx := WithChannel(context.Background(), "tg-main", "1234")
	assert.Equal(t, " [tg-main:1234]", contextScope(ctx))

	ctx = WithStation(ctx, "BBC")
	assert.Equal(t, " [tg-main:1234 BBC]", contextScope(ctx))

	ctx = WithStation(WithChannel(context.Background(), "web", ""), "TSF")
	assert.Equal(t, " [web TSF]", contextScope(ctx))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"WARN":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		l := &defaultLogger{log: newDefaultLogger().(*defaultLogger).log}
		l.log.SetLevel(parseLogLevel(in))
		assert.Equal(t, want, l.GetLevel(), "level %q", in)
	}
}

func TestLogIDRoundTrip(t *testing.T) {
	id := NewLogID()
	assert.NotEmpty(t, id)

	ctx := SetLogID(context.Background(), id)
	assert.Equal(t, id, GetLogID(ctx))
	assert.Equal(t, "", GetLogID(context.Background()))
}
