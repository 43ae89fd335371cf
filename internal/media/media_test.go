package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	got, err := ParseType(" Audio ")
	require.NoError(t, err)
	assert.Equal(t, Audio, got)

	got, err = ParseType("")
	require.NoError(t, err)
	assert.Equal(t, Generic, got)

	_, err = ParseType("hologram")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestParsePlayback(t *testing.T) {
	got, err := ParsePlayback("GUI")
	require.NoError(t, err)
	assert.Equal(t, PlaybackGUI, got)

	_, err = ParsePlayback("vr")
	assert.ErrorIs(t, err, ErrUnknownPlayback)
}

func TestAudioOnly(t *testing.T) {
	assert.True(t, Audio.AudioOnly())
	assert.True(t, Radio.AudioOnly())
	assert.False(t, News.AudioOnly())
	assert.False(t, Generic.AudioOnly())
	assert.False(t, Video.AudioOnly())
}
