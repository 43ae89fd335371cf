// Package media holds the vocabulary shared by the catalog, the scorer and
// the hosts: what kind of media a request asks for, how a result is played
// back, and the named confidence levels.
package media

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownType     = errors.New("unknown media type")
	ErrUnknownPlayback = errors.New("unknown playback mode")
)

// Type is the media type a request asks for, or a station supports.
type Type string

const (
	Generic Type = "generic"
	Audio   Type = "audio"
	Music   Type = "music"
	Video   Type = "video"
	Podcast Type = "podcast"
	Radio   Type = "radio"
	News    Type = "news"
	TV      Type = "tv"
)

var SupportedTypes = []Type{Generic, Audio, Music, Video, Podcast, Radio, News, TV}

// AudioOnly reports whether the request explicitly excludes video playback.
func (t Type) AudioOnly() bool {
	return t == Audio || t == Radio
}

func (t Type) String() string { return string(t) }

// ParseType parses a media type name. The empty string maps to Generic.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Generic, nil
	}
	for _, one := range SupportedTypes {
		if string(one) == s {
			return one, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownType, s)
}

// Playback is how the host plays a result.
type Playback string

const (
	PlaybackAudio Playback = "audio"
	PlaybackGUI   Playback = "gui"
	PlaybackSkill Playback = "skill"
)

func ParsePlayback(s string) (Playback, error) {
	switch p := Playback(strings.ToLower(strings.TrimSpace(s))); p {
	case PlaybackAudio, PlaybackGUI, PlaybackSkill:
		return p, nil
	case "":
		return PlaybackAudio, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownPlayback, s)
	}
}

// Named confidence levels, on the 0-100 scale.
const (
	Exact         = 95
	VeryHigh      = 90
	High          = 80
	AverageHigh   = 70
	Average       = 50
	AverageLow    = 30
	Low           = 15
	VeryLow       = 1
	MaxConfidence = 100
)
