package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/gg/gslice"

	"github.com/tgifai/newscast/internal/media"
)

// Station is one catalog record describing a playable news source.
type Station struct {
	ID             string         `json:"id"`
	Title          string         `json:"title,omitempty"`
	Aliases        []string       `json:"aliases"`
	Source         Source         `json:"source"`
	Lang           string         `json:"-"`
	SecondaryLangs []string       `json:"secondary_langs,omitempty"`
	MediaTypes     []media.Type   `json:"media_types"`
	MediaType      media.Type     `json:"media_type,omitempty"`
	Playback       media.Playback `json:"playback"`
	Image          string         `json:"image,omitempty"`
	BgImage        string         `json:"bg_image,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
}

// DisplayTitle returns Title, falling back to the station ID.
func (s *Station) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.ID
}

// Supports reports whether the station is eligible for requests of type t.
func (s *Station) Supports(t media.Type) bool {
	return gslice.Contains(s.MediaTypes, t)
}

func (s *Station) HasTag(tag string) bool {
	return gslice.Contains(s.Tags, tag)
}

func (s *Station) Validate() error {
	if s == nil {
		return errors.New("station cannot be nil")
	}
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("station id is required")
	}
	if len(s.Aliases) == 0 {
		return fmt.Errorf("station %s: aliases cannot be empty", s.ID)
	}
	for _, alias := range s.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("station %s: blank alias", s.ID)
		}
	}
	if err := s.Source.Validate(); err != nil {
		return fmt.Errorf("station %s: %w", s.ID, err)
	}
	if len(s.MediaTypes) == 0 {
		return fmt.Errorf("station %s: media_types cannot be empty", s.ID)
	}
	for _, t := range s.MediaTypes {
		if _, err := media.ParseType(string(t)); err != nil {
			return fmt.Errorf("station %s: %w", s.ID, err)
		}
	}
	if s.MediaType == "" {
		s.MediaType = media.News
	}
	p, err := media.ParsePlayback(string(s.Playback))
	if err != nil {
		return fmt.Errorf("station %s: %w", s.ID, err)
	}
	s.Playback = p
	return nil
}
