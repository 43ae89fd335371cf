package skill

import (
	"github.com/tgifai/newscast/internal/media"
)

// Result is one playable search hit. It is a value; hosts may keep it after
// the search returns.
type Result struct {
	StationID  string         `json:"station_id"`
	Title      string         `json:"title"`
	URI        string         `json:"uri"`
	Confidence int            `json:"match_confidence"`
	MediaType  media.Type     `json:"media_type"`
	Playback   media.Playback `json:"playback"`
	Image      string         `json:"image,omitempty"`
	BgImage    string         `json:"bg_image,omitempty"`
	SkillLogo  string         `json:"skill_logo,omitempty"`
	Lang       string         `json:"lang"`
}
