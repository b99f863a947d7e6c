package app

import (
	"bookpromo/pkg/channels"
	"bookpromo/pkg/domain"
)

// ProviderStatus describes the configured generation provider.
type ProviderStatus struct {
	Status     string `json:"status"`
	TextModel  string `json:"textModel,omitempty"`
	ImageModel string `json:"imageModel,omitempty"`
	Images     bool   `json:"images"`
	MediaStore bool   `json:"mediaStore"`
}

// Presets lists the choices offered by the dashboard.
type Presets struct {
	ContentTypes []domain.ContentType `json:"contentTypes"`
	Tones        []string             `json:"tones"`
	DefaultTone  string               `json:"defaultTone"`
	Groups       []channels.Group     `json:"channelGroups"`
	MinDays      int                  `json:"minDays"`
	MaxDays      int                  `json:"maxDays"`
}

// Status reports whether text generation is available ("active") or not ("missing").
func (a *App) Status() ProviderStatus {
	st := ProviderStatus{
		Status:     "missing",
		Images:     a.images != nil,
		MediaStore: a.media != nil,
	}
	if a.text != nil {
		st.Status = "active"
		st.TextModel = a.textModel
	}
	if a.images != nil {
		st.ImageModel = a.imageModel
	}
	return st
}

// Presets returns the content types, tone presets and channel groups.
func (a *App) Presets() Presets {
	return Presets{
		ContentTypes: append([]domain.ContentType(nil), domain.ContentTypes...),
		Tones:        append([]string(nil), domain.TonePresets...),
		DefaultTone:  domain.DefaultTone,
		Groups:       a.registry.Groups(),
		MinDays:      MinCampaignDays,
		MaxDays:      MaxCampaignDays,
	}
}
