package models

import (
	"strings"
	"time"
)

// SavedProduct is a persisted Product plus the operator's manual overrides.
// Overrides survive re-fetches of the same product.
type SavedProduct struct {
	Product

	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CustomDescription       string   `json:"custom_description,omitempty"`
	CustomImages            []string `json:"custom_images,omitempty"`
	CustomVideo             string   `json:"custom_video,omitempty"`
	DescriptionHebrew       string   `json:"description_hebrew,omitempty"`
	CustomDescriptionHebrew string   `json:"custom_description_hebrew,omitempty"`
}

// Patch is a partial update. Nil or empty values are ignored.
type Patch struct {
	Title                   *string  `json:"title,omitempty"`
	Description             *string  `json:"description,omitempty"`
	Price                   *string  `json:"price,omitempty"`
	OriginalPrice           *string  `json:"original_price,omitempty"`
	ImageURL                *string  `json:"image_url,omitempty"`
	VideoURL                *string  `json:"video_url,omitempty"`
	CustomDescription       *string  `json:"custom_description,omitempty"`
	CustomImages            []string `json:"custom_images,omitempty"`
	CustomVideo             *string  `json:"custom_video,omitempty"`
	DescriptionHebrew       *string  `json:"description_hebrew,omitempty"`
	CustomDescriptionHebrew *string  `json:"custom_description_hebrew,omitempty"`
}

// Merge combines a re-added product with the stored copy. Scraped fields come
// from incoming; AddedAt and any override the incoming record leaves unset are
// carried over from existing.
func Merge(existing, incoming *SavedProduct, now time.Time) *SavedProduct {
	merged := *incoming
	merged.UpdatedAt = now
	if existing == nil {
		merged.AddedAt = now
		return &merged
	}

	merged.AddedAt = existing.AddedAt
	if merged.AddedAt.IsZero() {
		merged.AddedAt = now
	}
	if merged.CustomDescription == "" {
		merged.CustomDescription = existing.CustomDescription
	}
	if len(merged.CustomImages) == 0 {
		merged.CustomImages = existing.CustomImages
	}
	if merged.CustomVideo == "" {
		merged.CustomVideo = existing.CustomVideo
	}
	if merged.DescriptionHebrew == "" {
		merged.DescriptionHebrew = existing.DescriptionHebrew
	}
	if merged.CustomDescriptionHebrew == "" {
		merged.CustomDescriptionHebrew = existing.CustomDescriptionHebrew
	}
	return &merged
}

// Apply writes the non-empty patch fields onto p. The discount is re-derived
// whenever a price changes.
func (p *SavedProduct) Apply(patch Patch, now time.Time) {
	set := func(dst *string, v *string) bool {
		if v == nil || strings.TrimSpace(*v) == "" {
			return false
		}
		*dst = *v
		return true
	}

	set(&p.Title, patch.Title)
	set(&p.Description, patch.Description)
	set(&p.VideoURL, patch.VideoURL)
	set(&p.CustomDescription, patch.CustomDescription)
	set(&p.CustomVideo, patch.CustomVideo)
	set(&p.DescriptionHebrew, patch.DescriptionHebrew)
	set(&p.CustomDescriptionHebrew, patch.CustomDescriptionHebrew)

	if patch.ImageURL != nil && strings.TrimSpace(*patch.ImageURL) != "" {
		gallery := []string{*patch.ImageURL}
		for _, u := range p.ImageURLs {
			if u != *patch.ImageURL {
				gallery = append(gallery, u)
			}
		}
		p.SetImages(gallery)
	}
	if len(patch.CustomImages) > 0 {
		p.CustomImages = patch.CustomImages
	}

	priceChanged := set(&p.Price, patch.Price)
	if set(&p.OriginalPrice, patch.OriginalPrice) || priceChanged {
		p.SetDiscount(ComputeDiscount(p.Price, p.OriginalPrice))
	}

	p.UpdatedAt = now
}

// Matches reports whether query occurs in the title or description, case-insensitively.
func (p *SavedProduct) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}
