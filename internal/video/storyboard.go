package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

const (
	Width    = 1080
	Height   = 1920
	FPS      = 30
	Duration = 8.0

	maxTitleChars = 25
)

type SourceMode string

const (
	SourceVideo       SourceMode = "video"
	SourceSlideshow   SourceMode = "slideshow"
	SourceSingleImage SourceMode = "single_image"
)

var ErrNoMedia = errors.New("product has no video or image")

// Renderer turns a saved product into a promo video artifact and returns its
// path.
type Renderer interface {
	Render(ctx context.Context, p *models.SavedProduct) (string, error)
}

type Source struct {
	Mode     SourceMode `json:"mode"`
	VideoURL string     `json:"video_url,omitempty"`
	Images   []string   `json:"images,omitempty"`
	// PerImage is the slideshow dwell time in seconds.
	PerImage float64 `json:"per_image,omitempty"`
}

type Overlay struct {
	Kind  string   `json:"kind"`
	Lines []string `json:"lines"`
	Start float64  `json:"start"`
	End   float64  `json:"end"`
}

// Storyboard is everything a compositor needs to produce the vertical promo
// clip for one product.
type Storyboard struct {
	ProductID    string    `json:"product_id"`
	Store        string    `json:"source_store"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	FPS          int       `json:"fps"`
	Duration     float64   `json:"duration"`
	Source       Source    `json:"source"`
	Overlays     []Overlay `json:"overlays"`
	AffiliateURL string    `json:"affiliate_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// StoryboardRenderer writes storyboards as JSON files into a directory.
type StoryboardRenderer struct {
	outputDir string
	now       func() time.Time
	logger    *slog.Logger
}

func NewStoryboardRenderer(outputDir string, logger *slog.Logger) *StoryboardRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoryboardRenderer{
		outputDir: outputDir,
		now:       time.Now,
		logger:    logger.With("component", "storyboard_renderer"),
	}
}

func (r *StoryboardRenderer) Render(ctx context.Context, p *models.SavedProduct) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	board, err := r.Build(p)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(board); err != nil {
		return "", fmt.Errorf("failed to encode storyboard: %w", err)
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%d.json", board.Store, board.ProductID, board.CreatedAt.Unix())
	path := filepath.Join(r.outputDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write storyboard: %w", err)
	}

	r.logger.Info("storyboard written", "product_id", board.ProductID, "mode", board.Source.Mode, "path", path)
	return path, nil
}

// Build assembles the storyboard without touching the filesystem.
func (r *StoryboardRenderer) Build(p *models.SavedProduct) (*Storyboard, error) {
	if p == nil {
		return nil, errors.New("product is nil")
	}

	source, err := chooseSource(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, p.ID)
	}

	return &Storyboard{
		ProductID:    p.ID,
		Store:        string(p.Store),
		Width:        Width,
		Height:       Height,
		FPS:          FPS,
		Duration:     Duration,
		Source:       source,
		Overlays:     overlays(p),
		AffiliateURL: p.AffiliateURL,
		CreatedAt:    r.now(),
	}, nil
}

// chooseSource prefers a product video, then a slideshow of several images,
// then a single still. Operator overrides win over scraped media.
func chooseSource(p *models.SavedProduct) (Source, error) {
	videoURL := p.CustomVideo
	if videoURL == "" {
		videoURL = p.VideoURL
	}
	if videoURL != "" {
		return Source{Mode: SourceVideo, VideoURL: videoURL}, nil
	}

	images := p.CustomImages
	if len(images) == 0 {
		images = p.ImageURLs
	}
	if len(images) == 0 && p.ImageURL != "" {
		images = []string{p.ImageURL}
	}

	switch len(images) {
	case 0:
		return Source{}, ErrNoMedia
	case 1:
		return Source{Mode: SourceSingleImage, Images: images}, nil
	default:
		return Source{
			Mode:     SourceSlideshow,
			Images:   images,
			PerImage: Duration / float64(len(images)),
		}, nil
	}
}

func overlays(p *models.SavedProduct) []Overlay {
	return []Overlay{
		{Kind: "hook", Lines: []string{hookText(p)}, Start: 0, End: 2},
		{Kind: "title", Lines: wrap(p.Title, maxTitleChars), Start: 1.5, End: 4},
		{Kind: "price", Lines: priceLines(p), Start: 3.5, End: 7},
		{Kind: "urgency", Lines: []string{"⏰ LIMITED TIME OFFER!"}, Start: 6, End: 8},
		{Kind: "cta", Lines: []string{"Shop Now!"}, Start: 6.5, End: 8},
	}
}

func hookText(p *models.SavedProduct) string {
	switch {
	case p.DiscountPercent != nil && *p.DiscountPercent >= 25:
		return "🔥 HOT DEAL!"
	case p.DiscountPercent != nil:
		return "⚡ LIMITED TIME!"
	default:
		return "💥 BEST PRICE!"
	}
}

func priceLines(p *models.SavedProduct) []string {
	lines := []string{"Price: " + p.Price}
	if p.OriginalPrice != "" && p.OriginalPrice != p.Price {
		was := "Was " + p.OriginalPrice
		if p.Discount != "" {
			was += fmt.Sprintf(" (%s OFF!)", p.Discount)
		}
		lines = append(lines, was)
	}
	if p.Rating > 0 {
		lines = append(lines, fmt.Sprintf("⭐ %.1f (%d reviews)", p.Rating, p.ReviewsCount))
	}
	return lines
}

// wrap breaks text on word boundaries into lines of at most width runes.
// Words longer than width get a line of their own.
func wrap(text string, width int) []string {
	var (
		lines []string
		line  strings.Builder
	)
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && len([]rune(line.String()))+1+len([]rune(word)) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
