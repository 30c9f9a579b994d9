package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/mood"
	"github.com/sonolens/api/internal/store"
)

// MaxImageBytes is the largest decoded image accepted for analysis
const MaxImageBytes = 20 << 20

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// IsSupportedImageType reports whether the MIME type can be analyzed
func IsSupportedImageType(mimeType string) bool {
	return supportedImageTypes[mimeType]
}

const moodAnalysisPrompt = `You are a music mood analyst. Analyze this image and extract musical mood and atmosphere information.

Please provide a detailed analysis in the following JSON format:

{
  "mood_tags": ["array", "of", "mood", "descriptors"],
  "color_palette": ["dominant", "colors", "in", "the", "image"],
  "energy_level": "low" | "medium" | "high",
  "emotional_descriptors": ["emotional", "qualities"],
  "atmosphere": "brief description of the overall atmosphere",
  "recommended_genres": ["suggested", "music", "genres"],
  "seed_artists": ["optional", "artist", "names"],
  "seed_tracks": ["optional", "track", "names"],
  "suggested_playlist_title": "Creative playlist title based on the mood",
  "confidence_score": 0.0-1.0
}

Guidelines:
- mood_tags: 3-6 words describing the emotional/atmospheric qualities (e.g., "nostalgic", "energetic", "melancholic", "uplifting")
- color_palette: 3-5 dominant colors you observe
- energy_level: Rate the visual energy as low, medium, or high
- emotional_descriptors: 3-5 emotional qualities the image evokes
- atmosphere: 1-2 sentence description of the overall vibe
- recommended_genres: 3-6 music genres that would match this mood
- seed_artists: 0-3 artist names if the image suggests specific musical styles (optional)
- seed_tracks: 0-3 specific track names if applicable (optional)
- suggested_playlist_title: A creative, evocative title for a playlist matching this mood
- confidence_score: Your confidence in the analysis (0.0-1.0)

Respond ONLY with valid JSON, no additional text.`

// AnalysisService turns images into mood analyses
type AnalysisService struct {
	vision  VisionModel
	cache   *store.Cache
	storage client.ImageStorage
	logger  *log.Logger

	// signedURLTTL > 0 hands out presigned links instead of public URLs
	signedURLTTL time.Duration
}

// NewAnalysisService creates the service. storage may be nil, in which case images are not kept.
func NewAnalysisService(vision VisionModel, cache *store.Cache, storage client.ImageStorage, logger *log.Logger) *AnalysisService {
	return &AnalysisService{
		vision:  vision,
		cache:   cache,
		storage: storage,
		logger:  logger,
	}
}

// WithSignedURLs makes image_url a presigned link valid for ttl, for buckets
// without public access. A ttl of zero keeps public URLs.
func (s *AnalysisService) WithSignedURLs(ttl time.Duration) *AnalysisService {
	s.signedURLTTL = ttl
	return s
}

// Analyze decodes a base64 or data-URI image and analyzes it
func (s *AnalysisService) Analyze(ctx context.Context, userID string, req *model.AnalyzeImageRequest) (*model.AnalyzeImageResponse, error) {
	if !IsSupportedImageType(req.ImageType) {
		return nil, ErrUnsupportedImageType
	}

	data, err := base64.StdEncoding.DecodeString(client.StripDataURI(strings.TrimSpace(req.Image)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return s.AnalyzeBytes(ctx, userID, req.ImageType, data)
}

// AnalyzeBytes analyzes raw image bytes, serving repeated images from the cache
func (s *AnalysisService) AnalyzeBytes(ctx context.Context, userID, mimeType string, data []byte) (*model.AnalyzeImageResponse, error) {
	if !IsSupportedImageType(mimeType) {
		return nil, ErrUnsupportedImageType
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	analysis, cached := s.cache.Analysis(ctx, hash)
	if !cached && !s.vision.IsConfigured() {
		return nil, fmt.Errorf("%w: vision model", ErrNotConfigured)
	}

	// the upload runs alongside the model call
	key := client.ImageKey(userID, mimeType)
	var imageURL string
	var stored bool
	var wg conc.WaitGroup
	wg.Go(func() {
		imageURL, stored = s.storeImage(ctx, key, mimeType, data)
	})

	var err error
	if !cached {
		analysis, err = s.analyze(ctx, mimeType, data)
	}
	wg.Wait()

	if err != nil {
		if stored {
			s.discardImage(ctx, key)
		}
		return nil, err
	}
	if !cached {
		s.cache.SetAnalysis(ctx, hash, analysis)
	}

	return &model.AnalyzeImageResponse{
		AnalysisID:       uuid.New().String(),
		MoodAnalysis:     analysis,
		SearchParameters: mood.ToSearchParameters(analysis.Description(), mood.DefaultLimit),
		ImageURL:         imageURL,
		Cached:           cached,
	}, nil
}

func (s *AnalysisService) analyze(ctx context.Context, mimeType string, data []byte) (*model.MoodAnalysis, error) {
	content, err := s.vision.AnalyzeImage(ctx, moodAnalysisPrompt, mimeType, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	analysis, err := parseMoodAnalysis(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	return analysis, nil
}

// parseMoodAnalysis pulls the JSON object out of a model answer and checks its required fields
func parseMoodAnalysis(content string) (*model.MoodAnalysis, error) {
	var analysis model.MoodAnalysis
	if err := json.Unmarshal([]byte(extractJSON(content)), &analysis); err != nil {
		return nil, fmt.Errorf("invalid JSON in response: %w", err)
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid response format: %w", err)
	}
	return &analysis, nil
}

// extractJSON trims anything outside the outermost braces
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return content
	}
	return content[start : end+1]
}

// storeImage uploads the image and reports whether the object now exists
func (s *AnalysisService) storeImage(ctx context.Context, key, mimeType string, data []byte) (string, bool) {
	if s.storage == nil {
		return "", false
	}
	url, err := s.storage.PutImage(ctx, key, data, mimeType)
	if err != nil {
		s.logger.Warn("failed to store image", "key", key, "err", err)
		return "", false
	}
	if s.signedURLTTL <= 0 {
		return url, true
	}

	signed, err := s.storage.SignedURL(ctx, key, s.signedURLTTL)
	if err != nil {
		s.logger.Warn("failed to sign image url", "key", key, "err", err)
		return "", true
	}
	return signed, true
}

// discardImage removes an upload whose analysis failed
func (s *AnalysisService) discardImage(ctx context.Context, key string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to delete image", "key", key, "err", err)
	}
}
