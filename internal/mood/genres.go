package mood

import (
	"regexp"
	"strings"
)

// MaxSeedGenres is the most genres a search may be seeded with
const MaxSeedGenres = 5

// FallbackGenre is used when none of the suggested genres can be recognized
const FallbackGenre = "pop"

// genreWhitelist mirrors the genre seeds accepted by the Spotify recommendations endpoint
var genreWhitelist = []string{
	"acoustic", "afrobeat", "alt-rock", "alternative", "ambient", "anime",
	"black-metal", "bluegrass", "blues", "bossanova", "brazil", "breakbeat",
	"british", "cantopop", "chicago-house", "children", "chill", "classical",
	"club", "comedy", "country", "dance", "dancehall", "death-metal",
	"deep-house", "detroit-techno", "disco", "disney", "drum-and-bass", "dub",
	"dubstep", "edm", "electro", "electronic", "emo", "folk",
	"forro", "french", "funk", "garage", "german", "gospel",
	"goth", "grindcore", "groove", "grunge", "guitar", "happy",
	"hard-rock", "hardcore", "hardstyle", "heavy-metal", "hip-hop", "holidays",
	"honky-tonk", "house", "idm", "indian", "indie", "indie-pop",
	"industrial", "iranian", "j-dance", "j-idol", "j-pop", "j-rock",
	"jazz", "k-pop", "kids", "latin", "latino", "malay",
	"mandopop", "metal", "metal-misc", "metalcore", "minimal-techno", "movies",
	"mpb", "new-age", "new-release", "opera", "pagode", "party",
	"philippines-opm", "piano", "pop", "pop-film", "post-dubstep", "power-pop",
	"progressive-house", "psych-rock", "punk", "punk-rock", "r-n-b", "rainy-day",
	"reggae", "reggaeton", "road-trip", "rock", "rock-n-roll", "rockabilly",
	"romance", "sad", "salsa", "samba", "sertanejo", "show-tunes",
	"singer-songwriter", "ska", "sleep", "songwriter", "soul", "soundtracks",
	"spanish", "study", "summer", "swedish", "synth-pop", "tango",
	"techno", "trance", "trip-hop", "turkish", "work-out", "world-music",
}

var validGenres = func() map[string]struct{} {
	set := make(map[string]struct{}, len(genreWhitelist))
	for _, g := range genreWhitelist {
		set[g] = struct{}{}
	}
	return set
}()

// genreAliases maps common free-text spellings onto whitelisted identifiers.
// Keys are matched both before and after punctuation is stripped, so "r&b"
// resolves even though stripping would turn it into "rb".
var genreAliases = map[string]string{
	"hip hop":       "hip-hop",
	"hiphop":        "hip-hop",
	"rap":           "hip-hop",
	"rnb":           "r-n-b",
	"r&b":           "r-n-b",
	"alt":           "alternative",
	"alt rock":      "alt-rock",
	"indie rock":    "indie",
	"rock and roll": "rock-n-roll",
}

var (
	disallowedChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// GenreWhitelist returns a copy of the recognized genre identifiers in alphabetical order
func GenreWhitelist() []string {
	out := make([]string, len(genreWhitelist))
	copy(out, genreWhitelist)
	return out
}

// IsValidGenre reports whether g is an exact whitelisted genre identifier
func IsValidGenre(g string) bool {
	_, ok := validGenres[g]
	return ok
}

// NormalizeGenres maps noisy genre names onto whitelisted identifiers.
// Unrecognized entries are dropped, input order is kept and at most
// MaxSeedGenres are returned. A non-empty input with no recognizable
// genre yields the single FallbackGenre; an empty input yields an empty slice.
func NormalizeGenres(genres []string) []string {
	if len(genres) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, MaxSeedGenres)
	for _, genre := range genres {
		if len(normalized) == MaxSeedGenres {
			break
		}
		if g, ok := normalizeGenre(genre); ok {
			normalized = append(normalized, g)
		}
	}

	if len(normalized) == 0 {
		return []string{FallbackGenre}
	}
	return normalized
}

func normalizeGenre(genre string) (string, bool) {
	lower := strings.TrimSpace(strings.ToLower(genre))
	if alias, ok := genreAliases[lower]; ok {
		return alias, true
	}

	cleaned := disallowedChars.ReplaceAllString(lower, "")
	if cleaned == "" {
		return "", false
	}
	if alias, ok := genreAliases[cleaned]; ok {
		return alias, true
	}
	if IsValidGenre(cleaned) {
		return cleaned, true
	}

	hyphenated := whitespaceRuns.ReplaceAllString(cleaned, "-")
	if IsValidGenre(hyphenated) {
		return hyphenated, true
	}
	return "", false
}
