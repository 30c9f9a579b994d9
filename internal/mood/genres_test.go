package mood

import (
	"reflect"
	"sort"
	"testing"
)

func TestNormalizeGenres(t *testing.T) {
	tests := []struct {
		name   string
		genres []string
		want   []string
	}{
		{"empty input", []string{}, []string{}},
		{"nil input", nil, []string{}},
		{"hip hop alias", []string{"hip hop"}, []string{"hip-hop"}},
		{"hiphop alias", []string{"HipHop"}, []string{"hip-hop"}},
		{"rap alias", []string{"Rap"}, []string{"hip-hop"}},
		{"rnb alias", []string{"rnb"}, []string{"r-n-b"}},
		{"r&b alias", []string{"R&B"}, []string{"r-n-b"}},
		{"alt alias", []string{"alt"}, []string{"alternative"}},
		{"alt rock alias", []string{"Alt Rock"}, []string{"alt-rock"}},
		{"indie rock alias", []string{"indie rock"}, []string{"indie"}},
		{"rock and roll alias", []string{"Rock and Roll"}, []string{"rock-n-roll"}},
		{"invalid dropped, order kept", []string{"indie", "invalid-xyz", "ambient"}, []string{"indie", "ambient"}},
		{"total fallback", []string{"invalid1", "invalid2"}, []string{"pop"}},
		{"only punctuation falls back", []string{"!!!"}, []string{"pop"}},
		{"hyphenation retry", []string{"Deep House"}, []string{"deep-house"}},
		{"whitespace runs collapse", []string{"drum  and\tbass"}, []string{"drum-and-bass"}},
		{"punctuation stripped", []string{" Jazz! "}, []string{"jazz"}},
		{"duplicates kept", []string{"rock", "Rock"}, []string{"rock", "rock"}},
		{
			"capped at five",
			[]string{"rock", "jazz", "blues", "soul", "funk", "disco", "house"},
			[]string{"rock", "jazz", "blues", "soul", "funk"},
		},
		{
			"cap counts survivors only",
			[]string{"nope", "rock", "jazz", "blues", "soul", "funk", "disco"},
			[]string{"rock", "jazz", "blues", "soul", "funk"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeGenres(tt.genres)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeGenres(%q) = %q, want %q", tt.genres, got, tt.want)
			}
		})
	}
}

func TestNormalizeGenres_Idempotent(t *testing.T) {
	inputs := [][]string{
		{"hip hop", "R&B", "Deep House"},
		{"invalid"},
		{"rock", "jazz", "blues", "soul", "funk", "disco"},
		{"world music", "k pop"},
	}

	for _, input := range inputs {
		params := ToSearchParameters(Description{RecommendedGenres: input}, DefaultLimit)
		again := NormalizeGenres(params.SeedGenres)
		if !reflect.DeepEqual(again, params.SeedGenres) {
			t.Errorf("normalizing %q twice changed the result: %q -> %q", input, params.SeedGenres, again)
		}
	}
}

func TestGenreWhitelist(t *testing.T) {
	list := GenreWhitelist()

	if len(list) != 126 {
		t.Errorf("expected 126 genres, got %d", len(list))
	}
	if list[0] != "acoustic" || list[len(list)-1] != "world-music" {
		t.Errorf("unexpected bounds: %q .. %q", list[0], list[len(list)-1])
	}
	if !sort.StringsAreSorted(list) {
		t.Error("expected whitelist to be sorted")
	}

	list[0] = "mutated"
	if !IsValidGenre("acoustic") || IsValidGenre("mutated") {
		t.Error("expected GenreWhitelist to return a copy")
	}
}

func TestIsValidGenre(t *testing.T) {
	for _, g := range []string{"hip-hop", "r-n-b", "world-music", "k-pop"} {
		if !IsValidGenre(g) {
			t.Errorf("expected %q to be valid", g)
		}
	}
	for _, g := range []string{"hip hop", "Pop", "", "shoegaze"} {
		if IsValidGenre(g) {
			t.Errorf("expected %q to be invalid", g)
		}
	}
}
