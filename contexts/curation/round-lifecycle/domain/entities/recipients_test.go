package entities

import (
	"reflect"
	"testing"
)

func TestRecipientIDsDedupesAcrossNominations(t *testing.T) {
	shared := UserSummary{ID: 20, Name: "guest"}
	passed := []Nomination{
		{
			Beatmapset: Beatmapset{ID: 1, CreatorID: 10},
			Creators:   []UserSummary{{ID: 10, Name: "host"}, shared},
		},
		{
			Beatmapset: Beatmapset{ID: 2, CreatorID: 11},
			Creators:   []UserSummary{{ID: 11, Name: "other host"}, shared},
		},
	}

	got := RecipientIDs(passed, 99)
	want := []int64{10, 20, 11, 99}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RecipientIDs = %v, want %v", got, want)
	}
}

func TestRecipientIDsSkipsBannedAndPlaceholder(t *testing.T) {
	passed := []Nomination{
		{
			Beatmapset: Beatmapset{ID: 1, CreatorID: 10},
			Creators: []UserSummary{
				{ID: 10, Name: "host"},
				{ID: 21, Name: "banned guest", Banned: true},
				{ID: PlaceholderUserID, Name: "placeholder"},
				{ID: PlaceholderUserID + 5, Name: "above placeholder"},
				{ID: 22, Name: "real guest"},
			},
		},
	}

	got := RecipientIDs(passed, 99)
	want := []int64{10, 22, 99}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RecipientIDs = %v, want %v", got, want)
	}
}

func TestRecipientIDsNewsAuthorAlwaysIncluded(t *testing.T) {
	got := RecipientIDs(nil, 42)
	want := []int64{42}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RecipientIDs with no passed nominations = %v, want %v", got, want)
	}
}

func TestRecipientIDsNewsAuthorNotDuplicated(t *testing.T) {
	passed := []Nomination{
		{Beatmapset: Beatmapset{ID: 1, CreatorID: 42}},
	}
	got := RecipientIDs(passed, 42)
	want := []int64{42}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RecipientIDs = %v, want %v", got, want)
	}
}

func TestMessageable(t *testing.T) {
	cases := []struct {
		name string
		user UserSummary
		want bool
	}{
		{"regular user", UserSummary{ID: 100}, true},
		{"banned user", UserSummary{ID: 100, Banned: true}, false},
		{"just below placeholder range", UserSummary{ID: PlaceholderUserID - 1}, true},
		{"placeholder boundary", UserSummary{ID: PlaceholderUserID}, false},
		{"above placeholder boundary", UserSummary{ID: PlaceholderUserID + 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.Messageable(); got != tc.want {
				t.Fatalf("Messageable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUniqueIDs(t *testing.T) {
	got := UniqueIDs([]int64{3, 1, 3, 2, 1})
	want := []int64{3, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UniqueIDs = %v, want %v", got, want)
	}
}

func TestNominationTitleOverride(t *testing.T) {
	nomination := Nomination{
		Beatmapset:      Beatmapset{Artist: "artist", Title: "title"},
		OverwriteArtist: "real artist",
	}
	if got := nomination.Artist(); got != "real artist" {
		t.Fatalf("Artist() = %q, want overwrite value", got)
	}
	if got := nomination.Title(); got != "title" {
		t.Fatalf("Title() = %q, want beatmapset value", got)
	}
	if got := nomination.Song(); got != "real artist - title" {
		t.Fatalf("Song() = %q", got)
	}
}
