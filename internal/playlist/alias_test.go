package playlist

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"legacy numeric solo", "2", DefaultSolo},
		{"legacy numeric duo", "10", "/Game/Athena/Playlists/Playlist_DefaultDuo.Playlist_DefaultDuo"},
		{"lowercase name", "playlist_defaultsquad", "/Game/Athena/Playlists/Playlist_DefaultSquad.Playlist_DefaultSquad"},
		{"mixed case name", "Playlist_DefaultSolo", DefaultSolo},
		{"unknown passes through", "playlist_arena_solo", "playlist_arena_solo"},
		{"canonical path passes through", DefaultSolo, DefaultSolo},
		{"whitespace trimmed", "  2  ", DefaultSolo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.token); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}
