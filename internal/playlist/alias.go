// Package playlist maps the playlist tokens game clients send (legacy
// numeric codes, case-insensitive short names) to canonical playlist paths.
package playlist

import "strings"

// DefaultSolo is the fallback playlist when a connection never supplies one.
const DefaultSolo = "/Game/Athena/Playlists/Playlist_DefaultSolo.Playlist_DefaultSolo"

var aliases = map[string]string{
	"2":                        DefaultSolo,
	"10":                       "/Game/Athena/Playlists/Playlist_DefaultDuo.Playlist_DefaultDuo",
	"9":                        "/Game/Athena/Playlists/Playlist_DefaultSquad.Playlist_DefaultSquad",
	"playlist_defaultsolo":     DefaultSolo,
	"playlist_defaultduo":      "/Game/Athena/Playlists/Playlist_DefaultDuo.Playlist_DefaultDuo",
	"playlist_defaultsquad":    "/Game/Athena/Playlists/Playlist_DefaultSquad.Playlist_DefaultSquad",
	"playlist_solidgold_solo":  "/Game/Athena/Playlists/Playlist_SolidGold_Solo.Playlist_SolidGold_Solo",
	"playlist_snipers_solo":    "/Game/Athena/Playlists/Playlist_Snipers_Solo.Playlist_Snipers_Solo",
}

// Resolve returns the canonical playlist for a token. Unknown tokens pass
// through unchanged so new playlists keep working without a table update.
func Resolve(token string) string {
	token = strings.TrimSpace(token)
	if canonical, ok := aliases[strings.ToLower(token)]; ok {
		return canonical
	}
	return token
}
