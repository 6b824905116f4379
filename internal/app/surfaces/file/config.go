package file

// Configuration settings for the GeoJSON file surface
type Configuration struct {
	Output    string `toml:"output" default:"log/stationtracker.geojson" comment:"GeoJSON file rewritten on every marker update"`
	Keeppaths int    `toml:"keeppaths" default:"5" comment:"closed paths kept per body, next to the current one"`
}
