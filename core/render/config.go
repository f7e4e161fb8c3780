package render

// Config defines the fixed parts of the generated document.
type Config struct {
	// Title is printed above the school name.
	Title string `json:"title"`
	// Language is the localization package loaded in the preamble.
	Language   string `json:"language"`
	EventLabel string `json:"event_label"`
	TimeLabel  string `json:"time_label"`
	// Geometry is passed verbatim to \geometry.
	Geometry string `json:"geometry"`
}

// SetDefaults applies the values of the original RoboDay template.
func (c *Config) SetDefaults() {
	if c.Title == "" {
		c.Title = "Harmonogram RoboDay"
	}
	if c.Language == "" {
		c.Language = "polski"
	}
	if c.EventLabel == "" {
		c.EventLabel = "Wydarzenie"
	}
	if c.TimeLabel == "" {
		c.TimeLabel = "Godzina"
	}
	if c.Geometry == "" {
		c.Geometry = "a4paper, margin=1in"
	}
}
