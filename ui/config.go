package ui

// Config contains read-along view configuration.
type Config struct {
	Title       string
	Rate        float64
	Loop        bool   `env:"READALONG_LOOP"`
	Width       uint   `env:"READALONG_WIDTH"           envDefault:"80"`
	Highlight   string `env:"READALONG_HIGHLIGHT_COLOR" envDefault:"226"`
	EnableMouse bool

	// For debugging the UI
	AltScreen bool `env:"READALONG_ALT_SCREEN" envDefault:"true"`
}
