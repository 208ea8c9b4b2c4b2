package appstate

import (
	"fmt"
	"strings"
)

type Theme int

const (
	Light Theme = iota + 1
	Dark
	Auto
)

func (t Theme) String() string {
	switch t {
	case Light:
		return "light"
	case Dark:
		return "dark"
	case Auto:
		return "auto"
	default:
		return ""
	}
}

func ParseTheme(raw string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "light":
		return Light, nil
	case "dark":
		return Dark, nil
	case "auto":
		return Auto, nil
	default:
		return 0, fmt.Errorf("appstate: unknown theme %q", raw)
	}
}

func (t Theme) MarshalText() ([]byte, error) {
	if t.String() == "" {
		return nil, fmt.Errorf("appstate: invalid theme %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Theme) UnmarshalText(b []byte) error {
	v, err := ParseTheme(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type Language int

const (
	EN Language = iota + 1
	JP
)

func (l Language) String() string {
	switch l {
	case EN:
		return "en"
	case JP:
		return "jp"
	default:
		return ""
	}
}

func ParseLanguage(raw string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "en":
		return EN, nil
	case "jp", "ja":
		return JP, nil
	default:
		return 0, fmt.Errorf("appstate: unknown language %q", raw)
	}
}

func (l Language) MarshalText() ([]byte, error) {
	if l.String() == "" {
		return nil, fmt.Errorf("appstate: invalid language %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Language) UnmarshalText(b []byte) error {
	v, err := ParseLanguage(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

type Preferences struct {
	Theme    Theme    `json:"theme"`
	Language Language `json:"language"`
	NSFW     bool     `json:"nsfw"`
}
