package home

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/ui/theme"
)

// MascotVariant selects which mascot art to display.
type MascotVariant int

const (
	MascotIdle        MascotVariant = iota // Default purple
	MascotCelebrating                      // Gold, star eyes: a strong day
	MascotAlert                            // Orange, exclamation: no practice today
)

const mascotIdle = `┌─────┐
│ ◉ ◉ │
│  ▽  │
│ ABC │
└─────┘`

const mascotCelebrating = `┌─────┐
│ ★ ★ │
│  ▿  │
│ ABC │
└─╥═╥─┘
  ╚═╝`

const mascotAlert = `┌─────┐
│ ◉ ◉ │ !
│  ▽  │
│ ABC │
└─────┘`

// celebrateMin is how many answers a day needs before it can be celebrated.
const celebrateMin = 5

// ChooseMascot picks the variant for today's activity.
func ChooseMascot(today stats.DayRecord, everPracticed bool) MascotVariant {
	switch {
	case today.Attempted >= celebrateMin && today.Correct*5 >= today.Attempted*4:
		return MascotCelebrating
	case today.Attempted == 0 && everPracticed:
		return MascotAlert
	}
	return MascotIdle
}

// RenderMascot returns the mascot ASCII art for the given variant.
func RenderMascot(variant MascotVariant) string {
	art := mascotIdle
	fg := theme.Primary

	switch variant {
	case MascotCelebrating:
		art = mascotCelebrating
		fg = theme.ArcadeYellow
	case MascotAlert:
		art = mascotAlert
		fg = theme.Accent
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Render(art)
}
