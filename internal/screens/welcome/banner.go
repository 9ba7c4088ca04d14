package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/grammiz/internal/ui/theme"
)

// BannerArt is the block-letter logo shared by the splash and home screens.
const BannerArt = `  ██████╗ ██████╗  █████╗ ███╗   ███╗███╗   ███╗██╗███████╗
 ██╔════╝ ██╔══██╗██╔══██╗████╗ ████║████╗ ████║██║╚══███╔╝
 ██║  ███╗██████╔╝███████║██╔████╔██║██╔████╔██║██║  ███╔╝
 ██║   ██║██╔══██╗██╔══██║██║╚██╔╝██║██║╚██╔╝██║██║ ███╔╝
 ╚██████╔╝██║  ██║██║  ██║██║ ╚═╝ ██║██║ ╚═╝ ██║██║███████╗
  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚═╝╚═╝     ╚═╝╚═╝╚══════╝`

// BannerCompact replaces BannerArt on narrow terminals.
const BannerCompact = "G · R · A · M · M · I · Z"

// BannerWidth is the column width BannerArt needs.
const BannerWidth = 60

// RenderBanner returns the banner styled in the primary color, falling back
// to the compact form when width is too small.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < BannerWidth {
		return style.Render(BannerCompact)
	}
	return style.Render("\n" + BannerArt)
}
