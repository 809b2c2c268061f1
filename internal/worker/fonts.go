package worker

import (
	"path/filepath"

	"github.com/reelcraft/api/internal/compiler"
)

// approvedFontFiles is the fixed set of families the draw stage may use.
// Families outside the set fall back to Inter.
var approvedFontFiles = map[string]string{
	"Inter":      "Inter-Regular.ttf",
	"Roboto":     "Roboto-Regular.ttf",
	"Montserrat": "Montserrat-Regular.ttf",
	"Bebas Neue": "BebasNeue-Regular.ttf",
	"Lora":       "Lora-Regular.ttf",
}

const defaultFontFile = "Inter-Regular.ttf"

// ApprovedFonts builds the per-render font set rooted at fontsDir.
func ApprovedFonts(fontsDir string) compiler.FontSet {
	files := make(map[string]string, len(approvedFontFiles))
	for family, file := range approvedFontFiles {
		files[family] = filepath.Join(fontsDir, file)
	}
	return compiler.FontSet{
		Files:   files,
		Default: filepath.Join(fontsDir, defaultFontFile),
	}
}
