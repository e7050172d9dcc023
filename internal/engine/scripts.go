package engine

import "github.com/Saturate/YellowLabTools/internal/model"

const (
	maxShortPathLen  = 100
	shortPathKeepLen = 98
)

// ScriptsFromOffenders builds the script filter entries, one per offender,
// in offender order.
func ScriptsFromOffenders(offenders []model.Offender) []model.Script {
	scripts := make([]model.Script, 0, len(offenders))
	for _, o := range offenders {
		scripts = append(scripts, model.Script{
			FullPath:  o.File,
			ShortPath: ShortenPath(o.File),
		})
	}
	return scripts
}

// ShortenPath truncates paths longer than 100 characters to 98 characters
// followed by "...". Lengths are counted in runes.
func ShortenPath(path string) string {
	runes := []rune(path)
	if len(runes) <= maxShortPathLen {
		return path
	}
	return string(runes[:shortPathKeepLen]) + "..."
}
