package detector

var (
	DetectExported     = detect
	DetectModeExported = detectMode
)
