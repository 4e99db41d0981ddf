package models

import "strconv"

// Stage identifies one step of the compliance wizard.
type Stage int

const (
	StageUpload     Stage = 1
	StageCorrection Stage = 2
	StagePayment    Stage = 3
	StageOverview   Stage = 4
)

// Name returns the display name of the stage.
func (s Stage) Name() string {
	switch s {
	case StageUpload:
		return "Upload"
	case StageCorrection:
		return "Correction"
	case StagePayment:
		return "Payment"
	case StageOverview:
		return "Overview"
	}
	return "Unknown"
}

// Valid reports whether s is one of the four wizard stages.
func (s Stage) Valid() bool {
	return s >= StageUpload && s <= StageOverview
}

// ParseStage interprets a raw "step" URL parameter. Malformed or
// out-of-range values fall back to the Upload stage so a bad URL can
// never strand the wizard.
func ParseStage(raw string) Stage {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return StageUpload
	}
	s := Stage(n)
	if !s.Valid() {
		return StageUpload
	}
	return s
}
