package simulation

// Optimal RT60 window, in seconds, for congregational spaces.
const (
	OptimalMin = 1.5
	OptimalMax = 2.5
)

// CategoryID names an RT60 classification.
type CategoryID string

const (
	VeryDry         CategoryID = "very_dry"
	ModeratelyDry   CategoryID = "moderately_dry"
	Optimal         CategoryID = "optimal"
	Reverberant     CategoryID = "reverberant"
	VeryReverberant CategoryID = "very_reverberant"
)

const (
	guidanceIncrease = "Increase reverberation: remove some absorptive material or add reflective surfaces."
	guidanceReduce   = "Reduce reverberation: add acoustic panels, curtains or carpet to improve intelligibility."
	guidanceKeep     = "Optimal acoustics: reverberation suits liturgical use with good intelligibility."
)

// Category is a classification of an average RT60.
type Category struct {
	ID          CategoryID `json:"id"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Guidance    string     `json:"guidance"`
}

var categories = map[CategoryID]Category{
	VeryDry: {
		ID: VeryDry, Label: "very dry",
		Description: "Too much absorption; the sound lacks envelopment.",
		Guidance:    guidanceIncrease,
	},
	ModeratelyDry: {
		ID: ModeratelyDry, Label: "moderately dry",
		Description: "Good intelligibility but little warmth.",
		Guidance:    guidanceIncrease,
	},
	Optimal: {
		ID: Optimal, Label: "optimal",
		Description: "Balanced clarity and liturgical ambience.",
		Guidance:    guidanceKeep,
	},
	Reverberant: {
		ID: Reverberant, Label: "reverberant",
		Description: "Warm ambience that may hurt intelligibility.",
		Guidance:    guidanceReduce,
	},
	VeryReverberant: {
		ID: VeryReverberant, Label: "very reverberant",
		Description: "Excessive reverberation; speech is hard to follow.",
		Guidance:    guidanceReduce,
	},
}

// Classify places an average RT60 (seconds) in its category:
// below 1.0 very dry, below 1.5 moderately dry, up to 2.5 optimal, up to 3.5
// reverberant, above that very reverberant.
func Classify(rt60 float64) Category {
	switch {
	case rt60 < 1.0:
		return categories[VeryDry]
	case rt60 < OptimalMin:
		return categories[ModeratelyDry]
	case rt60 <= OptimalMax:
		return categories[Optimal]
	case rt60 <= 3.5:
		return categories[Reverberant]
	default:
		return categories[VeryReverberant]
	}
}

// BandStatus places a single band's RT60 against the optimal window.
type BandStatus string

const (
	BandBelow   BandStatus = "below"
	BandOptimal BandStatus = "optimal"
	BandAbove   BandStatus = "above"
)

func ClassifyBand(rt60 float64) BandStatus {
	switch {
	case rt60 < OptimalMin:
		return BandBelow
	case rt60 > OptimalMax:
		return BandAbove
	default:
		return BandOptimal
	}
}
