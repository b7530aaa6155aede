package forecast

// Params holds every tunable constant of the model library and selector.
// The defaults reproduce the published behaviour; none of them are business
// rules, so all are exposed through configuration.
type Params struct {
	ManualWindow int `yaml:"manual_window"`

	HoltAlpha float64 `yaml:"holt_alpha"`
	HoltBeta  float64 `yaml:"holt_beta"`

	SeasonLength    int     `yaml:"season_length"`
	HWAlpha         float64 `yaml:"hw_alpha"`
	HWBeta          float64 `yaml:"hw_beta"`
	HWGamma         float64 `yaml:"hw_gamma"`
	HWMinPoints     int     `yaml:"hw_min_points"`
	HWMinTrain      int     `yaml:"hw_min_train"`
	ARIMAMinPoints  int     `yaml:"arima_min_points"`
	ARIMAMinTrain   int     `yaml:"arima_min_train"`
	SARIMAMinExtra  int     `yaml:"sarima_min_extra"` // points required beyond one season
	SARIMAMinTrain  int     `yaml:"sarima_min_train"`
	MinDiffPoints   int     `yaml:"min_diff_points"`
	ForestMinTrain  int     `yaml:"forest_min_train"`
	ForestTrees     int     `yaml:"forest_trees"`
	ForestMaxDepth  int     `yaml:"forest_max_depth"`
	ForestMinLeaf   int     `yaml:"forest_min_leaf"`
	ForestMinRows   int     `yaml:"forest_min_rows"`
	ForestThreshold int     `yaml:"forest_thresholds"`
	ForestSeed      uint32  `yaml:"forest_seed"`

	MinInformativePoints int `yaml:"min_informative_points"`
	MaxHoldout           int `yaml:"max_holdout"`
	MinHoldout           int `yaml:"min_holdout"`
	HoldoutSplitLength   int `yaml:"holdout_split_length"`
}

// DefaultParams returns the standard model configuration.
func DefaultParams() Params {
	return Params{
		ManualWindow: 6,

		HoltAlpha: 0.45,
		HoltBeta:  0.25,

		SeasonLength:    12,
		HWAlpha:         0.4,
		HWBeta:          0.2,
		HWGamma:         0.2,
		HWMinPoints:     24,
		HWMinTrain:      6,
		ARIMAMinPoints:  8,
		ARIMAMinTrain:   8,
		SARIMAMinExtra:  8,
		SARIMAMinTrain:  18,
		MinDiffPoints:   4,
		ForestMinTrain:  14,
		ForestTrees:     30,
		ForestMaxDepth:  5,
		ForestMinLeaf:   6,
		ForestMinRows:   10,
		ForestThreshold: 8,
		ForestSeed:      42,

		MinInformativePoints: 6,
		MaxHoldout:           4,
		MinHoldout:           2,
		HoldoutSplitLength:   18,
	}
}

// withDefaults fills zero-valued fields from DefaultParams so a partially
// specified configuration block still yields a usable model set.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setFloat := func(v *float64, def float64) {
		if *v <= 0 || *v > 1 {
			*v = def
		}
	}

	setInt(&p.ManualWindow, d.ManualWindow)
	setFloat(&p.HoltAlpha, d.HoltAlpha)
	setFloat(&p.HoltBeta, d.HoltBeta)
	setInt(&p.SeasonLength, d.SeasonLength)
	setFloat(&p.HWAlpha, d.HWAlpha)
	setFloat(&p.HWBeta, d.HWBeta)
	setFloat(&p.HWGamma, d.HWGamma)
	setInt(&p.HWMinPoints, d.HWMinPoints)
	setInt(&p.HWMinTrain, d.HWMinTrain)
	setInt(&p.ARIMAMinPoints, d.ARIMAMinPoints)
	setInt(&p.ARIMAMinTrain, d.ARIMAMinTrain)
	setInt(&p.SARIMAMinExtra, d.SARIMAMinExtra)
	setInt(&p.SARIMAMinTrain, d.SARIMAMinTrain)
	setInt(&p.MinDiffPoints, d.MinDiffPoints)
	setInt(&p.ForestMinTrain, d.ForestMinTrain)
	setInt(&p.ForestTrees, d.ForestTrees)
	setInt(&p.ForestMaxDepth, d.ForestMaxDepth)
	setInt(&p.ForestMinLeaf, d.ForestMinLeaf)
	setInt(&p.ForestMinRows, d.ForestMinRows)
	setInt(&p.ForestThreshold, d.ForestThreshold)
	if p.ForestSeed == 0 {
		p.ForestSeed = d.ForestSeed
	}
	setInt(&p.MinInformativePoints, d.MinInformativePoints)
	setInt(&p.MaxHoldout, d.MaxHoldout)
	setInt(&p.MinHoldout, d.MinHoldout)
	setInt(&p.HoldoutSplitLength, d.HoldoutSplitLength)
	return p
}
