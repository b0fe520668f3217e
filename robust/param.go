package robust

// KRtEps is the tiny tolerance used throughout the builder: a minimum
// improvement threshold for "is this split worth taking" and a
// bracketing offset for terminal thresholds.
const KRtEps = 1e-6

// ParallelOption selects which grain of parallelism FindSplit uses when
// scanning a single feature's column.
type ParallelOption int

const (
	// ParallelOverFeatures parallelizes over the feature set, running
	// the robust enumerator sequentially per feature.
	ParallelOverFeatures ParallelOption = 0
	// ParallelOverRowChunks parallelizes over row-chunks of a single
	// feature's column, running the classical (non-robust) enumerator.
	ParallelOverRowChunks ParallelOption = 1
	// ParallelAuto picks ParallelOverFeatures when there are enough
	// features to keep the worker pool busy, else ParallelOverRowChunks.
	ParallelAuto ParallelOption = 2
)

// TrainParam collects the training-time configuration consumed by the
// builder: a plain, JSON-tagged configuration value decoded once by the
// driver and passed down by value.
type TrainParam struct {
	LearningRate      float64        `json:"learning_rate"`
	MaxDepth          int            `json:"max_depth"`
	MinChildWeight    float64        `json:"min_child_weight"`
	Subsample         float64        `json:"subsample"`
	ColsampleByTree   float64        `json:"colsample_bytree"`
	ColsampleByLevel  float64        `json:"colsample_bylevel"`
	ParallelOption    ParallelOption `json:"parallel_option"`
	SplitEvaluator    string         `json:"split_evaluator"`
	RegLambda         float64        `json:"reg_lambda"`
	RobustEps         float64        `json:"robust_eps"`
	RobustTrainingVerbose bool       `json:"robust_training_verbose"`
	// Seed drives the process-wide RNG used for subsample/colsample
	// draws. Zero is a legitimate seed.
	Seed int64 `json:"seed"`
	// MinSplitLoss is the post-build pruner's gamma: a split whose
	// loss_chg does not clear this bar gets collapsed back to a leaf.
	MinSplitLoss float64 `json:"min_split_loss"`
}

// DefaultTrainParam returns a TrainParam with conservative defaults and
// no adversarial radius.
func DefaultTrainParam() TrainParam {
	return TrainParam{
		LearningRate:     0.3,
		MaxDepth:         6,
		MinChildWeight:   1.0,
		Subsample:        1.0,
		ColsampleByTree:  1.0,
		ColsampleByLevel: 1.0,
		ParallelOption:   ParallelOverFeatures,
		SplitEvaluator:   "l2",
		RegLambda:        1.0,
		RobustEps:        0,
		MinSplitLoss:     0,
	}
}

// NeedForwardSearch reports whether the forward (default right) scan
// direction should run for a column with the given density and "all
// values identical" indicator. Every non-empty, non-constant column
// needs it; constant columns skip it, whichever enumerator is in use.
func (p TrainParam) NeedForwardSearch(density float64, indicator bool) bool {
	return density > 0 && !indicator
}

// NeedBackwardSearch reports whether the backward (default left) scan
// direction should run. It runs on every column with missing values and
// on every constant column; it is skipped only on fully dense,
// non-constant columns (where there is nothing for a default-left
// branch to catch).
func (p TrainParam) NeedBackwardSearch(density float64, indicator bool) bool {
	return density < 1.0 || indicator
}

// Validate rejects configurations that cannot be trained with.
func (p TrainParam) Validate() error {
	if p.ColsampleByTree <= 0 {
		return &ConfigError{Reason: "colsample_bytree must be > 0"}
	}
	if p.ColsampleByLevel <= 0 {
		return &ConfigError{Reason: "colsample_bylevel must be > 0"}
	}
	if p.RobustEps > 0 && p.ParallelOption != ParallelOverFeatures {
		return &ConfigError{Reason: "robust_eps > 0 requires parallel_option == 0 (the parallel row-chunk enumerator does not implement the robust adversary)"}
	}
	return nil
}
