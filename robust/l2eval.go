package robust

// l2Evaluator is the textbook XGBoost L2-regularized objective: leaf
// weight -G/(H+lambda), node score G^2/(H+lambda). The score is the
// positive structure score (higher is better), so ComputeSplitScore -
// RootGain gives a positive loss_chg for a beneficial split. It is the
// one concrete SplitEvaluator this module ships so the builder can run
// standalone; callers are free to register their own.
type l2Evaluator struct {
	lambda float64
}

func newL2Evaluator(p TrainParam) SplitEvaluator {
	return &l2Evaluator{lambda: p.RegLambda}
}

func init() {
	RegisterSplitEvaluator("l2", newL2Evaluator)
}

func (e *l2Evaluator) ComputeWeight(stats GradStats) float64 {
	if stats.SumHess <= 0 {
		return 0
	}
	return -stats.SumGrad / (stats.SumHess + e.lambda)
}

func (e *l2Evaluator) ComputeScore(stats GradStats) float64 {
	if stats.SumHess <= 0 {
		return 0
	}
	return stats.SumGrad * stats.SumGrad / (stats.SumHess + e.lambda)
}

func (e *l2Evaluator) ComputeSplitScore(left, right GradStats) float64 {
	return e.ComputeScore(left) + e.ComputeScore(right)
}
