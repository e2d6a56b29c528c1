package podds

// Blend mixes a simulated probability with a reference one using weights α and β:
// (pSim·α + pRef·β) / (α + β). A non-positive weight sum returns pSim
func Blend(pSim, pRef, alpha, beta float64) float64 {
	if alpha+beta <= 0 {
		return pSim
	}
	// avoid rounding drift when blending a value with itself
	if pSim == pRef {
		return pSim
	}
	return (pSim*alpha + pRef*beta) / (alpha + beta)
}

// BlendWithReference blends against ref, or returns pSim unchanged when there is no reference
func BlendWithReference(pSim float64, ref *float64, alpha, beta float64) float64 {
	if ref == nil {
		return pSim
	}
	return Blend(pSim, *ref, alpha, beta)
}
