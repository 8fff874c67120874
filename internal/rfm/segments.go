package rfm

const (
	SegmentChampions          = "Champions"
	SegmentLoyal              = "Loyal Customers"
	SegmentPotentialLoyalists = "Potential Loyalists"
	SegmentAtRisk             = "At Risk"
	SegmentNeedAttention      = "Need Attention"
	SegmentPromising          = "Promising"
	SegmentLost               = "Lost"
	SegmentOther              = "Other"
)

// Rule labels a customer when Match holds for its scores.
type Rule struct {
	Label string
	Match func(r, f, m int) bool
}

// Rules is evaluated top-down and the first match wins. The predicates
// overlap, so the order decides the outcome and must not change.
var Rules = []Rule{
	{SegmentChampions, func(r, f, m int) bool { return r >= 4 && f >= 4 && m >= 4 }},
	{SegmentLoyal, func(r, f, m int) bool { return r >= 3 && f >= 4 && m >= 4 }},
	{SegmentPotentialLoyalists, func(r, f, m int) bool { return r >= 4 && f >= 3 && m >= 4 }},
	{SegmentAtRisk, func(r, f, m int) bool { return f >= 3 && m >= 3 && r <= 2 }},
	{SegmentNeedAttention, func(r, f, m int) bool { return r >= 4 && (f <= 2 || m <= 2) }},
	{SegmentPromising, func(r, f, m int) bool { return r >= 3 && (f >= 3 || m >= 3) }},
	{SegmentLost, func(r, f, m int) bool { return r <= 2 && f <= 2 }},
}

// Segments lists every label Classify can return, in rule order.
func Segments() []string {
	labels := make([]string, 0, len(Rules)+1)
	for _, rule := range Rules {
		labels = append(labels, rule.Label)
	}
	return append(labels, SegmentOther)
}

func Classify(r, f, m int) string {
	for _, rule := range Rules {
		if rule.Match(r, f, m) {
			return rule.Label
		}
	}
	return SegmentOther
}
