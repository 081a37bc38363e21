// Package evaluate scores a predicted cluster assignment against an
// ORCID-derived gold standard with pairwise and B-cubed metrics.
package evaluate

import (
	"github.com/istina-lab/adis/internal/entity"
)

// DefaultMinMentions is the minimum cluster size for an ORCID to enter the
// gold set. Singletons carry no co-clustering signal.
const DefaultMinMentions = 2

// Clustering maps mention_id to a cluster label. Predicted assignments use
// author ids; gold assignments use ORCIDs. Labels only have to be
// consistent within one side.
type Clustering map[string]string

// PairMetrics is precision/recall/F1 over unordered mention pairs.
type PairMetrics struct {
	TruePositives  int     `json:"true_positives" yaml:"true_positives"`
	FalsePositives int     `json:"false_positives" yaml:"false_positives"`
	FalseNegatives int     `json:"false_negatives" yaml:"false_negatives"`
	Precision      float64 `json:"precision" yaml:"precision"`
	Recall         float64 `json:"recall" yaml:"recall"`
	F1             float64 `json:"f1" yaml:"f1"`
}

// BCubedMetrics is the macro-averaged per-mention B-cubed score.
type BCubedMetrics struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
}

// Result bundles both metric families plus the alignment bookkeeping.
type Result struct {
	Mentions         int           `json:"mentions" yaml:"mentions"`
	ExcludedPred     int           `json:"excluded_predicted" yaml:"excluded_predicted"`
	ExcludedGold     int           `json:"excluded_gold" yaml:"excluded_gold"`
	GoldClusters     int           `json:"gold_clusters" yaml:"gold_clusters"`
	PredictedCluster int           `json:"predicted_clusters" yaml:"predicted_clusters"`
	Pairwise         PairMetrics   `json:"pairwise" yaml:"pairwise"`
	BCubed           BCubedMetrics `json:"b_cubed" yaml:"b_cubed"`

	// Gold summarizes the corpus the gold set came from; filled by the
	// eval driver, zero when Evaluate is called directly.
	Gold GoldStats `json:"gold" yaml:"gold"`
}

// GoldStats describes the corpus the gold set was built from.
type GoldStats struct {
	TotalMentions  int     `json:"total_mentions" yaml:"total_mentions"`
	WithORCID      int     `json:"with_orcid" yaml:"with_orcid"`
	Clusters       int     `json:"clusters" yaml:"clusters"`
	DroppedORCIDs  int     `json:"dropped_orcids" yaml:"dropped_orcids"`
	MaxClusterSize int     `json:"max_cluster_size" yaml:"max_cluster_size"`
	AvgClusterSize float64 `json:"avg_cluster_size" yaml:"avg_cluster_size"`
}

// GoldSet builds the ground-truth clustering from ingested publications:
// every mention carrying an ORCID, grouped by ORCID, with groups smaller
// than minMentions dropped.
func GoldSet(pubs []*entity.Publication, minMentions int) Clustering {
	gold, _ := GoldSetStats(pubs, minMentions)
	return gold
}

// GoldSetStats is GoldSet plus corpus statistics for reporting.
func GoldSetStats(pubs []*entity.Publication, minMentions int) (Clustering, GoldStats) {
	if minMentions < 1 {
		minMentions = DefaultMinMentions
	}
	var stats GoldStats
	byORCID := make(map[string][]string)
	for _, p := range pubs {
		for _, m := range p.Mentions {
			stats.TotalMentions++
			orcid := entity.CleanORCID(m.ORCID)
			if orcid == "" {
				continue
			}
			stats.WithORCID++
			byORCID[orcid] = append(byORCID[orcid], m.MentionID)
		}
	}
	gold := make(Clustering)
	var kept int
	for orcid, mentions := range byORCID {
		if len(mentions) < minMentions {
			stats.DroppedORCIDs++
			continue
		}
		stats.Clusters++
		kept += len(mentions)
		if len(mentions) > stats.MaxClusterSize {
			stats.MaxClusterSize = len(mentions)
		}
		for _, mid := range mentions {
			gold[mid] = orcid
		}
	}
	if stats.Clusters > 0 {
		stats.AvgClusterSize = float64(kept) / float64(stats.Clusters)
	}
	return gold, stats
}

// Evaluate aligns predicted against gold on their shared mention set and
// computes both metric families. Mentions present on only one side are
// excluded and counted.
func Evaluate(pred, gold Clustering) Result {
	shared := make([]string, 0, len(gold))
	for mid := range gold {
		if _, ok := pred[mid]; ok {
			shared = append(shared, mid)
		}
	}
	res := Result{
		Mentions:     len(shared),
		ExcludedPred: len(pred) - len(shared),
		ExcludedGold: len(gold) - len(shared),
	}
	if len(shared) == 0 {
		return res
	}

	res.GoldClusters = clusterCount(gold, shared)
	res.PredictedCluster = clusterCount(pred, shared)
	res.Pairwise = pairwise(pred, gold, shared)
	res.BCubed = bCubed(pred, gold, shared)
	return res
}

func clusterCount(c Clustering, mentions []string) int {
	labels := make(map[string]struct{})
	for _, mid := range mentions {
		labels[c[mid]] = struct{}{}
	}
	return len(labels)
}

func pairwise(pred, gold Clustering, mentions []string) PairMetrics {
	var m PairMetrics
	for i := 0; i < len(mentions); i++ {
		for j := i + 1; j < len(mentions); j++ {
			samePred := pred[mentions[i]] == pred[mentions[j]]
			sameGold := gold[mentions[i]] == gold[mentions[j]]
			switch {
			case samePred && sameGold:
				m.TruePositives++
			case samePred && !sameGold:
				m.FalsePositives++
			case !samePred && sameGold:
				m.FalseNegatives++
			}
		}
	}
	m.Precision = ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
	m.Recall = ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
	m.F1 = harmonic(m.Precision, m.Recall)
	return m
}

func bCubed(pred, gold Clustering, mentions []string) BCubedMetrics {
	predMembers := members(pred, mentions)
	goldMembers := members(gold, mentions)

	var sumP, sumR float64
	for _, mid := range mentions {
		p := predMembers[pred[mid]]
		g := goldMembers[gold[mid]]
		var overlap int
		for _, other := range p {
			if gold[other] == gold[mid] {
				overlap++
			}
		}
		sumP += float64(overlap) / float64(len(p))
		sumR += float64(overlap) / float64(len(g))
	}
	n := float64(len(mentions))
	m := BCubedMetrics{Precision: sumP / n, Recall: sumR / n}
	m.F1 = harmonic(m.Precision, m.Recall)
	return m
}

func members(c Clustering, mentions []string) map[string][]string {
	out := make(map[string][]string)
	for _, mid := range mentions {
		out[c[mid]] = append(out[c[mid]], mid)
	}
	return out
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func harmonic(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
