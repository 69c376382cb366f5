package match

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"tendermatch/internal"
	"tendermatch/internal/catalog"
	"tendermatch/internal/util"
)

// Options are the engine's tunables. Weights must sum to 1.
type Options struct {
	TopK                   int
	MaxCandidates          int
	SuitabilityThreshold   float64
	VolumeSubscoreFloor    float64
	WeightVolume           float64
	WeightSpeed            float64
	WeightCost             float64
	WeightFeatures         float64
	WeightPaper            float64
	DefaultLeaseTermMonths int
}

func DefaultOptions() Options {
	return Options{
		TopK:                   3,
		MaxCandidates:          500,
		SuitabilityThreshold:   0.4,
		VolumeSubscoreFloor:    0.3,
		WeightVolume:           0.35,
		WeightSpeed:            0.20,
		WeightCost:             0.25,
		WeightFeatures:         0.15,
		WeightPaper:            0.05,
		DefaultLeaseTermMonths: 60,
	}
}

// Engine ranks catalog products against a canonicalized requirement. It is
// stateless per request and safe for concurrent use.
type Engine struct {
	store catalog.Store
	opts  Options
	log   *slog.Logger
}

func NewEngine(store catalog.Store, opts Options, log *slog.Logger) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, opts: opts, log: log}
}

// Result carries the ranked recommendations plus the stage the request
// reached, for audit and for failure reporting. Stage records the last stage
// that completed; FailReason is set whenever the run stopped early. A run
// that times out after the prefilter keeps its stage and surfaces whatever
// it accumulated: the candidate ids, and ranked recommendations if scoring
// finished.
type Result struct {
	TraceID         string                    `json:"traceId"`
	RequestID       string                    `json:"requestId"`
	Stage           internal.RequestStage     `json:"stage"`
	FailReason      string                    `json:"failReason,omitempty"`
	AppliedDefaults []string                  `json:"appliedDefaults,omitempty"`
	CandidateIDs    []string                  `json:"candidateIds,omitempty"`
	Recommendations []internal.Recommendation `json:"recommendations"`
}

// Recommend runs the full pipeline for one quote request: canonicalize,
// prefilter, score, rank. A store failure or an expired deadline before the
// prefilter completes fails the request; later deadline expiry delivers what
// was accumulated.
func (e *Engine) Recommend(ctx context.Context, req *internal.QuoteRequest) (*Result, error) {
	result := &Result{TraceID: uuid.NewString(), RequestID: req.ID, Stage: internal.StageSubmitted}
	log := e.log.With("trace_id", result.TraceID, "request_id", req.ID)
	log.Info("match.recommend.start", "category", string(req.Category))

	r, defaults := Canonicalize(req)
	result.AppliedDefaults = defaults
	result.Stage = internal.StageCanonicalized

	if err := ctx.Err(); err != nil {
		result.Stage = internal.StageFailed
		result.FailReason = "timeout"
		return result, err
	}

	candidates, err := e.Prefilter(ctx, r)
	if err != nil {
		log.Error("match.recommend.prefilter_failed", "err", err)
		result.Stage = internal.StageFailed
		result.FailReason = "storeUnavailable"
		return result, fmt.Errorf("prefilter: %w", err)
	}
	result.Stage = internal.StagePrefiltered
	result.CandidateIDs = make([]string, 0, len(candidates))
	for _, c := range candidates {
		result.CandidateIDs = append(result.CandidateIDs, c.ID)
	}
	log.Info("match.recommend.prefiltered", "candidates", len(candidates))

	if len(candidates) == 0 {
		result.Stage = internal.StageDelivered
		result.Recommendations = []internal.Recommendation{}
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		log.Warn("match.recommend.timeout", "stage", string(result.Stage))
		result.FailReason = "timeout"
		return result, err
	}

	scored := e.scoreAll(r, candidates, log)
	result.Stage = internal.StageScored
	if len(scored) == 0 {
		result.Stage = internal.StageFailed
		result.FailReason = "noScorableCandidates"
		return result, fmt.Errorf("no candidate could be scored")
	}

	if err := ctx.Err(); err != nil {
		log.Warn("match.recommend.timeout", "stage", string(result.Stage))
		result.FailReason = "timeout"
		result.Recommendations = e.Rank(r, scored, e.opts.TopK)
		return result, err
	}

	result.Recommendations = e.Rank(r, scored, e.opts.TopK)
	result.Stage = internal.StageRanked

	result.Stage = internal.StageDelivered
	log.Info("match.recommend.done", "returned", len(result.Recommendations))
	return result, nil
}

// Prefilter narrows the catalog server-side: active products of the right
// category whose capacity window brackets the requirement within the
// 0.7x..2x band.
func (e *Engine) Prefilter(ctx context.Context, r Requirement) ([]internal.Product, error) {
	q := catalog.PrefilterQuery{
		Category:      r.Category,
		Status:        internal.StatusActive,
		MaxCandidates: e.opts.MaxCandidates,
	}

	var demand int
	switch r.Category {
	case internal.CategoryPhotocopier:
		demand = r.UserVolume()
		q.PaperSize = r.PaperPrimary
	case internal.CategoryCCTV:
		demand = r.Cameras
	default:
		demand = r.Users
	}
	if demand > 0 {
		q.MinCapacity = int(math.Ceil(0.7 * float64(demand)))
		q.MaxFloor = 2 * demand
	}

	return e.store.Prefilter(ctx, q)
}

// Scored is one candidate after scoring, carrying what the ranker needs for
// ordering and presentation.
type Scored struct {
	Rec      internal.Recommendation
	Suitable bool
	TieCost  float64 // totalMachineCost; tie-break only
	MinCap   int
	MaxCap   int
	Demand   int
}

func (e *Engine) scoreAll(r Requirement, candidates []internal.Product, log *slog.Logger) []Scored {
	out := make([]Scored, 0, len(candidates))
	for i := range candidates {
		s, excluded, err := e.ScoreOne(r, candidates[i])
		if err != nil {
			log.Warn("match.score.skipped", "product_id", candidates[i].ID, "err", err)
			continue
		}
		if excluded {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ScoreOne scores a single candidate. Deterministic and pure: equal inputs
// give equal outputs. The excluded return is true when a hard filter removed
// the product.
func (e *Engine) ScoreOne(r Requirement, p internal.Product) (Scored, bool, error) {
	if p.Status != internal.StatusActive {
		return Scored{}, true, nil
	}

	switch r.Category {
	case internal.CategoryPhotocopier:
		return e.scorePhotocopier(r, p)
	default:
		return e.scoreCapacity(r, p)
	}
}

func (e *Engine) scorePhotocopier(r Requirement, p internal.Product) (Scored, bool, error) {
	d := p.Photocopier
	if d == nil {
		return Scored{}, false, fmt.Errorf("product %s has no photocopier payload", p.ID)
	}
	if d.MinVolume >= d.MaxVolume {
		return Scored{}, false, fmt.Errorf("product %s volume window inverted", p.ID)
	}

	// Hard filter: the machine must print the requested primary size.
	if !d.SupportsPaper(r.PaperPrimary) {
		return Scored{}, true, nil
	}

	userVol := r.UserVolume()
	sub := internal.Subscores{
		Volume:   volumeSubscore(userVol, d.MinVolume, d.MaxVolume),
		Speed:    speedSubscore(userVol, d.Speed),
		Features: featureSubscore(r.RequiredFeatures, p.Features),
		Paper:    1.0,
	}

	term := r.LeaseTermMonths
	if term <= 0 {
		term = e.opts.DefaultLeaseTermMonths
	}
	quarterly, err := leaseQuarterly(d, term)
	if err != nil {
		return Scored{}, false, err
	}
	savings := computeSavings(r, d, quarterly)

	if savings.SavingsPercent > 0 {
		sub.Cost = math.Min(1, savings.SavingsPercent*0.0333)
	}

	score := e.weighted(sub)
	suitable := score >= e.opts.SuitabilityThreshold && sub.Volume >= e.opts.VolumeSubscoreFloor

	rec := internal.Recommendation{
		ProductID:      p.ID,
		VendorID:       p.VendorID,
		Manufacturer:   p.Manufacturer,
		Model:          p.Model,
		MatchScore:     score,
		Subscores:      sub,
		LeaseQuarterly: quarterly,
		TermMonths:     term,
		Savings:        savings,
	}
	rec.Explanation = explain(rec, suitable, userVol, d.MinVolume, d.MaxVolume)
	if !suitable {
		rec.Warning = unsuitableWarning(userVol, d.MinVolume, d.MaxVolume)
	}

	return Scored{
		Rec:      rec,
		Suitable: suitable,
		TieCost:  d.TotalMachineCost,
		MinCap:   d.MinVolume,
		MaxCap:   d.MaxVolume,
		Demand:   userVol,
	}, false, nil
}

// scoreCapacity handles the seat and camera categories: the same volume
// ratio rules applied to the capacity window. Pages-per-minute is
// meaningless here, so the speed component is pinned at a neutral 0.8.
func (e *Engine) scoreCapacity(r Requirement, p internal.Product) (Scored, bool, error) {
	var minCap, maxCap, demand int
	var monthly float64

	switch {
	case p.Telecoms != nil:
		minCap, maxCap, demand = p.Telecoms.MinUsers, p.Telecoms.MaxUsers, r.Users
		monthly = p.Telecoms.PerUserMonthly * float64(demand)
	case p.CCTV != nil:
		minCap, maxCap, demand = p.CCTV.MinCameras, p.CCTV.MaxCameras, r.Cameras
		monthly = p.CCTV.PerCameraCost * float64(demand)
	case p.IT != nil:
		minCap, maxCap, demand = p.IT.MinUsers, p.IT.MaxUsers, r.Users
		if p.IT.PerUserMonthly != nil {
			monthly = *p.IT.PerUserMonthly * float64(demand)
		}
	default:
		return Scored{}, false, fmt.Errorf("product %s has no category payload", p.ID)
	}
	if minCap > maxCap {
		return Scored{}, false, fmt.Errorf("product %s capacity window inverted", p.ID)
	}

	sub := internal.Subscores{
		Volume:   volumeSubscore(demand, minCap, maxCap),
		Speed:    0.8,
		Features: featureSubscore(r.RequiredFeatures, p.Features),
		Paper:    1.0,
	}
	if r.Budget != nil && r.Budget.MonthlyTotal != nil && *r.Budget.MonthlyTotal > 0 && monthly > 0 {
		headroom := (*r.Budget.MonthlyTotal - monthly) / *r.Budget.MonthlyTotal
		if headroom > 0 {
			sub.Cost = math.Min(1, headroom*3.33)
		}
	}

	score := e.weighted(sub)
	suitable := score >= e.opts.SuitabilityThreshold && sub.Volume >= e.opts.VolumeSubscoreFloor

	rec := internal.Recommendation{
		ProductID:    p.ID,
		VendorID:     p.VendorID,
		Manufacturer: p.Manufacturer,
		Model:        p.Model,
		MatchScore:   score,
		Subscores:    sub,
		Savings:      internal.Savings{NewMonthlyTotal: util.Round2(monthly)},
	}
	rec.Explanation = explainCapacity(rec, suitable, demand, minCap, maxCap)
	if !suitable {
		rec.Warning = "Below suitability threshold"
	}

	return Scored{Rec: rec, Suitable: suitable, MinCap: minCap, MaxCap: maxCap, Demand: demand}, false, nil
}

func (e *Engine) weighted(s internal.Subscores) float64 {
	return s.Volume*e.opts.WeightVolume +
		s.Speed*e.opts.WeightSpeed +
		s.Cost*e.opts.WeightCost +
		s.Features*e.opts.WeightFeatures +
		s.Paper*e.opts.WeightPaper
}

// Rank orders scored candidates and returns the top k. Suitable products
// come first; if fewer than k are suitable, the best unsuitable ones fill
// the remainder, keeping their warnings.
func (e *Engine) Rank(r Requirement, scored []Scored, k int) []internal.Recommendation {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Rec.MatchScore != b.Rec.MatchScore {
			return a.Rec.MatchScore > b.Rec.MatchScore
		}
		if a.Rec.Subscores.Volume != b.Rec.Subscores.Volume {
			return a.Rec.Subscores.Volume > b.Rec.Subscores.Volume
		}
		if a.Rec.Subscores.Cost != b.Rec.Subscores.Cost {
			return a.Rec.Subscores.Cost > b.Rec.Subscores.Cost
		}
		if a.TieCost != b.TieCost {
			return a.TieCost < b.TieCost
		}
		return a.Rec.Manufacturer+a.Rec.Model < b.Rec.Manufacturer+b.Rec.Model
	})

	out := make([]internal.Recommendation, 0, k)
	for _, s := range scored {
		if s.Suitable && len(out) < k {
			out = append(out, s.Rec)
		}
	}
	for _, s := range scored {
		if len(out) >= k {
			break
		}
		if !s.Suitable {
			out = append(out, s.Rec)
		}
	}
	return out
}

// volumeSubscore implements the ratio ladder: inside the window scores 1.0,
// below the window degrades on userVol/minVol, above on maxVol/userVol.
func volumeSubscore(userVol, minVol, maxVol int) float64 {
	if userVol >= minVol && userVol <= maxVol {
		return 1.0
	}
	if userVol < minVol {
		r := float64(userVol) / float64(minVol)
		switch {
		case r < 0.3:
			return 0.05
		case r < 0.5:
			return 0.2
		default:
			return 0.4
		}
	}
	r := float64(maxVol) / float64(userVol)
	if r < 0.7 {
		return 0.1
	}
	return 0.3
}

func speedSubscore(userVol, machineSpeed int) float64 {
	s := float64(internal.SuggestedSpeed(userVol))
	m := float64(machineSpeed)
	switch {
	case m >= s && m <= 1.5*s:
		return 1.0
	case m < s:
		return math.Max(0.1, m/s)
	case m > 2*s:
		return 0.6
	default:
		return 0.8
	}
}

func featureSubscore(required, offered []string) float64 {
	if len(required) == 0 {
		return 1.0
	}
	have := make(map[string]bool, len(offered))
	for _, f := range offered {
		have[strings.ToLower(strings.TrimSpace(f))] = true
	}
	hit := 0
	for _, f := range required {
		if have[strings.ToLower(strings.TrimSpace(f))] {
			hit++
		}
	}
	return float64(hit) / float64(len(required))
}
