package match

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"tendermatch/internal"
	"tendermatch/internal/catalog"
)

type memStore struct {
	products []internal.Product
	err      error
}

func (s *memStore) Prefilter(ctx context.Context, q catalog.PrefilterQuery) ([]internal.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []internal.Product
	for _, p := range s.products {
		if p.Category != q.Category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) Save(ctx context.Context, p *internal.Product) error { return nil }

func (s *memStore) DeleteByID(ctx context.Context, id string) error { return nil }

func (s *memStore) CountByVendor(ctx context.Context, vendorID string) (int, error) {
	return len(s.products), nil
}

// expiringStore cancels the request context while the prefilter query is in
// flight, so the deadline checkpoints after the prefilter fire.
type expiringStore struct {
	memStore
	cancel context.CancelFunc
}

func (s *expiringStore) Prefilter(ctx context.Context, q catalog.PrefilterQuery) ([]internal.Product, error) {
	out, err := s.memStore.Prefilter(ctx, q)
	s.cancel()
	return out, err
}

func copierProduct(id string, speed, minVol, maxVol int, primary internal.PaperSize, totalCost, cpcMono, cpcColour float64) internal.Product {
	return internal.Product{
		ID:           id,
		VendorID:     "vendor-" + id,
		Manufacturer: "Ricoh",
		Model:        "IM " + id,
		Category:     internal.CategoryPhotocopier,
		Status:       internal.StatusActive,
		Photocopier: &internal.PhotocopierDetails{
			Speed:            speed,
			PaperPrimary:     primary,
			PaperSupported:   internal.PaperClosure(primary),
			MinVolume:        minVol,
			MaxVolume:        maxVol,
			VolumeBand:       internal.VolumeBandFor(maxVol),
			TotalMachineCost: totalCost,
			CPC:              internal.CPCRates{A4Mono: cpcMono, A4Colour: cpcColour},
			LeaseTerms:       internal.DefaultLeaseTerms(),
		},
	}
}

func fp(v float64) *float64 { return &v }

func perfectFitRequest() *internal.QuoteRequest {
	freq := internal.FrequencyMonthly
	return &internal.QuoteRequest{
		ID:              "req-1",
		RequesterID:     "buyer-1",
		Category:        internal.CategoryPhotocopier,
		MonthlyVolume:   internal.MonthlyVolume{Mono: 8000, Colour: 2000},
		PaperPrimary:    internal.PaperA3,
		LeaseTermMonths: 60,
		CurrentContract: &internal.CurrentContract{
			LeaseCost:        fp(300),
			PaymentFrequency: &freq,
			MonoCPC:          fp(0.010),
			ColourCPC:        fp(0.080),
		},
	}
}

func TestRecommendPerfectFitWithSavings(t *testing.T) {
	store := &memStore{products: []internal.Product{
		copierProduct("C3000", 30, 2000, 12000, internal.PaperA3, 4000, 0.40, 4.0),
	}}
	engine := NewEngine(store, DefaultOptions(), nil)

	result, err := engine.Recommend(context.Background(), perfectFitRequest())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if result.Stage != internal.StageDelivered {
		t.Fatalf("stage = %s", result.Stage)
	}
	if len(result.Recommendations) != 1 {
		t.Fatalf("got %d recommendations", len(result.Recommendations))
	}

	rec := result.Recommendations[0]
	if rec.Subscores.Volume != 1.0 {
		t.Fatalf("volume subscore = %v, want 1.0", rec.Subscores.Volume)
	}
	if rec.Subscores.Speed != 1.0 {
		t.Fatalf("speed subscore = %v, want 1.0 (suggested 25, speed 30)", rec.Subscores.Speed)
	}
	if rec.LeaseQuarterly != 300 {
		t.Fatalf("quarterly lease = %v, want 300", rec.LeaseQuarterly)
	}
	s := rec.Savings
	if s.Breakdown.NewMonthlyLease != 100 || s.Breakdown.NewMonthlyCPC != 112 {
		t.Fatalf("new lease/cpc = %v/%v, want 100/112", s.Breakdown.NewMonthlyLease, s.Breakdown.NewMonthlyCPC)
	}
	if s.NewMonthlyTotal != 212 || s.CurrentMonthlyTotal != 540 {
		t.Fatalf("totals = %v/%v, want 212/540", s.NewMonthlyTotal, s.CurrentMonthlyTotal)
	}
	if s.MonthlySavings != 328 {
		t.Fatalf("monthly savings = %v, want 328", s.MonthlySavings)
	}
	if s.SavingsPercent < 60.7 || s.SavingsPercent > 60.8 {
		t.Fatalf("savings percent = %v, want about 60.7", s.SavingsPercent)
	}
	if rec.Subscores.Cost != 1.0 {
		t.Fatalf("cost subscore = %v, must saturate at 30%% savings", rec.Subscores.Cost)
	}
	if rec.Warning != "" {
		t.Fatalf("unexpected warning: %q", rec.Warning)
	}
	if !strings.HasPrefix(rec.Explanation, "✅") {
		t.Fatalf("explanation = %q, want suitable prefix", rec.Explanation)
	}
}

func TestRecommendOversizedFillsWithWarning(t *testing.T) {
	store := &memStore{products: []internal.Product{
		copierProduct("big", 55, 10000, 40000, internal.PaperA4, 9000, 0.40, 4.0),
	}}
	engine := NewEngine(store, DefaultOptions(), nil)

	req := &internal.QuoteRequest{
		ID:            "req-2",
		Category:      internal.CategoryPhotocopier,
		MonthlyVolume: internal.MonthlyVolume{Mono: 2000},
	}
	result, err := engine.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want the unsuitable fill", len(result.Recommendations))
	}
	rec := result.Recommendations[0]
	if rec.Subscores.Volume != 0.05 {
		t.Fatalf("volume subscore = %v, want 0.05 at ratio 0.2", rec.Subscores.Volume)
	}
	if !strings.HasPrefix(rec.Warning, "Machine severely oversized") {
		t.Fatalf("warning = %q", rec.Warning)
	}
	if !strings.HasPrefix(rec.Explanation, "⚠️") {
		t.Fatalf("explanation = %q, want unsuitable prefix", rec.Explanation)
	}
}

func TestPaperMismatchEliminates(t *testing.T) {
	store := &memStore{products: []internal.Product{
		copierProduct("a4only", 30, 2000, 12000, internal.PaperA4, 4000, 0.40, 4.0),
	}}
	engine := NewEngine(store, DefaultOptions(), nil)

	req := perfectFitRequest() // asks for A3
	result, err := engine.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Recommendations) != 0 {
		t.Fatalf("A4-only product must never appear for an A3 request: %+v", result.Recommendations)
	}
}

func TestScoreOneDeterministic(t *testing.T) {
	engine := NewEngine(&memStore{}, DefaultOptions(), nil)
	r, _ := Canonicalize(perfectFitRequest())
	p := copierProduct("C3000", 30, 2000, 12000, internal.PaperA3, 4000, 0.40, 4.0)

	a, excludedA, errA := engine.ScoreOne(r, p)
	b, excludedB, errB := engine.ScoreOne(r, p)
	if errA != nil || errB != nil || excludedA || excludedB {
		t.Fatalf("scoring failed: %v %v %v %v", errA, errB, excludedA, excludedB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("equal inputs gave different outputs:\n%+v\n%+v", a, b)
	}
}

func TestWeightedSumEqualsScore(t *testing.T) {
	opts := DefaultOptions()
	engine := NewEngine(&memStore{}, opts, nil)
	r, _ := Canonicalize(perfectFitRequest())
	p := copierProduct("mid", 45, 2000, 12000, internal.PaperA3, 4000, 0.40, 4.0)

	s, excluded, err := engine.ScoreOne(r, p)
	if err != nil || excluded {
		t.Fatalf("scoring failed: %v %v", err, excluded)
	}
	sub := s.Rec.Subscores
	want := sub.Volume*opts.WeightVolume + sub.Speed*opts.WeightSpeed +
		sub.Cost*opts.WeightCost + sub.Features*opts.WeightFeatures + sub.Paper*opts.WeightPaper
	if math.Abs(s.Rec.MatchScore-want) > 1e-9 {
		t.Fatalf("score %v != weighted sum %v", s.Rec.MatchScore, want)
	}
}

func TestRankTieBreaks(t *testing.T) {
	engine := NewEngine(&memStore{}, DefaultOptions(), nil)
	r, _ := Canonicalize(perfectFitRequest())

	first := copierProduct("first", 30, 2000, 12000, internal.PaperA3, 3000, 0.40, 4.0)
	second := copierProduct("second", 30, 2000, 12000, internal.PaperA3, 3000, 0.40, 4.0)
	first.Manufacturer, first.Model = "Canon", "A"
	second.Manufacturer, second.Model = "Canon", "B"

	var scored []Scored
	for _, p := range []internal.Product{second, first} {
		s, _, err := engine.ScoreOne(r, p)
		if err != nil {
			t.Fatal(err)
		}
		scored = append(scored, s)
	}

	ranked := engine.Rank(r, scored, 3)
	if len(ranked) != 2 {
		t.Fatalf("ranked %d", len(ranked))
	}
	if ranked[0].Model != "A" || ranked[1].Model != "B" {
		t.Fatalf("alphabetical tie-break broken: %s then %s", ranked[0].Model, ranked[1].Model)
	}
}

func TestRankSuitableBeforeFill(t *testing.T) {
	engine := NewEngine(&memStore{}, DefaultOptions(), nil)
	r, _ := Canonicalize(perfectFitRequest())

	good := copierProduct("good", 30, 2000, 12000, internal.PaperA3, 4000, 0.40, 4.0)
	oversized := copierProduct("oversized", 65, 40000, 80000, internal.PaperA3, 12000, 0.40, 4.0)

	var scored []Scored
	for _, p := range []internal.Product{oversized, good} {
		s, _, err := engine.ScoreOne(r, p)
		if err != nil {
			t.Fatal(err)
		}
		scored = append(scored, s)
	}

	ranked := engine.Rank(r, scored, 3)
	if len(ranked) != 2 {
		t.Fatalf("ranked %d, want suitable plus fill", len(ranked))
	}
	if ranked[0].ProductID != "good" || ranked[0].Warning != "" {
		t.Fatalf("first must be the suitable product: %+v", ranked[0])
	}
	if ranked[1].ProductID != "oversized" || ranked[1].Warning == "" {
		t.Fatalf("fill must carry a warning: %+v", ranked[1])
	}
}

func TestRecommendEmptyPrefilterDelivers(t *testing.T) {
	engine := NewEngine(&memStore{}, DefaultOptions(), nil)
	result, err := engine.Recommend(context.Background(), perfectFitRequest())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if result.Stage != internal.StageDelivered || len(result.Recommendations) != 0 {
		t.Fatalf("empty prefilter must deliver empty: %+v", result)
	}
}

func TestRecommendStoreUnavailable(t *testing.T) {
	engine := NewEngine(&memStore{err: errors.New("connection refused")}, DefaultOptions(), nil)
	result, err := engine.Recommend(context.Background(), perfectFitRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Stage != internal.StageFailed || result.FailReason != "storeUnavailable" {
		t.Fatalf("result = %+v", result)
	}
}

func TestRecommendCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := NewEngine(&memStore{}, DefaultOptions(), nil)
	result, err := engine.Recommend(ctx, perfectFitRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if result.Stage != internal.StageFailed || result.FailReason != "timeout" {
		t.Fatalf("result = %+v", result)
	}
}

func TestRecommendDeadlineAfterPrefilterKeepsCandidates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &expiringStore{
		memStore: memStore{products: []internal.Product{
			copierProduct("C3000", 30, 2000, 12000, internal.PaperA3, 4000, 0.40, 4.0),
		}},
		cancel: cancel,
	}
	engine := NewEngine(store, DefaultOptions(), nil)

	result, err := engine.Recommend(ctx, perfectFitRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if result.Stage != internal.StagePrefiltered || result.FailReason != "timeout" {
		t.Fatalf("stage/reason = %s/%s", result.Stage, result.FailReason)
	}
	if len(result.CandidateIDs) != 1 || result.CandidateIDs[0] != "C3000" {
		t.Fatalf("expired run must keep its candidates, got %v", result.CandidateIDs)
	}
}

func TestScoreCapacityNeutralSpeed(t *testing.T) {
	engine := NewEngine(&memStore{}, DefaultOptions(), nil)
	r := Requirement{Category: internal.CategoryTelecoms, Users: 20}
	p := internal.Product{
		ID:           "voip-20",
		VendorID:     "vendor-voip",
		Manufacturer: "Gamma",
		Model:        "Horizon",
		Category:     internal.CategoryTelecoms,
		Status:       internal.StatusActive,
		Telecoms: &internal.TelecomsDetails{
			SystemType:     "VoIP",
			PerUserMonthly: 12.50,
			MinUsers:       5,
			MaxUsers:       100,
		},
	}

	s, excluded, err := engine.ScoreOne(r, p)
	if err != nil || excluded {
		t.Fatalf("scoring failed: %v %v", err, excluded)
	}
	if s.Rec.Subscores.Speed != 0.8 {
		t.Fatalf("speed subscore = %v, want the neutral 0.8", s.Rec.Subscores.Speed)
	}
	if s.Rec.Subscores.Volume != 1.0 {
		t.Fatalf("volume subscore = %v, want 1.0 inside the window", s.Rec.Subscores.Volume)
	}
}

func TestVolumeSubscoreBoundaries(t *testing.T) {
	tests := []struct {
		name                    string
		userVol, minVol, maxVol int
		want                    float64
	}{
		{"at min volume", 2000, 2000, 12000, 1.0},
		{"one below min at high ratio", 1999, 2000, 12000, 0.4},
		{"ratio below half", 800, 2000, 12000, 0.2},
		{"ratio below point three", 500, 2000, 12000, 0.05},
		{"at max volume", 12000, 2000, 12000, 1.0},
		{"above max good ratio", 15000, 2000, 12000, 0.3},
		{"far above max", 20000, 2000, 12000, 0.1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := volumeSubscore(tc.userVol, tc.minVol, tc.maxVol); got != tc.want {
				t.Fatalf("volumeSubscore(%d,%d,%d) = %v, want %v", tc.userVol, tc.minVol, tc.maxVol, got, tc.want)
			}
		})
	}
}

func TestSpeedSubscore(t *testing.T) {
	// userVol 10000 suggests 25 ppm.
	tests := []struct {
		speed int
		want  float64
	}{
		{25, 1.0},
		{37, 1.0},
		{20, 0.8},
		{2, 0.1},
		{51, 0.6},
		{45, 0.8},
	}
	for _, tc := range tests {
		if got := speedSubscore(10000, tc.speed); got != tc.want {
			t.Fatalf("speedSubscore(10000, %d) = %v, want %v", tc.speed, got, tc.want)
		}
	}
}

func TestFeatureSubscore(t *testing.T) {
	offered := []string{"Duplex", "Stapling", "Wi-Fi"}
	if got := featureSubscore([]string{"duplex", "fax"}, offered); got != 0.5 {
		t.Fatalf("feature subscore = %v, want 0.5", got)
	}
	if got := featureSubscore(nil, offered); got != 1.0 {
		t.Fatalf("no required features = %v, want 1.0", got)
	}
}
