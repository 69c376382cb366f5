package internal

import (
	"fmt"
	"time"
)

type ServiceCategory string

const (
	CategoryPhotocopier ServiceCategory = "photocopier"
	CategoryTelecoms    ServiceCategory = "telecoms"
	CategoryCCTV        ServiceCategory = "cctv"
	CategoryIT          ServiceCategory = "it"
	CategorySolicitor   ServiceCategory = "solicitor"
	CategoryAccountant  ServiceCategory = "accountant"
)

type ProductStatus string

const (
	StatusActive    ProductStatus = "active"
	StatusDraft     ProductStatus = "draft"
	StatusWithdrawn ProductStatus = "withdrawn"
)

type PaperSize string

const (
	PaperA4   PaperSize = "A4"
	PaperA3   PaperSize = "A3"
	PaperSRA3 PaperSize = "SRA3"
)

type VolumeBand string

const (
	Band0to6k   VolumeBand = "0-6k"
	Band6to13k  VolumeBand = "6k-13k"
	Band13to20k VolumeBand = "13k-20k"
	Band20to30k VolumeBand = "20k-30k"
	Band30to40k VolumeBand = "30k-40k"
	Band40to50k VolumeBand = "40k-50k"
	Band50kPlus VolumeBand = "50k+"
)

// VolumeBandFor is the single source of truth for a product's volume band.
// It is recomputed on every normalization; raw rows never override it.
func VolumeBandFor(maxVolume int) VolumeBand {
	switch {
	case maxVolume <= 6000:
		return Band0to6k
	case maxVolume <= 13000:
		return Band6to13k
	case maxVolume <= 20000:
		return Band13to20k
	case maxVolume <= 30000:
		return Band20to30k
	case maxVolume <= 40000:
		return Band30to40k
	case maxVolume <= 50000:
		return Band40to50k
	default:
		return Band50kPlus
	}
}

// SuggestedSpeed maps a monthly page volume to the pages-per-minute class an
// appropriate machine should meet.
func SuggestedSpeed(monthlyVolume int) int {
	switch {
	case monthlyVolume <= 6000:
		return 20
	case monthlyVolume <= 13000:
		return 25
	case monthlyVolume <= 20000:
		return 30
	case monthlyVolume <= 30000:
		return 35
	case monthlyVolume <= 40000:
		return 45
	case monthlyVolume <= 50000:
		return 55
	default:
		return 65
	}
}

// PaperClosure returns the supported-size set implied by a primary size:
// A3 implies A4, SRA3 implies A3 and A4.
func PaperClosure(primary PaperSize) []PaperSize {
	switch primary {
	case PaperSRA3:
		return []PaperSize{PaperSRA3, PaperA3, PaperA4}
	case PaperA3:
		return []PaperSize{PaperA3, PaperA4}
	default:
		return []PaperSize{PaperA4}
	}
}

type Availability struct {
	InStock      bool `json:"inStock"`
	LeadTimeDays int  `json:"leadTimeDays"`
}

type LeaseTerm struct {
	TermMonths int     `json:"termMonths"`
	Margin     float64 `json:"margin"`
}

func DefaultLeaseTerms() []LeaseTerm {
	return []LeaseTerm{{TermMonths: 36, Margin: 0.6}, {TermMonths: 48, Margin: 0.55}, {TermMonths: 60, Margin: 0.5}}
}

type Auxiliary struct {
	Item  string  `json:"item"`
	Price float64 `json:"price"`
}

// CPCRates holds cost-per-copy rates in pence per page.
type CPCRates struct {
	A4Mono     float64  `json:"a4Mono"`
	A4Colour   float64  `json:"a4Colour"`
	A3Mono     *float64 `json:"a3Mono,omitempty"`
	A3Colour   *float64 `json:"a3Colour,omitempty"`
	SRA3Mono   *float64 `json:"sra3Mono,omitempty"`
	SRA3Colour *float64 `json:"sra3Colour,omitempty"`
}

type PhotocopierDetails struct {
	Speed            int         `json:"speed"`
	PaperPrimary     PaperSize   `json:"paperPrimary"`
	PaperSupported   []PaperSize `json:"paperSupported"`
	MinVolume        int         `json:"minVolume"`
	MaxVolume        int         `json:"maxVolume"`
	VolumeBand       VolumeBand  `json:"volumeBand"`
	MachineCost      float64     `json:"machineCost"`
	Installation     float64     `json:"installation"`
	ProfitMargin     float64     `json:"profitMargin"`
	TotalMachineCost float64     `json:"totalMachineCost"`
	CPC              CPCRates    `json:"cpcRates"`
	LeaseTerms       []LeaseTerm `json:"leaseTerms"`
	Auxiliaries      []Auxiliary `json:"auxiliaries,omitempty"`
}

func (d PhotocopierDetails) SupportsPaper(size PaperSize) bool {
	for _, p := range d.PaperSupported {
		if p == size {
			return true
		}
	}
	return false
}

type TelecomsDetails struct {
	SystemType         string   `json:"systemType"`
	PerUserMonthly     float64  `json:"perUserMonthly"`
	MinUsers           int      `json:"minUsers"`
	MaxUsers           int      `json:"maxUsers"`
	HandsetPrice       float64  `json:"handsetPrice,omitempty"`
	CallPackage        string   `json:"callPackage,omitempty"`
	BroadbandIncluded  bool     `json:"broadbandIncluded,omitempty"`
	SetupFee           float64  `json:"setupFee,omitempty"`
	ContractTermMonths int      `json:"contractTermMonths,omitempty"`
	Features           []string `json:"features,omitempty"`
}

type CCTVDetails struct {
	SystemType         string   `json:"systemType"`
	PerCameraCost      float64  `json:"perCameraCost"`
	Resolution         string   `json:"resolution,omitempty"`
	Indoor             bool     `json:"indoor,omitempty"`
	Outdoor            bool     `json:"outdoor,omitempty"`
	NightVision        bool     `json:"nightVision,omitempty"`
	NVRCost            *float64 `json:"nvrCost,omitempty"`
	NVRChannels        *int     `json:"nvrChannels,omitempty"`
	InstallPerCamera   *float64 `json:"installPerCamera,omitempty"`
	InstallFlat        *float64 `json:"installFlat,omitempty"`
	MonitoringMonthly  *float64 `json:"monitoringMonthly,omitempty"`
	CloudPerCamera     *float64 `json:"cloudPerCamera,omitempty"`
	CloudFlat          *float64 `json:"cloudFlat,omitempty"`
	MinCameras         int      `json:"minCameras"`
	MaxCameras         int      `json:"maxCameras"`
}

type ITDetails struct {
	ServiceType      string   `json:"serviceType"`
	PerUserMonthly   *float64 `json:"perUserMonthly,omitempty"`
	PerDeviceMonthly *float64 `json:"perDeviceMonthly,omitempty"`
	ProjectDayRate   *float64 `json:"projectDayRate,omitempty"`
	MinUsers         int      `json:"minUsers"`
	MaxUsers         int      `json:"maxUsers"`
	ServerMonthly    *float64 `json:"serverMonthly,omitempty"`
	IncludedServices []string `json:"includedServices,omitempty"`
	M365Included     bool     `json:"m365Included,omitempty"`
	ResponseTimeSLA  string   `json:"responseTimeSla,omitempty"`
	SupportHours     string   `json:"supportHours,omitempty"`
	Accreditations   []string `json:"accreditations,omitempty"`
}

// Product is a normalized catalog entry. Exactly one category payload is set,
// matching Category.
type Product struct {
	ID             string          `json:"id"`
	VendorID       string          `json:"vendorId"`
	Manufacturer   string          `json:"manufacturer"`
	Model          string          `json:"model"`
	Category       ServiceCategory `json:"category"`
	Description    string          `json:"description,omitempty"`
	Features       []string        `json:"features,omitempty"`
	Status         ProductStatus   `json:"status"`
	Availability   Availability    `json:"availability"`
	RegionsCovered []string        `json:"regionsCovered,omitempty"`
	Industries     []string        `json:"industries,omitempty"`

	Photocopier *PhotocopierDetails `json:"photocopier,omitempty"`
	Telecoms    *TelecomsDetails    `json:"telecoms,omitempty"`
	CCTV        *CCTVDetails        `json:"cctv,omitempty"`
	IT          *ITDetails          `json:"it,omitempty"`
}

// Vendor is opaque to the core except for the fields the matcher reads.
type Vendor struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Tier    string   `json:"tier,omitempty"`
	Regions []string `json:"regions,omitempty"`
	Rating  float64  `json:"rating,omitempty"`
	Status  string   `json:"status,omitempty"`
}

type PaymentFrequency string

const (
	FrequencyMonthly   PaymentFrequency = "monthly"
	FrequencyQuarterly PaymentFrequency = "quarterly"
	FrequencyAnnual    PaymentFrequency = "annual"
)

// CurrentContract is the buyer's existing lease, best-effort extracted from an
// invoice. Any field may be nil.
type CurrentContract struct {
	LeaseCost        *float64          `json:"leaseCost,omitempty"`
	PaymentFrequency *PaymentFrequency `json:"paymentFrequency,omitempty"`
	MonoCPC          *float64          `json:"monoCpc,omitempty"`
	ColourCPC        *float64          `json:"colourCpc,omitempty"`
	StartDate        *time.Time        `json:"startDate,omitempty"`
	EndDate          *time.Time        `json:"endDate,omitempty"`
	MachineModel     *string           `json:"machineModel,omitempty"`
	LeasingCompany   *string           `json:"leasingCompany,omitempty"`
}

func (c CurrentContract) IsEmpty() bool {
	return c.LeaseCost == nil && c.PaymentFrequency == nil && c.MonoCPC == nil &&
		c.ColourCPC == nil && c.StartDate == nil && c.EndDate == nil &&
		c.MachineModel == nil && c.LeasingCompany == nil
}

// MonthlyLease normalizes LeaseCost to a monthly figure. Nil when no lease
// cost was extracted. An unknown frequency is treated as quarterly, the
// dominant billing cycle for UK copier leases.
func (c CurrentContract) MonthlyLease() *float64 {
	if c.LeaseCost == nil {
		return nil
	}
	freq := FrequencyQuarterly
	if c.PaymentFrequency != nil {
		freq = *c.PaymentFrequency
	}
	var monthly float64
	switch freq {
	case FrequencyMonthly:
		monthly = *c.LeaseCost
	case FrequencyAnnual:
		monthly = *c.LeaseCost / 12
	default:
		monthly = *c.LeaseCost / 3
	}
	return &monthly
}

type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyWeeks     Urgency = "weeks"
	UrgencyFlexible  Urgency = "flexible"
)

type LocationPreference struct {
	Scope       string `json:"scope"` // local | national
	RadiusMiles int    `json:"radiusMiles,omitempty"`
}

type MonthlyVolume struct {
	Mono   int `json:"mono"`
	Colour int `json:"colour"`
}

type RequestStatus string

const (
	RequestPending RequestStatus = "pending"
	RequestMatched RequestStatus = "matched"
	RequestClosed  RequestStatus = "closed"
)

type BudgetCeilings struct {
	MonthlyTotal *float64 `json:"monthlyTotal,omitempty"`
	Lease        *float64 `json:"lease,omitempty"`
	CPC          *float64 `json:"cpc,omitempty"`
}

// QuoteRequest is a buyer's submission. Immutable after creation except for
// Status.
type QuoteRequest struct {
	ID          string          `json:"id"`
	RequesterID string          `json:"requesterId"`
	Category    ServiceCategory `json:"serviceCategory"`
	Status      RequestStatus   `json:"status"`

	MonthlyVolume    MonthlyVolume       `json:"monthlyVolume"`
	PaperPrimary     PaperSize           `json:"paperPrimary,omitempty"`
	RequiredFeatures []string            `json:"requiredFeatures,omitempty"`
	Urgency          Urgency             `json:"urgency,omitempty"`
	Location         *LocationPreference `json:"locationPreference,omitempty"`
	Budget           *BudgetCeilings     `json:"budget,omitempty"`
	LeaseTermMonths  int                 `json:"leaseTermMonths,omitempty"`

	Users   int `json:"users,omitempty"`   // telecoms / IT
	Cameras int `json:"cameras,omitempty"` // cctv

	CurrentContract *CurrentContract `json:"currentContract,omitempty"`
}

type Subscores struct {
	Volume   float64 `json:"volume"`
	Speed    float64 `json:"speed"`
	Cost     float64 `json:"cost"`
	Features float64 `json:"features"`
	Paper    float64 `json:"paper"`
}

type SavingsBreakdown struct {
	CurrentMonthlyLease float64 `json:"currentMonthlyLease"`
	CurrentMonthlyCPC   float64 `json:"currentMonthlyCpc"`
	NewMonthlyLease     float64 `json:"newMonthlyLease"`
	NewMonthlyCPC       float64 `json:"newMonthlyCpc"`
}

type Savings struct {
	CurrentMonthlyTotal float64          `json:"currentMonthlyTotal"`
	NewMonthlyTotal     float64          `json:"newMonthlyTotal"`
	MonthlySavings      float64          `json:"monthlySavings"`
	AnnualSavings       float64          `json:"annualSavings"`
	SavingsPercent      float64          `json:"savingsPercent"`
	Breakdown           SavingsBreakdown `json:"breakdown"`
}

// Recommendation is one ranked result. Warning is set when the product was
// returned despite failing the suitability threshold.
type Recommendation struct {
	ProductID      string    `json:"productId"`
	VendorID       string    `json:"vendorId"`
	Manufacturer   string    `json:"manufacturer"`
	Model          string    `json:"model"`
	MatchScore     float64   `json:"matchScore"`
	Subscores      Subscores `json:"subscores"`
	LeaseQuarterly float64   `json:"leaseQuarterly"`
	TermMonths     int       `json:"termMonths"`
	Savings        Savings   `json:"savings"`
	Explanation    string    `json:"explanation"`
	Warning        string    `json:"warning,omitempty"`
}

type RequestStage string

const (
	StageSubmitted     RequestStage = "submitted"
	StageCanonicalized RequestStage = "canonicalized"
	StagePrefiltered   RequestStage = "prefiltered"
	StageScored        RequestStage = "scored"
	StageRanked        RequestStage = "ranked"
	StageDelivered     RequestStage = "delivered"
	StageFailed        RequestStage = "failed"
)

// RowError is a fatal, row-level normalization failure. The row is rejected;
// the batch continues.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	s := e.Message
	if e.Field != "" {
		s += " '" + e.Field + "'"
	}
	if e.Row > 0 {
		s = fmt.Sprintf("Row %d: %s", e.Row, s)
	}
	return s
}

// FieldWarning is a non-fatal anomaly recorded alongside an accepted product.
type FieldWarning struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ImportResult struct {
	Total    int            `json:"total"`
	Valid    int            `json:"valid"`
	Invalid  int            `json:"invalid"`
	Saved    int            `json:"saved"`
	Errors   []RowError     `json:"errors,omitempty"`
	Warnings []FieldWarning `json:"warnings,omitempty"`
}
